package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchforge/internal/common"
)

func openTestStore(t *testing.T) (*BoltStore, *common.Allowlist) {
	t.Helper()
	al := common.DefaultAllowlist()
	path := filepath.Join(t.TempDir(), "trades.db")
	s, err := OpenBoltStore(path, al)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, al
}

func sampleTrade(pair common.Pair, price common.Price) common.Trade {
	return common.Trade{
		Pair:      pair,
		Price:     price,
		Quantity:  10,
		MakerID:   common.IDFromParts(1, 0),
		TakerID:   common.IDFromParts(2, 0),
		Timestamp: time.Unix(0, 0).UTC(),
	}
}

func TestBoltStore_AppendThenList_RoundTrips(t *testing.T) {
	s, al := openTestStore(t)
	pair := al.Pairs()[0]
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, pair, sampleTrade(pair, 100)))
	require.NoError(t, s.Append(ctx, pair, sampleTrade(pair, 101)))

	items, next, effective, err := s.List(ctx, pair, nil, 10)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, 10, effective)
	require.Len(t, items, 2)
	assert.Equal(t, common.Price(100), items[0].Price)
	assert.Equal(t, common.Price(101), items[1].Price)
}

func TestBoltStore_List_PaginatesWithCursor(t *testing.T) {
	s, al := openTestStore(t)
	pair := al.Pairs()[0]
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, pair, sampleTrade(pair, common.Price(100+i))))
	}

	page1, next1, _, err := s.List(ctx, pair, nil, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotNil(t, next1)
	assert.Equal(t, common.Price(100), page1[0].Price)
	assert.Equal(t, common.Price(101), page1[1].Price)

	page2, next2, _, err := s.List(ctx, pair, next1, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.NotNil(t, next2)
	assert.Equal(t, common.Price(102), page2[0].Price)
	assert.Equal(t, common.Price(103), page2[1].Price)

	page3, next3, _, err := s.List(ctx, pair, next2, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Nil(t, next3)
	assert.Equal(t, common.Price(104), page3[0].Price)
}

func TestBoltStore_List_ClampsLimitAboveMax(t *testing.T) {
	s, al := openTestStore(t)
	pair := al.Pairs()[0]
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, pair, sampleTrade(pair, 100)))

	_, _, effective, err := s.List(ctx, pair, nil, MaxLimit+500)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, effective)
}

func TestBoltStore_List_RejectsZeroLimit(t *testing.T) {
	s, al := openTestStore(t)
	pair := al.Pairs()[0]
	_, _, _, err := s.List(context.Background(), pair, nil, 0)
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestBoltStore_List_LargeScanPaginatesFully(t *testing.T) {
	s, al := openTestStore(t)
	pair := al.Pairs()[0]
	ctx := context.Background()

	const total = 1205
	for i := 0; i < total; i++ {
		require.NoError(t, s.Append(ctx, pair, sampleTrade(pair, 1)))
	}

	var collected int
	var cursor *Cursor
	for {
		items, next, _, err := s.List(ctx, pair, cursor, 200)
		require.NoError(t, err)
		collected += len(items)
		if next == nil {
			break
		}
		cursor = next
	}
	assert.Equal(t, total, collected)
}

func TestDecodeCursor_RejectsCrossPairCursor(t *testing.T) {
	s, al := openTestStore(t)
	pairs := al.Pairs()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, pairs[0], sampleTrade(pairs[0], 100)))
	require.NoError(t, s.Append(ctx, pairs[0], sampleTrade(pairs[0], 101)))

	_, next, _, err := s.List(ctx, pairs[0], nil, 1)
	require.NoError(t, err)
	require.NotNil(t, next)

	_, err = DecodeCursor(al, pairs[1], next.Encode())
	assert.ErrorIs(t, err, common.ErrInvalidCursor)
}

func TestDecodeCursor_RejectsMalformedCursor(t *testing.T) {
	_, al := openTestStore(t)
	pair := al.Pairs()[0]
	_, err := DecodeCursor(al, pair, "not-a-valid-cursor!!")
	assert.ErrorIs(t, err, common.ErrInvalidCursor)
}
