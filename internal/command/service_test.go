package command

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchforge/internal/common"
	"matchforge/internal/registry"
	"matchforge/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	al := common.DefaultAllowlist()
	path := filepath.Join(t.TempDir(), "trades.db")
	tradeStore, err := store.OpenBoltStore(path, al)
	require.NoError(t, err)
	t.Cleanup(func() { tradeStore.Close() })

	reg := registry.New(al, tradeStore, func() time.Time { return time.Unix(0, 0) })
	return New(reg, nil)
}

func price(p uint64) *common.Price {
	v := common.Price(p)
	return &v
}

func TestSubmitOrder_CrossingOrdersProduceTradeAndPersist(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitOrder(ctx, SubmitOrderInput{Pair: "BTC-USD", Side: common.Sell, Kind: common.Limit, Price: price(100), Qty: 10})
	require.NoError(t, err)

	out, err := svc.SubmitOrder(ctx, SubmitOrderInput{Pair: "BTC-USD", Side: common.Buy, Kind: common.Limit, Price: price(100), Qty: 10})
	require.NoError(t, err)
	require.Len(t, out.Trades, 1)

	trades, err := svc.GetTrades(ctx, GetTradesInput{Pair: "BTC-USD", Limit: 10})
	require.NoError(t, err)
	require.Len(t, trades.Items, 1)
	assert.Equal(t, common.Price(100), trades.Items[0].Price)
}

func TestSubmitOrder_UnsupportedPairFails(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.SubmitOrder(context.Background(), SubmitOrderInput{Pair: "DOGE-USD", Side: common.Buy, Kind: common.Limit, Price: price(1), Qty: 1})
	assert.ErrorIs(t, err, common.ErrUnsupportedSymbol)
}

func TestGetBook_ReflectsRestingOrders(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitOrder(ctx, SubmitOrderInput{Pair: "BTC-USD", Side: common.Buy, Kind: common.Limit, Price: price(99), Qty: 5})
	require.NoError(t, err)

	_, snapshot, err := svc.GetBook(ctx, "BTC-USD")
	require.NoError(t, err)
	require.Len(t, snapshot.Bids, 1)
	assert.Equal(t, common.Price(99), snapshot.Bids[0].Price)
	assert.Equal(t, common.Quantity(5), snapshot.Bids[0].Quantity)
}

func TestCancelOrder_RemovesRestingOrderFromBook(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	out, err := svc.SubmitOrder(ctx, SubmitOrderInput{Pair: "BTC-USD", Side: common.Buy, Kind: common.Limit, Price: price(99), Qty: 5})
	require.NoError(t, err)

	require.NoError(t, svc.CancelOrder(ctx, "BTC-USD", out.OrderID))

	_, snapshot, err := svc.GetBook(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Empty(t, snapshot.Bids)
}

func TestCancelOrder_UnknownIDFails(t *testing.T) {
	svc := newTestService(t)
	err := svc.CancelOrder(context.Background(), "BTC-USD", common.ID{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSubscribe_SeedsWithCurrentBookSnapshot(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitOrder(ctx, SubmitOrderInput{Pair: "BTC-USD", Side: common.Buy, Kind: common.Limit, Price: price(99), Qty: 5})
	require.NoError(t, err)

	sub, err := svc.Subscribe("BTC-USD")
	require.NoError(t, err)
	defer sub.Close()

	select {
	case frame := <-sub.C():
		require.Len(t, frame.Snapshot.Bids, 1)
		assert.Equal(t, common.Price(99), frame.Snapshot.Bids[0].Price)
	default:
		t.Fatal("expected a seed frame to be immediately available")
	}
}

func TestSubscribe_ReceivesTradeAndSnapshotFramesOnMatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitOrder(ctx, SubmitOrderInput{Pair: "BTC-USD", Side: common.Sell, Kind: common.Limit, Price: price(100), Qty: 10})
	require.NoError(t, err)

	sub, err := svc.Subscribe("BTC-USD")
	require.NoError(t, err)
	defer sub.Close()
	<-sub.C() // drain the seed snapshot

	_, err = svc.SubmitOrder(ctx, SubmitOrderInput{Pair: "BTC-USD", Side: common.Buy, Kind: common.Limit, Price: price(100), Qty: 10})
	require.NoError(t, err)

	tradeFrame := <-sub.C()
	assert.Equal(t, "Trade", string(tradeFrame.Type))

	snapshotFrame := <-sub.C()
	assert.Equal(t, "BookSnapshot", string(snapshotFrame.Type))
	assert.Empty(t, snapshotFrame.Snapshot.Bids)
	assert.Empty(t, snapshotFrame.Snapshot.Asks)
}
