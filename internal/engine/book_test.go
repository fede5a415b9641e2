package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchforge/internal/common"
)

var pair = common.Pair{Base: "BTC", Quote: "USD"}

func fixedNow() time.Time { return time.Unix(0, 0) }

func limitOrder(side common.Side, price common.Price, qty common.Quantity, arrivalSeq uint64) common.Order {
	p := price
	return common.Order{
		ID:         common.IDFromParts(arrivalSeq, 0),
		Side:       side,
		Kind:       common.Limit,
		Price:      &p,
		Remaining:  qty,
		Pair:       pair,
		ArrivalSeq: arrivalSeq,
	}
}

func marketOrder(side common.Side, qty common.Quantity, arrivalSeq uint64) common.Order {
	return common.Order{
		ID:         common.IDFromParts(arrivalSeq, 0),
		Side:       side,
		Kind:       common.Market,
		Remaining:  qty,
		Pair:       pair,
		ArrivalSeq: arrivalSeq,
	}
}

func TestSubmit_RestsNonCrossingLimitOrders(t *testing.T) {
	book := NewOrderBook()

	_, err := book.Submit(limitOrder(common.Buy, 99, 100, 1), fixedNow)
	require.NoError(t, err)
	_, err = book.Submit(limitOrder(common.Sell, 101, 50, 2), fixedNow)
	require.NoError(t, err)

	snap := book.Snapshot()
	assert.Equal(t, []PriceLevelView{{Price: 99, Quantity: 100}}, snap.Bids)
	assert.Equal(t, []PriceLevelView{{Price: 101, Quantity: 50}}, snap.Asks)
}

func TestSubmit_CrossingLimitOrderMatchesFully(t *testing.T) {
	book := NewOrderBook()
	_, err := book.Submit(limitOrder(common.Sell, 100, 50, 1), fixedNow)
	require.NoError(t, err)

	trades, err := book.Submit(limitOrder(common.Buy, 100, 50, 2), fixedNow)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, common.Price(100), trades[0].Price)
	assert.Equal(t, common.Quantity(50), trades[0].Quantity)

	snap := book.Snapshot()
	assert.Empty(t, snap.Bids)
	assert.Empty(t, snap.Asks)
}

func TestSubmit_MarketOrderSweepsAcrossTwoLevels(t *testing.T) {
	book := NewOrderBook()
	_, err := book.Submit(limitOrder(common.Sell, 100, 40, 1), fixedNow)
	require.NoError(t, err)
	_, err = book.Submit(limitOrder(common.Sell, 101, 40, 2), fixedNow)
	require.NoError(t, err)

	trades, err := book.Submit(marketOrder(common.Buy, 60, 3), fixedNow)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, common.Price(100), trades[0].Price)
	assert.Equal(t, common.Quantity(40), trades[0].Quantity)
	assert.Equal(t, common.Price(101), trades[1].Price)
	assert.Equal(t, common.Quantity(20), trades[1].Quantity)

	snap := book.Snapshot()
	assert.Equal(t, []PriceLevelView{{Price: 101, Quantity: 20}}, snap.Asks)
}

func TestSubmit_MarketOrderRemainderIsDiscarded(t *testing.T) {
	book := NewOrderBook()
	_, err := book.Submit(limitOrder(common.Sell, 100, 10, 1), fixedNow)
	require.NoError(t, err)

	trades, err := book.Submit(marketOrder(common.Buy, 50, 2), fixedNow)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, common.Quantity(10), trades[0].Quantity)

	snap := book.Snapshot()
	assert.Empty(t, snap.Asks)
	assert.Empty(t, snap.Bids)
}

func TestSubmit_PartialFillRestsRemainder(t *testing.T) {
	book := NewOrderBook()
	_, err := book.Submit(limitOrder(common.Sell, 100, 30, 1), fixedNow)
	require.NoError(t, err)

	trades, err := book.Submit(limitOrder(common.Buy, 100, 50, 2), fixedNow)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, common.Quantity(30), trades[0].Quantity)

	snap := book.Snapshot()
	assert.Equal(t, []PriceLevelView{{Price: 100, Quantity: 20}}, snap.Bids)
	assert.Empty(t, snap.Asks)
}

func TestSubmit_PriceTimePriority(t *testing.T) {
	book := NewOrderBook()
	_, err := book.Submit(limitOrder(common.Sell, 100, 10, 1), fixedNow)
	require.NoError(t, err)
	_, err = book.Submit(limitOrder(common.Sell, 100, 10, 2), fixedNow)
	require.NoError(t, err)

	trades, err := book.Submit(limitOrder(common.Buy, 100, 10, 3), fixedNow)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, common.IDFromParts(1, 0), trades[0].MakerID, "earliest resting order at the level must fill first")

	snap := book.Snapshot()
	assert.Equal(t, []PriceLevelView{{Price: 100, Quantity: 10}}, snap.Asks)
}

func TestSubmit_BestPriceLevelFillsBeforeWorsePrice(t *testing.T) {
	book := NewOrderBook()
	_, err := book.Submit(limitOrder(common.Sell, 101, 10, 1), fixedNow)
	require.NoError(t, err)
	_, err = book.Submit(limitOrder(common.Sell, 100, 10, 2), fixedNow)
	require.NoError(t, err)

	trades, err := book.Submit(limitOrder(common.Buy, 101, 10, 3), fixedNow)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, common.Price(100), trades[0].Price, "best (lowest) ask must fill first regardless of arrival order")
}

func TestCancel_RemovesRestingOrder(t *testing.T) {
	book := NewOrderBook()
	order := limitOrder(common.Buy, 99, 100, 1)
	_, err := book.Submit(order, fixedNow)
	require.NoError(t, err)

	require.NoError(t, book.Cancel(order.ID))
	assert.Empty(t, book.Snapshot().Bids)
}

func TestCancel_UnknownOrderReturnsNotFound(t *testing.T) {
	book := NewOrderBook()
	err := book.Cancel(common.IDFromParts(999, 0))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCancelThenResubmit_RestsIndependently(t *testing.T) {
	book := NewOrderBook()
	order := limitOrder(common.Buy, 99, 100, 1)
	_, err := book.Submit(order, fixedNow)
	require.NoError(t, err)
	require.NoError(t, book.Cancel(order.ID))

	_, err = book.Submit(limitOrder(common.Buy, 99, 40, 2), fixedNow)
	require.NoError(t, err)

	assert.Equal(t, []PriceLevelView{{Price: 99, Quantity: 40}}, book.Snapshot().Bids)
}

func TestSubmit_RejectsZeroQuantity(t *testing.T) {
	book := NewOrderBook()
	_, err := book.Submit(limitOrder(common.Buy, 99, 0, 1), fixedNow)
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestSubmit_RejectsLimitOrderWithoutPrice(t *testing.T) {
	book := NewOrderBook()
	order := marketOrder(common.Buy, 10, 1)
	order.Kind = common.Limit
	_, err := book.Submit(order, fixedNow)
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestBestBidAsk_ReflectsCurrentTopOfBook(t *testing.T) {
	book := NewOrderBook()
	_, err := book.Submit(limitOrder(common.Buy, 99, 10, 1), fixedNow)
	require.NoError(t, err)
	_, err = book.Submit(limitOrder(common.Buy, 98, 10, 2), fixedNow)
	require.NoError(t, err)
	_, err = book.Submit(limitOrder(common.Sell, 101, 10, 3), fixedNow)
	require.NoError(t, err)

	bid, hasBid, ask, hasAsk := book.BestBidAsk()
	require.True(t, hasBid)
	require.True(t, hasAsk)
	assert.Equal(t, common.Price(99), bid)
	assert.Equal(t, common.Price(101), ask)
}
