// Package engine implements the per-pair price-time priority order book and
// matching engine described in spec.md §4.1, generalizing the teacher's
// OrderBook (internal/engine/orderbook.go in the original prototype): price
// levels are still a tidwall/btree.BTreeG keyed by price with bids sorted
// descending and asks ascending, but prices are now integer ticks instead of
// float64, matching is driven by an explicit trade sink instead of an
// engine-pointer callback, and cancellation is O(log P) via a by-id index
// the teacher's prototype only sketched in a TODO.
package engine

import (
	"fmt"
	"time"

	"github.com/tidwall/btree"

	"matchforge/internal/common"
)

// ErrInvariantViolation marks a book invariant check failing at runtime —
// always a bug, never a user-triggerable condition.
var ErrInvariantViolation = fmt.Errorf("%w: order book invariant violation", common.ErrInternal)

// priceLevel holds every resting order at one price, in arrival order.
type priceLevel struct {
	price  common.Price
	orders []*common.Order
}

type priceLevels = btree.BTreeG[*priceLevel]

// restingRef locates a resting order for O(log P) cancellation: look up the
// level by price (log P), then splice it out of the level's FIFO slice.
type restingRef struct {
	side  common.Side
	price common.Price
}

// OrderBook is the matching state machine for a single pair. It is not
// concurrency-safe on its own — Engine serializes access with a mutex, per
// spec.md §5.
type OrderBook struct {
	bids *priceLevels // best = max price
	asks *priceLevels // best = min price

	byID map[common.ID]restingRef
}

// NewOrderBook constructs an empty book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids: btree.NewBTreeG(func(a, b *priceLevel) bool { return a.price > b.price }),
		asks: btree.NewBTreeG(func(a, b *priceLevel) bool { return a.price < b.price }),
		byID: make(map[common.ID]restingRef),
	}
}

func (b *OrderBook) levelsFor(side common.Side) *priceLevels {
	if side == common.Buy {
		return b.bids
	}
	return b.asks
}

// oppositeLevels returns the levels an incoming order of the given side
// matches against.
func (b *OrderBook) oppositeLevels(side common.Side) *priceLevels {
	if side == common.Buy {
		return b.asks
	}
	return b.bids
}

// crosses reports whether an incoming limit order at price is eligible to
// match against a resting level at levelPrice. Market orders always cross
// and never call this.
func crosses(side common.Side, price common.Price, levelPrice common.Price) bool {
	if side == common.Buy {
		return price >= levelPrice
	}
	return price <= levelPrice
}

// Submit executes spec.md §4.1's submit algorithm: match against the
// opposite side in price-time priority, then rest any limit remainder.
// order.ID and order.ArrivalSeq must already be assigned by the caller
// (Engine), since arrival_seq must be fixed before matching begins.
func (b *OrderBook) Submit(order common.Order, now func() time.Time) ([]common.Trade, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	incoming := order
	var trades []common.Trade

	opposite := b.oppositeLevels(incoming.Side)
	for incoming.Remaining > 0 {
		level, ok := opposite.MinMut()
		if !ok || (incoming.Kind == common.Limit && !crosses(incoming.Side, *incoming.Price, level.price)) {
			break
		}

		for len(level.orders) > 0 && incoming.Remaining > 0 {
			head := level.orders[0]
			qty := min(incoming.Remaining, head.Remaining)

			trade := common.Trade{
				Pair:      incoming.Pair,
				Price:     priceOrZero(head.Price),
				Quantity:  qty,
				MakerID:   head.ID,
				TakerID:   incoming.ID,
				Timestamp: now(),
			}
			trades = append(trades, trade)

			incoming.Remaining -= qty
			head.Remaining -= qty

			if head.Remaining == 0 {
				level.orders = level.orders[1:]
				delete(b.byID, head.ID)
			}
		}

		if len(level.orders) == 0 {
			opposite.Delete(level)
		}
	}

	if incoming.Kind == common.Market {
		// Market remainder is discarded silently, per spec.md §4.1.
		return trades, nil
	}

	if incoming.Remaining > 0 {
		b.rest(incoming)
	}

	return trades, nil
}

func priceOrZero(p *common.Price) common.Price {
	if p == nil {
		return 0
	}
	return *p
}

// rest appends a limit remainder onto its own side at its price.
func (b *OrderBook) rest(order common.Order) {
	levels := b.levelsFor(order.Side)
	price := *order.Price
	dummy := &priceLevel{price: price}

	level, ok := levels.GetMut(dummy)
	if !ok {
		level = &priceLevel{price: price}
		levels.Set(level)
	}
	orderCopy := order
	level.orders = append(level.orders, &orderCopy)
	b.byID[order.ID] = restingRef{side: order.Side, price: price}
}

// Cancel removes a resting order. Returns common.ErrNotFound if the order is
// not on the book (already filled, already cancelled, or never existed).
func (b *OrderBook) Cancel(id common.ID) error {
	ref, ok := b.byID[id]
	if !ok {
		return common.ErrNotFound
	}

	levels := b.levelsFor(ref.side)
	level, ok := levels.GetMut(&priceLevel{price: ref.price})
	if !ok {
		return ErrInvariantViolation // unreachable: byID and levels are kept in lockstep
	}

	idx := -1
	for i, o := range level.orders {
		if o.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrInvariantViolation
	}

	level.orders = append(level.orders[:idx], level.orders[idx+1:]...)
	delete(b.byID, id)

	if len(level.orders) == 0 {
		levels.Delete(level)
	}
	return nil
}

// PriceLevelView is one level of an aggregated book snapshot.
type PriceLevelView struct {
	Price    common.Price
	Quantity common.Quantity
}

// Snapshot is an aggregated view of both sides, best-first.
type Snapshot struct {
	Bids []PriceLevelView
	Asks []PriceLevelView
}

// Snapshot aggregates every non-empty level, sorted best-first: bids
// descending, asks ascending.
func (b *OrderBook) Snapshot() Snapshot {
	return Snapshot{
		Bids: aggregateLevels(b.bids),
		Asks: aggregateLevels(b.asks),
	}
}

func aggregateLevels(levels *priceLevels) []PriceLevelView {
	items := levels.Items()
	out := make([]PriceLevelView, 0, len(items))
	for _, level := range items {
		var total common.Quantity
		for _, o := range level.orders {
			total += o.Remaining
		}
		out = append(out, PriceLevelView{Price: level.price, Quantity: total})
	}
	return out
}

// BestBidAsk returns the best bid and ask prices, when present, for the
// no-crossed-book invariant check in tests.
func (b *OrderBook) BestBidAsk() (bid common.Price, hasBid bool, ask common.Price, hasAsk bool) {
	if lvl, ok := b.bids.MinMut(); ok {
		bid, hasBid = lvl.price, true
	}
	if lvl, ok := b.asks.MinMut(); ok {
		ask, hasAsk = lvl.price, true
	}
	return
}
