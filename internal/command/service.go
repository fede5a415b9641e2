// Package command implements the core's command surface from spec.md §4.5:
// the only boundary transport adapters call into. Every operation here maps
// 1:1 to a row of that table.
package command

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"matchforge/internal/broadcast"
	"matchforge/internal/common"
	"matchforge/internal/engine"
	"matchforge/internal/metrics"
	"matchforge/internal/registry"
	"matchforge/internal/store"
)

// Service is the command surface. Transport adapters (HTTP/WS, CLI, the
// simulator) hold one of these and nothing else from the core.
type Service struct {
	reg     *registry.Registry
	metrics metrics.Recorder
}

// New constructs a Service. A nil metrics.Recorder is fine: metrics.NoOp()
// is used in that case.
func New(reg *registry.Registry, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.NoOp()
	}
	return &Service{reg: reg, metrics: rec}
}

// SubmitOrderInput is submit_order's input, per spec.md §4.5.
type SubmitOrderInput struct {
	Pair  string
	Side  common.Side
	Kind  common.OrderKind
	Price *common.Price
	Qty   common.Quantity
}

// SubmitOrderOutput is submit_order's output.
type SubmitOrderOutput struct {
	OrderID common.ID
	Trades  []common.Trade
}

// SubmitOrder implements submit_order. It matches the order, appends every
// resulting trade to the store, and publishes trades+snapshot — all inside
// the engine's lock, per spec.md §5/§7, so two concurrent submits on one
// pair can never have their store writes or broadcasts observed out of
// order relative to how they were matched.
func (s *Service) SubmitOrder(ctx context.Context, in SubmitOrderInput) (SubmitOrderOutput, error) {
	pair, err := s.reg.ParsePair(in.Pair)
	if err != nil {
		return SubmitOrderOutput{}, err
	}

	eng, err := s.reg.EngineFor(pair)
	if err != nil {
		return SubmitOrderOutput{}, err
	}
	hub, err := s.reg.HubFor(pair)
	if err != nil {
		return SubmitOrderOutput{}, err
	}

	id, trades, err := eng.SubmitAndCommit(engine.SubmitInput{
		Side:  in.Side,
		Kind:  in.Kind,
		Price: in.Price,
		Qty:   in.Qty,
	}, s.persistAndPublish(ctx, pair, hub))
	if err != nil {
		return SubmitOrderOutput{}, err
	}

	s.metrics.OrdersSubmitted(pair.String(), in.Side.String(), in.Kind.String())
	s.metrics.TradesExecuted(pair.String(), len(trades))

	return SubmitOrderOutput{OrderID: id, Trades: trades}, nil
}

// persistAndPublish returns an engine.Commit that appends every trade to
// the store before publishing anything, per spec.md §7: a store write
// failure during submit is fatal for the command — the engine must never
// broadcast a trade it failed to persist.
func (s *Service) persistAndPublish(ctx context.Context, pair common.Pair, hub *broadcast.Hub) engine.Commit {
	return func(trades []common.Trade, snapshot engine.Snapshot) error {
		tradeStore := s.reg.Store()
		for _, trade := range trades {
			if err := tradeStore.Append(ctx, pair, trade); err != nil {
				log.Error().Err(err).Str("pair", pair.String()).Msg("trade store append failed; command aborted")
				return fmt.Errorf("%w: %v", common.ErrStore, err)
			}
		}

		for _, trade := range trades {
			hub.Publish(broadcast.Frame{Type: broadcast.FrameTrade, Pair: pair, Trade: trade})
		}
		hub.Publish(broadcast.Frame{Type: broadcast.FrameBookSnapshot, Pair: pair, Snapshot: snapshot})
		return nil
	}
}

// CancelOrder implements cancel_order.
func (s *Service) CancelOrder(_ context.Context, pairStr string, id common.ID) error {
	pair, err := s.reg.ParsePair(pairStr)
	if err != nil {
		return err
	}
	eng, err := s.reg.EngineFor(pair)
	if err != nil {
		return err
	}
	hub, err := s.reg.HubFor(pair)
	if err != nil {
		return err
	}

	err = eng.CancelAndCommit(id, func(_ []common.Trade, snapshot engine.Snapshot) error {
		hub.Publish(broadcast.Frame{Type: broadcast.FrameBookSnapshot, Pair: pair, Snapshot: snapshot})
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.OrdersCancelled(pair.String())
	return nil
}

// GetBook implements get_book.
func (s *Service) GetBook(_ context.Context, pairStr string) (common.Pair, engine.Snapshot, error) {
	pair, err := s.reg.ParsePair(pairStr)
	if err != nil {
		return common.Pair{}, engine.Snapshot{}, err
	}
	eng, err := s.reg.EngineFor(pair)
	if err != nil {
		return common.Pair{}, engine.Snapshot{}, err
	}
	snapshot, err := eng.Snapshot()
	if err != nil {
		return common.Pair{}, engine.Snapshot{}, err
	}
	return pair, snapshot, nil
}

// GetTradesInput is get_trades's input.
type GetTradesInput struct {
	Pair  string
	Limit int
	After string // opaque cursor, empty if absent
}

// GetTradesOutput is get_trades's output.
type GetTradesOutput struct {
	Items          []common.Trade
	Next           *store.Cursor
	EffectiveLimit int
}

// GetTrades implements get_trades.
func (s *Service) GetTrades(ctx context.Context, in GetTradesInput) (GetTradesOutput, error) {
	pair, err := s.reg.ParsePair(in.Pair)
	if err != nil {
		return GetTradesOutput{}, err
	}
	// EngineFor is called purely to confirm the pair is recognized via the
	// same path every other command uses; get_trades itself never touches
	// the engine.
	if _, err := s.reg.EngineFor(pair); err != nil {
		return GetTradesOutput{}, err
	}

	var after *store.Cursor
	if in.After != "" {
		c, err := store.DecodeCursor(s.reg.Allowlist(), pair, in.After)
		if err != nil {
			return GetTradesOutput{}, err
		}
		after = &c
	}

	items, next, effectiveLimit, err := s.reg.Store().List(ctx, pair, after, in.Limit)
	if err != nil {
		return GetTradesOutput{}, err
	}
	return GetTradesOutput{Items: items, Next: next, EffectiveLimit: effectiveLimit}, nil
}

// RecordSubscriberLag forwards a subscriber's dropped-frame count to the
// configured metrics.Recorder, so a lossy WS consumer shows up as a gauge
// rather than silently dropping frames.
func (s *Service) RecordSubscriberLag(pairStr string, lag uint64) {
	pair, err := s.reg.ParsePair(pairStr)
	if err != nil {
		return
	}
	s.metrics.SubscriberLag(pair.String(), lag)
}

// Subscribe implements subscribe: returns a live stream of frames for pair,
// seeded with one BookSnapshot. The seed is read and the subscription
// registered with the hub in a single call under the engine's lock, so a
// commit from a concurrent Submit/Cancel can never land between the two and
// be silently missed by the new subscriber.
func (s *Service) Subscribe(pairStr string) (*broadcast.Subscription, error) {
	pair, err := s.reg.ParsePair(pairStr)
	if err != nil {
		return nil, err
	}
	eng, err := s.reg.EngineFor(pair)
	if err != nil {
		return nil, err
	}
	hub, err := s.reg.HubFor(pair)
	if err != nil {
		return nil, err
	}

	var sub *broadcast.Subscription
	err = eng.WithSnapshot(func(snapshot engine.Snapshot) {
		seed := broadcast.Frame{Type: broadcast.FrameBookSnapshot, Pair: pair, Snapshot: snapshot}
		sub = hub.Subscribe(seed)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}
