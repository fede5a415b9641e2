package engine

import (
	"errors"
	"sync"
	"time"

	"matchforge/internal/common"
)

// Engine owns one pair's OrderBook and serializes submit/cancel/snapshot
// behind a mutex, per spec.md §5: distinct pairs run fully independently,
// but within a pair every command linearizes and the lock is held across
// the entire submit/cancel path, snapshot construction included.
type Engine struct {
	pair common.Pair
	ids  common.IDGenerator
	now  func() time.Time

	mu         sync.Mutex
	book       *OrderBook
	arrivalSeq uint64
	poisoned   error // set on invariant violation; refuses further commands
}

// New constructs an engine for one pair. now is injectable for deterministic
// tests; production callers pass time.Now.
func New(pair common.Pair, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		pair: pair,
		ids:  common.NewIDGenerator(),
		now:  now,
		book: NewOrderBook(),
	}
}

// SubmitInput describes an incoming order before ID/arrival-seq assignment.
type SubmitInput struct {
	Side  common.Side
	Kind  common.OrderKind
	Price *common.Price
	Qty   common.Quantity
}

// Submit assigns the order an ID and arrival sequence, matches it against
// the book, and rests any limit remainder.
func (e *Engine) Submit(in SubmitInput) (common.ID, []common.Trade, error) {
	id, trades, err := e.SubmitAndCommit(in, nil)
	return id, trades, err
}

// Commit is called once, synchronously, with the engine's lock still held,
// after a Submit/Cancel has mutated the book and before the method returns.
// Callers use it to persist trades and publish the resulting snapshot in
// the same critical section as the match itself, per spec.md §5/§7: two
// concurrent commands on one pair must never have their store writes or
// broadcasts observed out of order relative to how they were matched. A nil
// Commit (or one that returns an error) never aborts the already-applied
// book mutation — Commit failures are reported to the caller but the engine
// state has already moved on, matching spec.md §7's "store failure is fatal
// to the command, not the engine".
type Commit func(trades []common.Trade, snapshot Snapshot) error

// SubmitAndCommit performs Submit and, still holding the lock, invokes
// commit with the resulting trades and the post-state snapshot.
func (e *Engine) SubmitAndCommit(in SubmitInput, commit Commit) (common.ID, []common.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.poisoned != nil {
		return common.ID{}, nil, e.poisoned
	}

	order := common.Order{
		ID:        e.ids.Next(),
		Side:      in.Side,
		Kind:      in.Kind,
		Price:     in.Price,
		Remaining: in.Qty,
		Pair:      e.pair,
	}
	if err := order.Validate(); err != nil {
		return common.ID{}, nil, err
	}

	e.arrivalSeq++
	order.ArrivalSeq = e.arrivalSeq

	trades, err := e.book.Submit(order, e.now)
	if err != nil {
		e.poisoned = err
		return common.ID{}, nil, err
	}

	if commit != nil {
		if err := commit(trades, e.book.Snapshot()); err != nil {
			return order.ID, trades, err
		}
	}
	return order.ID, trades, nil
}

// CancelAndCommit cancels a resting order and, still holding the lock,
// invokes commit with the post-state snapshot (trades is always nil: a
// cancel never produces trades).
func (e *Engine) CancelAndCommit(id common.ID, commit Commit) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.poisoned != nil {
		return e.poisoned
	}

	if err := e.book.Cancel(id); err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			e.poisoned = err
		}
		return err
	}
	if commit != nil {
		return commit(nil, e.book.Snapshot())
	}
	return nil
}

// Snapshot reads the current book state under the lock.
func (e *Engine) Snapshot() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.poisoned != nil {
		return Snapshot{}, e.poisoned
	}
	return e.book.Snapshot(), nil
}

// WithSnapshot reads the current book state and invokes fn with it while
// still holding the lock. Subscribe uses this so that registering with the
// broadcaster happens atomically with reading the seed snapshot: no commit
// from a concurrent Submit/Cancel can land between the two and be missed.
func (e *Engine) WithSnapshot(fn func(Snapshot)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.poisoned != nil {
		return e.poisoned
	}
	fn(e.book.Snapshot())
	return nil
}

// Pair returns the pair this engine serves.
func (e *Engine) Pair() common.Pair {
	return e.pair
}
