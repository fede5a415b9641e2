// Package registry holds the symbol registry / application state described
// in spec.md §4.4: the fixed pair allow-list, one engine and one
// broadcaster per pair, and a handle to the shared trade store. It is built
// once at startup and passed explicitly to callers — never stashed in
// ambient package-level state, per spec.md §9.
package registry

import (
	"fmt"
	"time"

	"matchforge/internal/broadcast"
	"matchforge/internal/common"
	"matchforge/internal/engine"
	"matchforge/internal/store"
)

// Registry is the shared application state. Safe for concurrent use: the
// maps below are fixed at construction time and never mutated afterwards,
// so lookups need no locking of their own.
type Registry struct {
	allowlist  *common.Allowlist
	engines    map[common.Pair]*engine.Engine
	hubs       map[common.Pair]*broadcast.Hub
	tradeStore store.TradeStore
}

// New constructs a registry for the given allow-list, one engine and hub
// per pair, sharing the given trade store.
func New(al *common.Allowlist, tradeStore store.TradeStore, now func() time.Time) *Registry {
	r := &Registry{
		allowlist:  al,
		engines:    make(map[common.Pair]*engine.Engine, len(al.Pairs())),
		hubs:       make(map[common.Pair]*broadcast.Hub, len(al.Pairs())),
		tradeStore: tradeStore,
	}
	for _, pair := range al.Pairs() {
		r.engines[pair] = engine.New(pair, now)
		r.hubs[pair] = broadcast.NewHub()
	}
	return r
}

// Allowlist returns the fixed recognized-pair set.
func (r *Registry) Allowlist() *common.Allowlist {
	return r.allowlist
}

// Store returns the shared trade store.
func (r *Registry) Store() store.TradeStore {
	return r.tradeStore
}

// EngineFor resolves a pair to its engine, or UnsupportedSymbolError.
func (r *Registry) EngineFor(pair common.Pair) (*engine.Engine, error) {
	e, ok := r.engines[pair]
	if !ok {
		return nil, &common.UnsupportedSymbolError{Pair: pair.String(), Supported: r.allowlist.Strings()}
	}
	return e, nil
}

// HubFor resolves a pair to its broadcaster, or UnsupportedSymbolError.
func (r *Registry) HubFor(pair common.Pair) (*broadcast.Hub, error) {
	h, ok := r.hubs[pair]
	if !ok {
		return nil, &common.UnsupportedSymbolError{Pair: pair.String(), Supported: r.allowlist.Strings()}
	}
	return h, nil
}

// ParsePair resolves a "BASE-QUOTE" string against the allow-list.
func (r *Registry) ParsePair(s string) (common.Pair, error) {
	return r.allowlist.Parse(s)
}

// Shutdown flushes the trade store on process exit, per spec.md §4.4.
func (r *Registry) Shutdown() error {
	if err := r.tradeStore.Close(); err != nil {
		return fmt.Errorf("%w: shutdown: %v", common.ErrStore, err)
	}
	return nil
}
