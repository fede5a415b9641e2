package common

import (
	"fmt"
	"strings"
)

// Asset is an opaque symbol identifier, e.g. "BTC" or "USD".
type Asset string

// Pair is an ordered (base, quote) tuple with canonical form "BASE-QUOTE".
type Pair struct {
	Base  Asset
	Quote Asset
}

func (p Pair) String() string {
	return fmt.Sprintf("%s-%s", p.Base, p.Quote)
}

// Allowlist is the fixed set of pairs an exchange process recognizes. It is
// built once at startup and never mutated afterwards.
type Allowlist struct {
	pairs   []Pair
	byIndex map[Pair]int
}

// NewAllowlist builds an Allowlist from the given pairs, preserving order
// (used as the stable index embedded in trade-store cursors).
func NewAllowlist(pairs ...Pair) *Allowlist {
	al := &Allowlist{
		pairs:   append([]Pair(nil), pairs...),
		byIndex: make(map[Pair]int, len(pairs)),
	}
	for i, p := range al.pairs {
		al.byIndex[p] = i
	}
	return al
}

// DefaultAllowlist is the initial recognized pair set named in spec.md §3.
func DefaultAllowlist() *Allowlist {
	return NewAllowlist(
		Pair{Base: "BTC", Quote: "USD"},
		Pair{Base: "ETH", Quote: "USD"},
	)
}

// Pairs returns the recognized pairs in allow-list order.
func (al *Allowlist) Pairs() []Pair {
	return append([]Pair(nil), al.pairs...)
}

// Strings renders the allow-list as canonical "BASE-QUOTE" strings, the form
// UnsupportedSymbolError.Supported is populated with.
func (al *Allowlist) Strings() []string {
	out := make([]string, len(al.pairs))
	for i, p := range al.pairs {
		out[i] = p.String()
	}
	return out
}

// Index returns the pair's stable position in the allow-list, used by the
// trade store cursor encoding. ok is false if the pair is not recognized.
func (al *Allowlist) Index(p Pair) (int, bool) {
	i, ok := al.byIndex[p]
	return i, ok
}

// PairAt is the inverse of Index.
func (al *Allowlist) PairAt(index int) (Pair, bool) {
	if index < 0 || index >= len(al.pairs) {
		return Pair{}, false
	}
	return al.pairs[index], true
}

// Contains reports whether p is in the allow-list.
func (al *Allowlist) Contains(p Pair) bool {
	_, ok := al.byIndex[p]
	return ok
}

// Parse resolves a canonical "BASE-QUOTE" string against the allow-list,
// failing with UnsupportedSymbolError for anything not recognized —
// including syntactically well-formed pairs outside the allow-list.
func (al *Allowlist) Parse(s string) (Pair, error) {
	base, quote, ok := strings.Cut(s, "-")
	if !ok || base == "" || quote == "" {
		return Pair{}, &UnsupportedSymbolError{Pair: s, Supported: al.Strings()}
	}
	p := Pair{Base: Asset(base), Quote: Asset(quote)}
	if !al.Contains(p) {
		return Pair{}, &UnsupportedSymbolError{Pair: s, Supported: al.Strings()}
	}
	return p, nil
}
