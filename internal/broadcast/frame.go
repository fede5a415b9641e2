// Package broadcast fans out book snapshots and trade events to concurrent
// subscribers per pair, per spec.md §4.3: bounded per-subscriber buffering,
// non-blocking publish, lossy semantics for slow consumers.
package broadcast

import (
	"matchforge/internal/common"
	"matchforge/internal/engine"
)

// FrameType tags a Frame's payload, mirroring the WS wire shape in
// spec.md §6.
type FrameType string

const (
	FrameBookSnapshot FrameType = "BookSnapshot"
	FrameTrade        FrameType = "Trade"
)

// Frame is the tagged union broadcast to subscribers.
type Frame struct {
	Type     FrameType
	Pair     common.Pair
	Snapshot engine.Snapshot // populated iff Type == FrameBookSnapshot
	Trade    common.Trade    // populated iff Type == FrameTrade
}
