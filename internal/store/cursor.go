package store

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"matchforge/internal/common"
)

// Cursor is an opaque pagination token encoding exactly (pair, sequence).
// Clients must not rely on its structure — implementations may change the
// encoding freely as long as round-trip holds and the pair check still
// rejects cross-pair cursors, per spec.md §9.
type Cursor struct {
	pairIndex uint16
	sequence  uint64
}

const cursorLen = 2 + 8 // pairIndex + sequence, big-endian

// Encode renders the cursor as base64url-of-bytes, matching spec.md §4.2's
// "opaque base64url-of-bytes cursor" requirement.
func (c Cursor) Encode() string {
	buf := make([]byte, cursorLen)
	binary.BigEndian.PutUint16(buf[0:2], c.pairIndex)
	binary.BigEndian.PutUint64(buf[2:10], c.sequence)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// newCursor builds a cursor for the given pair (resolved against the
// allow-list) and sequence.
func newCursor(al *common.Allowlist, pair common.Pair, sequence uint64) (Cursor, error) {
	idx, ok := al.Index(pair)
	if !ok {
		return Cursor{}, fmt.Errorf("%w: pair %s not in allow-list", common.ErrInternal, pair)
	}
	return Cursor{pairIndex: uint16(idx), sequence: sequence}, nil
}

// DecodeCursor parses an opaque cursor and validates it was minted for
// pair. A malformed cursor, or one minted for a different pair, fails with
// common.ErrInvalidCursor.
func DecodeCursor(al *common.Allowlist, pair common.Pair, encoded string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(raw) != cursorLen {
		return Cursor{}, fmt.Errorf("%w: malformed cursor", common.ErrInvalidCursor)
	}

	c := Cursor{
		pairIndex: binary.BigEndian.Uint16(raw[0:2]),
		sequence:  binary.BigEndian.Uint64(raw[2:10]),
	}

	cursorPair, ok := al.PairAt(int(c.pairIndex))
	if !ok || cursorPair != pair {
		return Cursor{}, fmt.Errorf("%w: cursor was not minted for %s", common.ErrInvalidCursor, pair)
	}
	return c, nil
}
