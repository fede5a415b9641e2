package common

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/google/uuid"
)

// ID is a 128-bit identifier for orders and trade participants. It is opaque
// to clients and MUST serialize as a decimal string across the external
// boundary — JSON numbers lose precision above 2^53 and these are 2^128.
type ID struct {
	hi uint64 // monotonic, per-process acceptance counter
	lo uint64 // random entropy, sourced from a fresh UUIDv4 per ID
}

// idCounter is shared by every IDGenerator in the process so IDs minted by
// different generators never collide on the counter half alone.
var idCounter uint64

// IDGenerator mints unique IDs by pairing a monotonic counter with random
// entropy, per spec.md §3. A single process-wide generator is enough;
// engines pull from it independently and concurrently.
type IDGenerator struct{}

// NewIDGenerator returns a ready-to-use generator. There is no per-instance
// state: all instances share the process-wide monotonic counter.
func NewIDGenerator() IDGenerator {
	return IDGenerator{}
}

// Next mints a new ID. Collision probability is negligible: the counter half
// alone already guarantees uniqueness within this process's lifetime, and
// the entropy half guards against clock-less replay across processes.
func (IDGenerator) Next() ID {
	return ID{
		hi: atomic.AddUint64(&idCounter, 1),
		lo: uuidEntropy(),
	}
}

func uuidEntropy() uint64 {
	u := uuid.New()
	return binary.BigEndian.Uint64(u[8:16])
}

// bigInt renders the ID as the 128-bit unsigned integer hi<<64 | lo.
func (id ID) bigInt() *big.Int {
	v := new(big.Int).SetUint64(id.hi)
	v.Lsh(v, 64)
	v.Or(v, new(big.Int).SetUint64(id.lo))
	return v
}

// String renders the ID as a decimal string, the only form external
// consumers should ever see.
func (id ID) String() string {
	return id.bigInt().String()
}

// IsZero reports whether id is the zero value (never a value minted by
// IDGenerator, since the counter starts at 1).
func (id ID) IsZero() bool {
	return id.hi == 0 && id.lo == 0
}

// Parts exposes the raw 64-bit halves for callers that need a fixed-width
// binary encoding (the trade store's on-disk format, in particular).
func (id ID) Parts() (hi, lo uint64) {
	return id.hi, id.lo
}

// IDFromParts is the inverse of Parts.
func IDFromParts(hi, lo uint64) ID {
	return ID{hi: hi, lo: lo}
}

// ParseID parses a decimal string produced by ID.String. It rejects anything
// that isn't a base-10, non-negative integer representable in 128 bits. The
// bare-numeric-JSON form clients must not send is rejected by UnmarshalJSON,
// not here.
func ParseID(s string) (ID, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return ID{}, fmt.Errorf("%w: malformed id %q", ErrBadRequest, s)
	}
	if v.BitLen() > 128 {
		return ID{}, fmt.Errorf("%w: id %q overflows 128 bits", ErrBadRequest, s)
	}
	mask := new(big.Int).SetUint64(^uint64(0))
	lo := new(big.Int).And(v, mask).Uint64()
	hi := new(big.Int).Rsh(v, 64).Uint64()
	return ID{hi: hi, lo: lo}, nil
}

// MarshalJSON always emits the decimal string form.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON only accepts the decimal string form; a bare JSON number is
// a format error since it cannot safely carry 128 bits of precision.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("%w: id must be a JSON string", ErrBadRequest)
	}
	parsed, err := ParseID(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
