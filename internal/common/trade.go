package common

import (
	"fmt"
	"time"
)

// Trade is the record of a single fill. It is created by a match, appended
// to the trade store, and broadcast; it is never mutated afterwards.
type Trade struct {
	Pair      Pair
	Price     Price
	Quantity  Quantity
	MakerID   ID
	TakerID   ID
	Timestamp time.Time
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade[%s] price=%d qty=%d maker=%s taker=%s at=%s",
		t.Pair, t.Price, t.Quantity, t.MakerID, t.TakerID,
		t.Timestamp.Format(time.RFC3339Nano),
	)
}
