package common

// Order is a single order accepted by an engine. Price is nil for Market
// orders, which ignore it entirely and never rest.
type Order struct {
	ID         ID
	Side       Side
	Kind       OrderKind
	Price      *Price
	Remaining  Quantity
	Pair       Pair
	ArrivalSeq uint64
}

// Validate checks the acceptance invariants from spec.md §4.1: quantity must
// be positive, and a limit order must carry a positive price. It does not
// check the pair — that is the registry's job, since it requires the
// allow-list.
func (o Order) Validate() error {
	if o.Remaining == 0 {
		return ErrBadRequest
	}
	if o.Kind == Limit {
		if o.Price == nil || *o.Price == 0 {
			return ErrBadRequest
		}
	}
	return nil
}
