package escrow

import (
	"fmt"
	"math/big"
)

// OrderStatus is derived from the two confirmation flags; it is never
// stored independently.
type OrderStatus uint8

const (
	OrderPending OrderStatus = iota
	OrderPartiallyConfirmed
	OrderFinalized
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "pending"
	case OrderPartiallyConfirmed:
		return "partially_confirmed"
	case OrderFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Order captures one escrowed booking between a client and a master. The
// identifier is caller-supplied and unique for the lifetime of the
// registry. Counterparties and amount are fixed at creation; only the
// confirmation flags, the absence claims and Finalized ever change, and
// none of them change again once Finalized is set.
type Order struct {
	ID                 uint64
	Client             [20]byte
	Master             [20]byte
	Amount             *big.Int
	ClientConfirmed    bool
	MasterConfirmed    bool
	ClientClaimsAbsent bool
	MasterClaimsAbsent bool
	Finalized          bool
	CreatedAt          uint64
}

// Clone returns a deep copy so callers can mutate the copy without
// affecting the stored instance.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Amount != nil {
		clone.Amount = new(big.Int).Set(o.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// Status reports the lifecycle position derived from the confirmation
// flags.
func (o *Order) Status() OrderStatus {
	switch {
	case o.ClientConfirmed && o.MasterConfirmed:
		return OrderFinalized
	case o.ClientConfirmed || o.MasterConfirmed:
		return OrderPartiallyConfirmed
	default:
		return OrderPending
	}
}

// confirmedBy reports whether the given side has already confirmed.
func (o *Order) confirmedBy(sender [20]byte) bool {
	if sender == o.Client {
		return o.ClientConfirmed
	}
	if sender == o.Master {
		return o.MasterConfirmed
	}
	return false
}

// isParty reports whether sender is one of the order's counterparties.
func (o *Order) isParty(sender [20]byte) bool {
	return sender == o.Client || sender == o.Master
}

// SanitizeOrder validates the supplied order and returns a clone with a
// non-nil amount. The original value is not mutated.
func SanitizeOrder(o *Order) (*Order, error) {
	if o == nil {
		return nil, fmt.Errorf("escrow: nil order")
	}
	clone := o.Clone()
	if clone.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("escrow: order amount must be positive")
	}
	if clone.Finalized != (clone.ClientConfirmed && clone.MasterConfirmed) {
		return nil, fmt.Errorf("escrow: finalized flag inconsistent with confirmations")
	}
	return clone, nil
}
