package escrow

import "errors"

var (
	// ErrInsufficientFunds rejects a CreateOrder whose attached value does
	// not cover the service amount plus the processing reserve.
	ErrInsufficientFunds = errors.New("escrow: insufficient funds attached")
	// ErrOrderExists rejects a CreateOrder reusing an existing identifier,
	// finalized or not.
	ErrOrderExists = errors.New("escrow: order already exists")
	// ErrOrderNotFound rejects a Confirm against an unknown identifier.
	ErrOrderNotFound = errors.New("escrow: order not found")
	// ErrUnauthorized rejects a Confirm from an address that is neither
	// the order's client nor its master.
	ErrUnauthorized = errors.New("escrow: sender is not a party to the order")
	// ErrAlreadyConfirmed rejects a repeat Confirm from the same side.
	ErrAlreadyConfirmed = errors.New("escrow: party already confirmed")
	// ErrOrderFinalized rejects a Confirm against a settled order.
	ErrOrderFinalized = errors.New("escrow: order already finalized")
)
