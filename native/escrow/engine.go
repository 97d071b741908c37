package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"beautyton/core/events"
	"beautyton/core/types"
)

var errNilState = errors.New("escrow engine: state not configured")

type engineState interface {
	OrderPut(*Order) error
	OrderGet(id uint64) (*Order, bool, error)
	OrderCredit(id uint64, amount *big.Int) error
	OrderDebit(id uint64, amount *big.Int) error
	VaultAddress() [20]byte
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine implements the order registry and the two-sided confirmation
// state machine for one deployed contract instance. The platform address
// and commission rate are fixed at construction and never change.
type Engine struct {
	state             engineState
	emitter           events.Emitter
	platform          [20]byte
	commissionPercent uint8
	reserve           *big.Int
	nowFn             func() int64
}

// NewEngine creates an engine for the given platform treasury and
// commission rate. The emitter defaults to a no-op; callers override it
// via SetEmitter.
func NewEngine(platform [20]byte, commissionPercent uint8) (*Engine, error) {
	if platform == ([20]byte{}) {
		return nil, fmt.Errorf("escrow engine: platform address not configured")
	}
	if commissionPercent > 100 {
		return nil, fmt.Errorf("escrow engine: commission percent out of range: %d", commissionPercent)
	}
	return &Engine{
		emitter:           events.NoopEmitter{},
		platform:          platform,
		commissionPercent: commissionPercent,
		reserve:           new(big.Int).Set(Reserve),
		nowFn:             func() int64 { return time.Now().Unix() },
	}, nil
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a
// no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily so tests can pin
// creation timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// transfer moves native currency between two ledger accounts.
func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("escrow: negative transfer amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: account balance below transfer amount", ErrInsufficientFunds)
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

// CreateOrder registers a new escrowed booking. The attached value must
// cover the service amount plus the processing reserve; on success the
// amount moves from the client's account into the module vault and the
// order record is stored with all flags cleared.
func (e *Engine) CreateOrder(id uint64, client, master [20]byte, amount, attachedValue *big.Int) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("escrow: order amount must be positive")
	}
	required := new(big.Int).Add(amount, e.reserve)
	if attachedValue == nil || attachedValue.Cmp(required) < 0 {
		return nil, ErrInsufficientFunds
	}
	if _, exists, err := e.state.OrderGet(id); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrOrderExists
	}
	vault := e.state.VaultAddress()
	if err := e.transfer(client, vault, amount); err != nil {
		return nil, err
	}
	if err := e.state.OrderCredit(id, amount); err != nil {
		return nil, err
	}
	order := &Order{
		ID:        id,
		Client:    client,
		Master:    master,
		Amount:    new(big.Int).Set(amount),
		CreatedAt: uint64(e.now()),
	}
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(order))
	return order.Clone(), nil
}

// Confirm records one party's attendance claim. The transition is
// symmetric in arrival order; whichever confirmation lands second
// triggers the payout split, the outbound transfers and the final,
// irreversible flip of the Finalized flag.
func (e *Engine) Confirm(id uint64, sender [20]byte, wasPresent bool) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	order, ok, err := e.state.OrderGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotFound
	}
	if order.Finalized {
		return nil, ErrOrderFinalized
	}
	if !order.isParty(sender) {
		return nil, ErrUnauthorized
	}
	if order.confirmedBy(sender) {
		return nil, ErrAlreadyConfirmed
	}

	if sender == order.Client {
		order.ClientConfirmed = true
		order.ClientClaimsAbsent = !wasPresent
	} else {
		order.MasterConfirmed = true
		order.MasterClaimsAbsent = !wasPresent
	}

	var payout *Payout
	if order.ClientConfirmed && order.MasterConfirmed {
		settled, err := e.finalize(order)
		if err != nil {
			return nil, err
		}
		payout = &settled
	}
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	e.emit(NewConfirmedEvent(order, sender))
	if payout != nil {
		e.emit(NewFinalizedEvent(order, *payout))
	}
	return order.Clone(), nil
}

// finalize pays out the escrowed amount exactly once and marks the
// order immutable. Callers persist the order afterwards.
func (e *Engine) finalize(order *Order) (Payout, error) {
	payout, err := Split(order.Amount, e.commissionPercent, order.ClientClaimsAbsent, order.MasterClaimsAbsent)
	if err != nil {
		return Payout{}, err
	}
	vault := e.state.VaultAddress()
	if err := e.transfer(vault, order.Master, payout.Master); err != nil {
		return Payout{}, err
	}
	if err := e.transfer(vault, order.Client, payout.Client); err != nil {
		return Payout{}, err
	}
	if err := e.transfer(vault, e.platform, payout.Platform); err != nil {
		return Payout{}, err
	}
	if err := e.state.OrderDebit(order.ID, order.Amount); err != nil {
		return Payout{}, err
	}
	order.Finalized = true
	return payout, nil
}

// Get returns a snapshot of the order, or false when the identifier is
// unknown. It never mutates state.
func (e *Engine) Get(id uint64) (*Order, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	order, ok, err := e.state.OrderGet(id)
	if err != nil || !ok {
		return nil, false, err
	}
	return order.Clone(), true, nil
}
