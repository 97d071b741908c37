package core

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"beautyton/core/events"
	"beautyton/core/state"
	"beautyton/core/types"
	"beautyton/journal"
	"beautyton/native/escrow"
	"beautyton/observability/metrics"
	"beautyton/storage"
)

// eventRingCap bounds the in-memory event window served over RPC.
const eventRingCap = 256

// Node is the deployed contract instance: it owns the ledger store, the
// immutable platform address and commission rate, and processes every
// inbound message as one atomic unit. A mutex serializes messages in
// delivery order; each message runs against a write overlay that commits
// only when the engine succeeds, so failed messages leave no trace.
type Node struct {
	messageMu         sync.Mutex
	db                storage.Database
	platform          [20]byte
	commissionPercent uint8

	journal *journal.Journal

	// guarded by messageMu
	recentEvents []types.Event
}

// NewNode validates the deploy-time configuration and returns a node
// bound to the given store. The journal is optional; without it receipts
// are simply not persisted.
func NewNode(db storage.Database, platform [20]byte, commissionPercent uint8) (*Node, error) {
	// Engine construction enforces the deploy invariants.
	if _, err := escrow.NewEngine(platform, commissionPercent); err != nil {
		return nil, err
	}
	return &Node{
		db:                db,
		platform:          platform,
		commissionPercent: commissionPercent,
	}, nil
}

// SetJournal attaches a settlement receipt journal.
func (n *Node) SetJournal(j *journal.Journal) { n.journal = j }

// bufferEmitter collects events during message processing so they are
// published only after the overlay commits.
type bufferEmitter struct {
	buffered []events.Event
}

func (b *bufferEmitter) Emit(evt events.Event) { b.buffered = append(b.buffered, evt) }

type eventCarrier interface {
	Event() *types.Event
}

func (n *Node) newEngine(manager *state.Manager, emitter events.Emitter) (*escrow.Engine, error) {
	engine, err := escrow.NewEngine(n.platform, n.commissionPercent)
	if err != nil {
		return nil, err
	}
	engine.SetState(manager)
	engine.SetEmitter(emitter)
	return engine, nil
}

// processMessage runs fn against a fresh overlay and commits on success.
// Buffered events are published only after the commit.
func (n *Node) processMessage(fn func(*escrow.Engine) error) error {
	n.messageMu.Lock()
	defer n.messageMu.Unlock()

	overlay := storage.NewOverlay(n.db)
	manager := state.NewManager(overlay)
	emitter := &bufferEmitter{}
	engine, err := n.newEngine(manager, emitter)
	if err != nil {
		return err
	}
	if err := fn(engine); err != nil {
		overlay.Discard()
		return err
	}
	if err := overlay.Commit(); err != nil {
		return err
	}
	n.publish(emitter.buffered)
	return nil
}

func (n *Node) publish(buffered []events.Event) {
	for _, evt := range buffered {
		carrier, ok := evt.(eventCarrier)
		if !ok || carrier.Event() == nil {
			continue
		}
		payload := *carrier.Event()
		n.recentEvents = append(n.recentEvents, payload)
		if len(n.recentEvents) > eventRingCap {
			n.recentEvents = n.recentEvents[len(n.recentEvents)-eventRingCap:]
		}
		switch payload.Type {
		case escrow.EventTypeOrderCreated:
			metrics.Escrow().OrderCreated()
		case escrow.EventTypeOrderFinalized:
			metrics.Escrow().OrderFinalized(payload.Attributes["outcome"])
			n.appendReceipt(payload)
		}
	}
}

func (n *Node) appendReceipt(evt types.Event) {
	if n.journal == nil {
		return
	}
	var orderID uint64
	if _, err := fmt.Sscanf(evt.Attributes["orderId"], "%d", &orderID); err != nil {
		return
	}
	receipt := journal.Receipt{
		OrderID:        orderID,
		Outcome:        evt.Attributes["outcome"],
		ClientAmount:   evt.Attributes["clientAmount"],
		MasterAmount:   evt.Attributes["masterAmount"],
		PlatformAmount: evt.Attributes["platformAmount"],
		FinalizedAt:    time.Now().Unix(),
	}
	// Journal writes are best-effort; the ledger stays authoritative.
	_ = n.journal.Append(receipt)
}

// GenesisAlloc seeds one account balance at first boot.
type GenesisAlloc struct {
	Address [20]byte
	Balance *big.Int
}

// ApplyGenesis credits the configured initial balances exactly once. A
// marker key in state makes the operation idempotent across restarts.
func (n *Node) ApplyGenesis(allocs []GenesisAlloc) error {
	n.messageMu.Lock()
	defer n.messageMu.Unlock()

	overlay := storage.NewOverlay(n.db)
	manager := state.NewManager(overlay)
	applied, err := manager.GenesisApplied()
	if err != nil {
		return err
	}
	if applied {
		return nil
	}
	for _, alloc := range allocs {
		if alloc.Balance == nil || alloc.Balance.Sign() < 0 {
			return fmt.Errorf("core: genesis balance must be non-negative")
		}
		account, err := manager.GetAccount(alloc.Address[:])
		if err != nil {
			return err
		}
		account.Balance = new(big.Int).Add(account.Balance, alloc.Balance)
		if err := manager.PutAccount(alloc.Address[:], account); err != nil {
			return err
		}
	}
	if err := manager.MarkGenesisApplied(); err != nil {
		return err
	}
	return overlay.Commit()
}

// CreateOrder processes an inbound CreateOrder message.
func (n *Node) CreateOrder(orderID uint64, client, master [20]byte, amount, attachedValue *big.Int) (*escrow.Order, error) {
	var order *escrow.Order
	err := n.processMessage(func(engine *escrow.Engine) error {
		created, err := engine.CreateOrder(orderID, client, master, amount, attachedValue)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Confirm processes an inbound Confirm message.
func (n *Node) Confirm(orderID uint64, sender [20]byte, wasPresent bool) (*escrow.Order, error) {
	var order *escrow.Order
	err := n.processMessage(func(engine *escrow.Engine) error {
		confirmed, err := engine.Confirm(orderID, sender, wasPresent)
		if err != nil {
			return err
		}
		order = confirmed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder returns a snapshot of an order without mutating state.
func (n *Node) GetOrder(orderID uint64) (*escrow.Order, bool, error) {
	n.messageMu.Lock()
	defer n.messageMu.Unlock()
	manager := state.NewManager(n.db)
	return manager.OrderGet(orderID)
}

// GetAccount returns the ledger account for an address.
func (n *Node) GetAccount(addr [20]byte) (*types.Account, error) {
	n.messageMu.Lock()
	defer n.messageMu.Unlock()
	manager := state.NewManager(n.db)
	return manager.GetAccount(addr[:])
}

// Receipts returns all settlement receipts, oldest order id first.
func (n *Node) Receipts() ([]journal.Receipt, error) {
	if n.journal == nil {
		return nil, nil
	}
	return n.journal.List()
}

// Receipt returns the settlement receipt for one order.
func (n *Node) Receipt(orderID uint64) (journal.Receipt, error) {
	if n.journal == nil {
		return journal.Receipt{}, journal.ErrNotFound
	}
	return n.journal.Get(orderID)
}

// Events returns a copy of the recent event window.
func (n *Node) Events() []types.Event {
	n.messageMu.Lock()
	defer n.messageMu.Unlock()
	out := make([]types.Event, len(n.recentEvents))
	copy(out, n.recentEvents)
	return out
}
