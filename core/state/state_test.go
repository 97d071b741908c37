package state

import (
	"math/big"
	"testing"

	"beautyton/native/escrow"
	"beautyton/storage"
)

func TestAccountRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	addr := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14}

	account, err := manager.GetAccount(addr)
	if err != nil {
		t.Fatalf("get missing account: %v", err)
	}
	if account.Balance.Sign() != 0 || account.Nonce != 0 {
		t.Fatalf("missing account must be empty, got %+v", account)
	}

	account.Nonce = 3
	account.Balance = big.NewInt(1_000_000_000)
	if err := manager.PutAccount(addr, account); err != nil {
		t.Fatalf("put account: %v", err)
	}

	loaded, err := manager.GetAccount(addr)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if loaded.Nonce != 3 || loaded.Balance.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestOrderRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	if _, ok, err := manager.OrderGet(0); err != nil || ok {
		t.Fatalf("missing order: ok=%v err=%v", ok, err)
	}

	order := &escrow.Order{
		ID:        0,
		Client:    [20]byte{0x01},
		Master:    [20]byte{0x02},
		Amount:    big.NewInt(1_000_000_000),
		CreatedAt: 1_700_000_000,
	}
	if err := manager.OrderPut(order); err != nil {
		t.Fatalf("put order: %v", err)
	}

	loaded, ok, err := manager.OrderGet(0)
	if err != nil || !ok {
		t.Fatalf("get order: ok=%v err=%v", ok, err)
	}
	if loaded.Client != order.Client || loaded.Master != order.Master {
		t.Fatal("counterparties did not survive the round trip")
	}
	if loaded.Amount.Cmp(order.Amount) != 0 || loaded.CreatedAt != order.CreatedAt {
		t.Fatalf("order fields mismatch: %+v", loaded)
	}
	if loaded.Finalized || loaded.ClientConfirmed || loaded.MasterConfirmed {
		t.Fatalf("fresh order flags must be clear: %+v", loaded)
	}
}

func TestOrderPutRejectsInvalidRecords(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	if err := manager.OrderPut(nil); err == nil {
		t.Fatal("nil order must be rejected")
	}
	if err := manager.OrderPut(&escrow.Order{ID: 1, Amount: big.NewInt(0)}); err == nil {
		t.Fatal("zero amount must be rejected")
	}
}

func TestOrderBalanceCreditDebit(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	if err := manager.OrderCredit(5, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := manager.OrderCredit(5, big.NewInt(50)); err != nil {
		t.Fatalf("second credit: %v", err)
	}
	balance, err := manager.OrderEscrowBalance(5)
	if err != nil || balance.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("balance = %s err=%v, want 150", balance, err)
	}

	if err := manager.OrderDebit(5, big.NewInt(150)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := manager.OrderDebit(5, big.NewInt(1)); err == nil {
		t.Fatal("debit past zero must fail")
	}
}

func TestVaultAddressIsStableAndNonZero(t *testing.T) {
	a := NewManager(storage.NewMemDB()).VaultAddress()
	b := NewManager(storage.NewMemDB()).VaultAddress()
	if a != b {
		t.Fatal("vault address must be deterministic")
	}
	if a == ([20]byte{}) {
		t.Fatal("vault address must not be zero")
	}
}

func TestManagerOverOverlayIsolation(t *testing.T) {
	backing := storage.NewMemDB()
	overlay := storage.NewOverlay(backing)
	manager := NewManager(overlay)

	order := &escrow.Order{ID: 9, Client: [20]byte{0x01}, Master: [20]byte{0x02}, Amount: big.NewInt(10)}
	if err := manager.OrderPut(order); err != nil {
		t.Fatalf("put order: %v", err)
	}
	if _, ok, _ := NewManager(backing).OrderGet(9); ok {
		t.Fatal("uncommitted write leaked to the backing store")
	}
	overlay.Discard()
	overlay2 := storage.NewOverlay(backing)
	if _, ok, _ := NewManager(overlay2).OrderGet(9); ok {
		t.Fatal("discarded write survived")
	}
}
