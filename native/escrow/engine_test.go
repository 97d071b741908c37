package escrow

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"beautyton/core/events"
	"beautyton/core/types"
)

type mockState struct {
	orders   map[uint64]*Order
	balances map[uint64]*big.Int
	accounts map[[20]byte]*types.Account
	vault    [20]byte
}

func newMockState() *mockState {
	return &mockState{
		orders:   make(map[uint64]*Order),
		balances: make(map[uint64]*big.Int),
		accounts: make(map[[20]byte]*types.Account),
		vault:    newTestAddress(0xEE),
	}
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func (m *mockState) OrderPut(o *Order) error {
	sanitized, err := SanitizeOrder(o)
	if err != nil {
		return err
	}
	m.orders[sanitized.ID] = sanitized.Clone()
	return nil
}

func (m *mockState) OrderGet(id uint64) (*Order, bool, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, false, nil
	}
	return order.Clone(), true, nil
}

func (m *mockState) OrderCredit(id uint64, amount *big.Int) error {
	balance, ok := m.balances[id]
	if !ok {
		balance = big.NewInt(0)
	}
	m.balances[id] = new(big.Int).Add(balance, amount)
	return nil
}

func (m *mockState) OrderDebit(id uint64, amount *big.Int) error {
	balance, ok := m.balances[id]
	if !ok || balance.Cmp(amount) < 0 {
		return fmt.Errorf("order %d escrow balance underflow", id)
	}
	m.balances[id] = new(big.Int).Sub(balance, amount)
	return nil
}

func (m *mockState) VaultAddress() [20]byte { return m.vault }

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	var key [20]byte
	copy(key[:], addr)
	account, ok := m.accounts[key]
	if !ok {
		return types.NewAccount(), nil
	}
	return &types.Account{Nonce: account.Nonce, Balance: new(big.Int).Set(account.Balance)}, nil
}

func (m *mockState) PutAccount(addr []byte, account *types.Account) error {
	var key [20]byte
	copy(key[:], addr)
	m.accounts[key] = &types.Account{Nonce: account.Nonce, Balance: new(big.Int).Set(account.Balance)}
	return nil
}

func (m *mockState) balanceOf(addr [20]byte) *big.Int {
	account, ok := m.accounts[addr]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(account.Balance)
}

func (m *mockState) fund(addr [20]byte, amount int64) {
	m.accounts[addr] = &types.Account{Balance: big.NewInt(amount)}
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) { r.events = append(r.events, evt) }

func (r *recordingEmitter) countByType(eventType string) int {
	count := 0
	for _, evt := range r.events {
		if evt.EventType() == eventType {
			count++
		}
	}
	return count
}

const (
	testAmount   = int64(1_000_000_000)
	testAttached = int64(1_010_000_000)
)

var (
	client   = [20]byte{0x01}
	master   = [20]byte{0x02}
	platform = [20]byte{0x03}
	stranger = [20]byte{0x04}
)

func newTestEngine(t *testing.T, state *mockState) (*Engine, *recordingEmitter) {
	t.Helper()
	engine, err := NewEngine(platform, 5)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	engine.SetState(state)
	emitter := &recordingEmitter{}
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	return engine, emitter
}

func createTestOrder(t *testing.T, engine *Engine, state *mockState, id uint64) *Order {
	t.Helper()
	state.fund(client, 2_000_000_000)
	order, err := engine.CreateOrder(id, client, master, big.NewInt(testAmount), big.NewInt(testAttached))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestCreateOrderStoresPendingOrder(t *testing.T) {
	state := newMockState()
	engine, emitter := newTestEngine(t, state)

	order := createTestOrder(t, engine, state, 0)
	if order.Status() != OrderPending {
		t.Fatalf("status = %s, want pending", order.Status())
	}
	if order.ClientConfirmed || order.MasterConfirmed || order.ClientClaimsAbsent || order.MasterClaimsAbsent || order.Finalized {
		t.Fatalf("fresh order has non-zero flags: %+v", order)
	}
	if state.balanceOf(state.vault).Cmp(big.NewInt(testAmount)) != 0 {
		t.Fatalf("vault holds %s, want %d", state.balanceOf(state.vault), testAmount)
	}
	if state.balances[0].Cmp(big.NewInt(testAmount)) != 0 {
		t.Fatalf("order escrow balance = %s, want %d", state.balances[0], testAmount)
	}
	if got := emitter.countByType(EventTypeOrderCreated); got != 1 {
		t.Fatalf("created events = %d, want 1", got)
	}
}

func TestCreateOrderRejectsUnderfundedAttachment(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(t, state)
	state.fund(client, 2_000_000_000)

	// Attached value equal to the amount is still short of the reserve.
	_, err := engine.CreateOrder(7, client, master, big.NewInt(testAmount), big.NewInt(testAmount))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if _, ok, _ := engine.Get(7); ok {
		t.Fatal("underfunded order must not be stored")
	}
	if state.balanceOf(client).Cmp(big.NewInt(2_000_000_000)) != 0 {
		t.Fatal("failed create must not move funds")
	}
}

func TestCreateOrderRejectsDuplicateID(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(t, state)

	createTestOrder(t, engine, state, 0)
	other := newTestAddress(0x55)
	state.fund(other, 2_000_000_000)
	_, err := engine.CreateOrder(0, other, master, big.NewInt(42), big.NewInt(testAttached))
	if !errors.Is(err, ErrOrderExists) {
		t.Fatalf("err = %v, want ErrOrderExists", err)
	}

	stored, ok, err := engine.Get(0)
	if err != nil || !ok {
		t.Fatalf("get after duplicate: ok=%v err=%v", ok, err)
	}
	if stored.Client != client || stored.Amount.Cmp(big.NewInt(testAmount)) != 0 {
		t.Fatal("duplicate create overwrote the original order")
	}
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(t, state)
	state.fund(client, 2_000_000_000)

	if _, err := engine.CreateOrder(1, client, master, big.NewInt(0), big.NewInt(testAttached)); err == nil {
		t.Fatal("expected zero amount to be rejected")
	}
	if _, err := engine.CreateOrder(1, client, master, nil, big.NewInt(testAttached)); err == nil {
		t.Fatal("expected nil amount to be rejected")
	}
}

func TestConfirmUnknownOrder(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(t, state)

	_, err := engine.Confirm(99, client, true)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestConfirmRejectsStranger(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(t, state)
	createTestOrder(t, engine, state, 0)

	_, err := engine.Confirm(0, stranger, true)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	order, _, _ := engine.Get(0)
	if order.ClientConfirmed || order.MasterConfirmed {
		t.Fatal("unauthorized confirm mutated the order")
	}
}

func TestConfirmRejectsRepeatFromSameSide(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(t, state)
	createTestOrder(t, engine, state, 0)

	if _, err := engine.Confirm(0, client, true); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	_, err := engine.Confirm(0, client, false)
	if !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("err = %v, want ErrAlreadyConfirmed", err)
	}
	order, _, _ := engine.Get(0)
	if order.ClientClaimsAbsent {
		t.Fatal("rejected repeat confirm still flipped the claim")
	}
}

func TestMutualPresencePaysMasterAndPlatform(t *testing.T) {
	state := newMockState()
	engine, emitter := newTestEngine(t, state)
	createTestOrder(t, engine, state, 0)

	if _, err := engine.Confirm(0, client, true); err != nil {
		t.Fatalf("client confirm: %v", err)
	}
	order, _, _ := engine.Get(0)
	if order.Status() != OrderPartiallyConfirmed || order.Finalized {
		t.Fatalf("after one confirm: status=%s finalized=%v", order.Status(), order.Finalized)
	}

	order, err := engine.Confirm(0, master, true)
	if err != nil {
		t.Fatalf("master confirm: %v", err)
	}
	if !order.Finalized || order.Status() != OrderFinalized {
		t.Fatal("order must finalize on the second confirmation")
	}
	if got := state.balanceOf(master); got.Cmp(big.NewInt(950_000_000)) != 0 {
		t.Fatalf("master received %s, want 950000000", got)
	}
	if got := state.balanceOf(platform); got.Cmp(big.NewInt(50_000_000)) != 0 {
		t.Fatalf("platform received %s, want 50000000", got)
	}
	if got := state.balanceOf(state.vault); got.Sign() != 0 {
		t.Fatalf("vault still holds %s after settlement", got)
	}
	if got := emitter.countByType(EventTypeOrderFinalized); got != 1 {
		t.Fatalf("finalized events = %d, want 1", got)
	}
}

func TestMutualAbsenceRefundsClient(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(t, state)
	createTestOrder(t, engine, state, 0)
	clientBefore := state.balanceOf(client)

	if _, err := engine.Confirm(0, client, false); err != nil {
		t.Fatalf("client confirm: %v", err)
	}
	order, err := engine.Confirm(0, master, false)
	if err != nil {
		t.Fatalf("master confirm: %v", err)
	}
	if !order.ClientClaimsAbsent || !order.MasterClaimsAbsent || !order.Finalized {
		t.Fatalf("unexpected final state: %+v", order)
	}
	wantClient := new(big.Int).Add(clientBefore, big.NewInt(testAmount))
	if got := state.balanceOf(client); got.Cmp(wantClient) != 0 {
		t.Fatalf("client balance = %s, want %s", got, wantClient)
	}
	if state.balanceOf(master).Sign() != 0 || state.balanceOf(platform).Sign() != 0 {
		t.Fatal("no-show settlement must not pay master or platform")
	}
}

func TestDisputedClaimSplitsNet(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(t, state)
	createTestOrder(t, engine, state, 0)
	clientBefore := state.balanceOf(client)

	if _, err := engine.Confirm(0, client, false); err != nil {
		t.Fatalf("client confirm: %v", err)
	}
	if _, err := engine.Confirm(0, master, true); err != nil {
		t.Fatalf("master confirm: %v", err)
	}

	wantClient := new(big.Int).Add(clientBefore, big.NewInt(475_000_000))
	if got := state.balanceOf(client); got.Cmp(wantClient) != 0 {
		t.Fatalf("client balance = %s, want %s", got, wantClient)
	}
	if got := state.balanceOf(master); got.Cmp(big.NewInt(475_000_000)) != 0 {
		t.Fatalf("master balance = %s, want 475000000", got)
	}
	if got := state.balanceOf(platform); got.Cmp(big.NewInt(50_000_000)) != 0 {
		t.Fatalf("platform balance = %s, want 50000000", got)
	}
}

func TestFinalizationIsSymmetricAndExactlyOnce(t *testing.T) {
	for _, firstIsMaster := range []bool{false, true} {
		state := newMockState()
		engine, emitter := newTestEngine(t, state)
		createTestOrder(t, engine, state, 0)

		first, second := client, master
		if firstIsMaster {
			first, second = master, client
		}
		if _, err := engine.Confirm(0, first, true); err != nil {
			t.Fatalf("first confirm (%x): %v", first[:1], err)
		}
		order, err := engine.Confirm(0, second, true)
		if err != nil {
			t.Fatalf("second confirm (%x): %v", second[:1], err)
		}
		if !order.Finalized {
			t.Fatal("order must finalize regardless of confirmation order")
		}

		// A third confirm must not re-trigger a transfer.
		masterBalance := state.balanceOf(master)
		_, err = engine.Confirm(0, client, true)
		if !errors.Is(err, ErrOrderFinalized) {
			t.Fatalf("err = %v, want ErrOrderFinalized", err)
		}
		if state.balanceOf(master).Cmp(masterBalance) != 0 {
			t.Fatal("confirm on a finalized order moved funds")
		}
		if got := emitter.countByType(EventTypeOrderFinalized); got != 1 {
			t.Fatalf("finalized events = %d, want exactly 1", got)
		}
		if state.balances[0].Sign() != 0 {
			t.Fatalf("order escrow balance = %s after settlement, want 0", state.balances[0])
		}
	}
}

func TestNewEngineValidatesDeployConfig(t *testing.T) {
	if _, err := NewEngine([20]byte{}, 5); err == nil {
		t.Fatal("expected zero platform address to be rejected")
	}
	if _, err := NewEngine(platform, 101); err == nil {
		t.Fatal("expected commission above 100 to be rejected")
	}
	if _, err := NewEngine(platform, 100); err != nil {
		t.Fatalf("commission of exactly 100 must be accepted: %v", err)
	}
}
