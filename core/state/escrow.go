package state

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"beautyton/native/escrow"
)

// OrderPut sanitizes and persists an order record. Existing records are
// overwritten; the duplicate-id rule is enforced by the engine, which
// checks OrderGet before its first write.
func (m *Manager) OrderPut(order *escrow.Order) error {
	if order == nil {
		return fmt.Errorf("state: nil order")
	}
	sanitized, err := escrow.SanitizeOrder(order)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(sanitized)
	if err != nil {
		return err
	}
	return m.put(orderKey(sanitized.ID), encoded)
}

// OrderGet loads an order snapshot by identifier.
func (m *Manager) OrderGet(id uint64) (*escrow.Order, bool, error) {
	data, err := m.get(orderKey(id))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	order := new(escrow.Order)
	if err := rlp.DecodeBytes(data, order); err != nil {
		return nil, false, err
	}
	return order, true, nil
}

// OrderEscrowBalance returns the funds currently owned by an order.
func (m *Manager) OrderEscrowBalance(id uint64) (*big.Int, error) {
	data, err := m.get(orderBalanceKey(id))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	balance := new(big.Int)
	if err := rlp.DecodeBytes(data, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

func (m *Manager) writeOrderBalance(id uint64, balance *big.Int) error {
	encoded, err := rlp.EncodeToBytes(balance)
	if err != nil {
		return err
	}
	return m.put(orderBalanceKey(id), encoded)
}

// OrderCredit increases the escrowed balance owned by an order.
func (m *Manager) OrderCredit(id uint64, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: credit amount must be non-negative")
	}
	balance, err := m.OrderEscrowBalance(id)
	if err != nil {
		return err
	}
	return m.writeOrderBalance(id, new(big.Int).Add(balance, amount))
}

// OrderDebit decreases the escrowed balance owned by an order. Debiting
// more than the order holds is a conservation violation and fails.
func (m *Manager) OrderDebit(id uint64, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: debit amount must be non-negative")
	}
	balance, err := m.OrderEscrowBalance(id)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("state: order %d escrow balance underflow", id)
	}
	return m.writeOrderBalance(id, new(big.Int).Sub(balance, amount))
}

// VaultAddress returns the module account that holds all escrowed funds.
// It is derived from a fixed seed so every node computes the same vault.
func (m *Manager) VaultAddress() [20]byte {
	hash := ethcrypto.Keccak256(vaultSeed)
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}
