package types

import "math/big"

// Account holds the ledger-side view of a wallet: a replay nonce and the
// spendable native-currency balance. Escrowed funds are not part of the
// balance; they sit in the module vault until an order finalizes.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}

// NewAccount returns an empty account with a non-nil balance.
func NewAccount() *Account {
	return &Account{Balance: big.NewInt(0)}
}
