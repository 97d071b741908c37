package state

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"beautyton/storage"
)

// Manager reads and writes settlement state through a key-value store.
// Keys are keccak-hashed before insertion so the layout stays uniform
// regardless of the backing database. A Manager carries no caches; it is
// constructed per message over whatever view (overlay or raw store) the
// node hands it.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided store.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func hashKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// get returns (nil, nil) when the key was never written, letting callers
// distinguish absence from decode failures.
func (m *Manager) get(key []byte) ([]byte, error) {
	data, err := m.db.Get(hashKey(key))
	if err == storage.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (m *Manager) put(key, value []byte) error {
	return m.db.Put(hashKey(key), value)
}
