// Package journal persists settlement receipts so booking history can be
// rendered without replaying ledger state. One receipt is appended per
// finalized order; the ledger itself stays authoritative.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketReceipts = []byte("receipts")

	// ErrNotFound is returned when no receipt exists for an order.
	ErrNotFound = errors.New("journal: receipt not found")
)

// Receipt records the outcome of one finalized order.
type Receipt struct {
	OrderID        uint64 `json:"orderId"`
	Outcome        string `json:"outcome"`
	ClientAmount   string `json:"clientAmount"`
	MasterAmount   string `json:"masterAmount"`
	PlatformAmount string `json:"platformAmount"`
	FinalizedAt    int64  `json:"finalizedAt"`
}

// Journal is a BoltDB-backed append-only receipt log keyed by order id.
type Journal struct {
	db *bolt.DB
}

// Open initialises the journal file, creating the bucket when needed.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketReceipts)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying database file.
func (j *Journal) Close() error {
	return j.db.Close()
}

func receiptKey(orderID uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, orderID)
	return key
}

// Append stores the receipt for a finalized order. A second append for
// the same order overwrites the first; the engine guarantees there never
// is one.
func (j *Journal) Append(receipt Receipt) error {
	encoded, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketReceipts).Put(receiptKey(receipt.OrderID), encoded)
	})
}

// Get loads the receipt for one order.
func (j *Journal) Get(orderID uint64) (Receipt, error) {
	var receipt Receipt
	err := j.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketReceipts).Get(receiptKey(orderID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &receipt)
	})
	return receipt, err
}

// List returns all receipts in order-id order.
func (j *Journal) List() ([]Receipt, error) {
	var receipts []Receipt
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketReceipts).ForEach(func(_, data []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(data, &receipt); err != nil {
				return err
			}
			receipts = append(receipts, receipt)
			return nil
		})
	})
	return receipts, err
}
