package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "receipts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestAppendAndGet(t *testing.T) {
	j := openTestJournal(t)

	receipt := Receipt{
		OrderID:        7,
		Outcome:        "completed",
		ClientAmount:   "0",
		MasterAmount:   "950000000",
		PlatformAmount: "50000000",
		FinalizedAt:    1_700_000_000,
	}
	require.NoError(t, j.Append(receipt))

	loaded, err := j.Get(7)
	require.NoError(t, err)
	require.Equal(t, receipt, loaded)
}

func TestGetMissingReceipt(t *testing.T) {
	j := openTestJournal(t)
	_, err := j.Get(42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListReturnsOrderIDOrder(t *testing.T) {
	j := openTestJournal(t)
	for _, id := range []uint64{9, 1, 5} {
		require.NoError(t, j.Append(Receipt{OrderID: id, Outcome: "refunded"}))
	}
	receipts, err := j.List()
	require.NoError(t, err)
	require.Len(t, receipts, 3)
	require.Equal(t, uint64(1), receipts[0].OrderID)
	require.Equal(t, uint64(5), receipts[1].OrderID)
	require.Equal(t, uint64(9), receipts[2].OrderID)
}
