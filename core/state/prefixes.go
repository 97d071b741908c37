package state

import "encoding/binary"

var (
	accountPrefix      = []byte("account/")
	orderPrefix        = []byte("escrow/order/")
	orderBalancePrefix = []byte("escrow/balance/")
	vaultSeed          = []byte("escrow/vault")
)

func accountKey(addr []byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr)
	return buf
}

func orderKey(id uint64) []byte {
	buf := make([]byte, len(orderPrefix)+8)
	copy(buf, orderPrefix)
	binary.BigEndian.PutUint64(buf[len(orderPrefix):], id)
	return buf
}

func orderBalanceKey(id uint64) []byte {
	buf := make([]byte, len(orderBalancePrefix)+8)
	copy(buf, orderBalancePrefix)
	binary.BigEndian.PutUint64(buf[len(orderBalancePrefix):], id)
	return buf
}
