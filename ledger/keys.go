package ledger

import (
	"encoding/binary"

	"github.com/AltonMatrix/Raicoin/types"
)

// accountHeightKey builds the blocks_by_account_height composite key:
// account || big-endian height, so a bucket cursor walks a given
// account's chain in height order (SPEC_FULL.md §4.3).
func accountHeightKey(account types.Account, height uint64) []byte {
	key := make([]byte, 32+8)
	copy(key, account[:])
	binary.BigEndian.PutUint64(key[32:], height)
	return key
}

// receivableKey builds the receivable_info composite key: destination
// account || source block hash, so receivables for one destination can be
// range-scanned by prefix (SPEC_FULL.md §4.3).
func receivableKey(destination types.Account, source types.Hash) []byte {
	key := make([]byte, 32+32)
	copy(key, destination[:])
	copy(key[32:], source[:])
	return key
}

func walletIDKey(walletID uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, walletID)
	return key
}

func walletAccountKey(walletID, accountID uint32) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint32(key[:4], walletID)
	binary.BigEndian.PutUint32(key[4:], accountID)
	return key
}
