package ledger

import (
	"bytes"
	"encoding/binary"

	"github.com/AltonMatrix/Raicoin/types"
	"github.com/vmihailenco/msgpack/v5"
)

func put(b interface{ Put([]byte, []byte) error }, key []byte, v interface{}) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// --- account_info -----------------------------------------------------

// AccountInfoGet returns the locally tracked head for account, consulting
// the in-memory cache before the bucket (SPEC_FULL.md §4.3).
func (t *Txn) AccountInfoGet(account types.Account) (AccountInfo, bool, error) {
	if v, ok := t.store.cache.Get(account); ok {
		return v.(AccountInfo), true, nil
	}
	data := t.bucket(bucketAccountInfo).Get(account[:])
	if data == nil {
		return AccountInfo{}, false, nil
	}
	var info AccountInfo
	if err := msgpack.Unmarshal(data, &info); err != nil {
		return AccountInfo{}, false, err
	}
	t.store.cache.Add(account, info)
	return info, true, nil
}

// AccountInfoPut stores (or replaces) the head for account. The cache entry
// is updated optimistically, before this transaction commits; touchAccount
// records that so Abort can undo it if the write never lands.
func (t *Txn) AccountInfoPut(account types.Account, info AccountInfo) error {
	if err := put(t.bucket(bucketAccountInfo), account[:], info); err != nil {
		return err
	}
	t.touchAccount(account)
	t.store.cache.Add(account, info)
	return nil
}

// AccountInfoDel removes an account's head. Rollback uses it when popping
// the open block (height 0) leaves the account with no chain (spec.md §4.6).
func (t *Txn) AccountInfoDel(account types.Account) error {
	t.touchAccount(account)
	t.store.cache.Remove(account)
	return t.bucket(bucketAccountInfo).Delete(account[:])
}

// AccountInfoIterate walks every tracked account in ascending account-id
// order (spec.md §4.3 account_info_begin/end), the access pattern startup
// initialization uses to rebuild derived in-memory state — e.g. the
// cross-wallet received set — from the persisted chain.
func (t *Txn) AccountInfoIterate(fn func(account types.Account, info AccountInfo) error) error {
	c := t.bucket(bucketAccountInfo).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var info AccountInfo
		if err := msgpack.Unmarshal(v, &info); err != nil {
			return err
		}
		var account types.Account
		copy(account[:], k)
		if err := fn(account, info); err != nil {
			return err
		}
	}
	return nil
}

// --- blocks -------------------------------------------------------------

// BlockPut stores block under its hash, recording the successor hash of
// the block it extends (Previous), and updates the by-height index.
func (t *Txn) BlockPut(hash types.Hash, block types.Block) error {
	stored := StoredBlock{Block: block}
	if err := put(t.bucket(bucketBlocks), hash[:], stored); err != nil {
		return err
	}
	if !block.IsOpen() {
		if err := t.setSuccessor(block.Previous, hash); err != nil {
			return err
		}
	}
	return t.bucket(bucketBlocksByAccountHeight).Put(accountHeightKey(block.Account, block.Height), hash[:])
}

// setSuccessor records that successor extends the block stored at prev.
func (t *Txn) setSuccessor(prev types.Hash, successor types.Hash) error {
	b := t.bucket(bucketBlocks)
	data := b.Get(prev[:])
	if data == nil {
		return nil // prev not locally known (e.g. genesis link); nothing to annotate
	}
	var stored StoredBlock
	if err := msgpack.Unmarshal(data, &stored); err != nil {
		return err
	}
	stored.Successor = successor
	return put(b, prev[:], stored)
}

// ClearSuccessor blanks the recorded successor of hash without touching its
// own Previous chain, used when popping the head block during rollback
// reconciliation so the predecessor no longer points at the popped block
// (spec.md §4.6). Unlike BlockPut, it never recomputes the predecessor's own
// successor pointer.
func (t *Txn) ClearSuccessor(hash types.Hash) error {
	b := t.bucket(bucketBlocks)
	data := b.Get(hash[:])
	if data == nil {
		return nil
	}
	var stored StoredBlock
	if err := msgpack.Unmarshal(data, &stored); err != nil {
		return err
	}
	stored.Successor = types.Hash{}
	return put(b, hash[:], stored)
}

// BlockGet returns the stored block for hash, if present.
func (t *Txn) BlockGet(hash types.Hash) (StoredBlock, bool, error) {
	data := t.bucket(bucketBlocks).Get(hash[:])
	if data == nil {
		return StoredBlock{}, false, nil
	}
	var stored StoredBlock
	if err := msgpack.Unmarshal(data, &stored); err != nil {
		return StoredBlock{}, false, err
	}
	return stored, true, nil
}

// BlockExists reports whether hash is locally known.
func (t *Txn) BlockExists(hash types.Hash) (bool, error) {
	return t.bucket(bucketBlocks).Get(hash[:]) != nil, nil
}

// BlockGetByAccountHeight looks up the hash of the block at (account, height).
func (t *Txn) BlockGetByAccountHeight(account types.Account, height uint64) (types.Hash, bool, error) {
	data := t.bucket(bucketBlocksByAccountHeight).Get(accountHeightKey(account, height))
	if data == nil {
		return types.Hash{}, false, nil
	}
	var h types.Hash
	copy(h[:], data)
	return h, true, nil
}

// BlockDel removes a block and its by-height index entry, used when a fork
// is pruned during rollback reconciliation (spec.md §4.6).
func (t *Txn) BlockDel(hash types.Hash, account types.Account, height uint64) error {
	if err := t.bucket(bucketBlocks).Delete(hash[:]); err != nil {
		return err
	}
	return t.bucket(bucketBlocksByAccountHeight).Delete(accountHeightKey(account, height))
}

// --- rollback_blocks ------------------------------------------------------

// RollbackBlockPut stashes a block displaced by a confirmed fork (spec.md
// §4.6). Nothing in the core reads the stash back or replays it.
func (t *Txn) RollbackBlockPut(hash types.Hash, block types.Block) error {
	return put(t.bucket(bucketRollbackBlocks), hash[:], block)
}

// RollbackBlockGet returns a previously stashed displaced block.
func (t *Txn) RollbackBlockGet(hash types.Hash) (types.Block, bool, error) {
	data := t.bucket(bucketRollbackBlocks).Get(hash[:])
	if data == nil {
		return types.Block{}, false, nil
	}
	var block types.Block
	if err := msgpack.Unmarshal(data, &block); err != nil {
		return types.Block{}, false, err
	}
	return block, true, nil
}

// RollbackBlockDel drops a stashed block.
func (t *Txn) RollbackBlockDel(hash types.Hash) error {
	return t.bucket(bucketRollbackBlocks).Delete(hash[:])
}

// --- receivable_info ------------------------------------------------------

// ReceivablePut records a pending incoming value awaiting a RECEIVE block.
func (t *Txn) ReceivablePut(destination types.Account, source types.Hash, info ReceivableInfo) error {
	return put(t.bucket(bucketReceivableInfo), receivableKey(destination, source), info)
}

// ReceivableGet looks up one pending receivable by destination and source hash.
func (t *Txn) ReceivableGet(destination types.Account, source types.Hash) (ReceivableInfo, bool, error) {
	data := t.bucket(bucketReceivableInfo).Get(receivableKey(destination, source))
	if data == nil {
		return ReceivableInfo{}, false, nil
	}
	var info ReceivableInfo
	if err := msgpack.Unmarshal(data, &info); err != nil {
		return ReceivableInfo{}, false, err
	}
	return info, true, nil
}

// ReceivableDel removes a receivable once it has been consumed by a RECEIVE
// block.
func (t *Txn) ReceivableDel(destination types.Account, source types.Hash) error {
	return t.bucket(bucketReceivableInfo).Delete(receivableKey(destination, source))
}

// ReceivableIterate walks every pending receivable for destination in
// source-hash order (spec.md §4.8). No package in the core calls it; the
// sync machine only sends "receivables" queries and stores the replies.
func (t *Txn) ReceivableIterate(destination types.Account, fn func(source types.Hash, info ReceivableInfo) error) error {
	c := t.bucket(bucketReceivableInfo).Cursor()
	prefix := destination[:]
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var info ReceivableInfo
		if err := msgpack.Unmarshal(v, &info); err != nil {
			return err
		}
		var source types.Hash
		copy(source[:], k[32:])
		if err := fn(source, info); err != nil {
			return err
		}
	}
	return nil
}

// --- wallet_info / wallet_account_info / selected_wallet_id -------------

// WalletInfoPut stores a wallet's persisted envelope state.
func (t *Txn) WalletInfoPut(walletID uint32, info WalletInfo) error {
	return put(t.bucket(bucketWalletInfo), walletIDKey(walletID), info)
}

// WalletInfoGet returns one wallet's persisted state.
func (t *Txn) WalletInfoGet(walletID uint32) (WalletInfo, bool, error) {
	data := t.bucket(bucketWalletInfo).Get(walletIDKey(walletID))
	if data == nil {
		return WalletInfo{}, false, nil
	}
	var info WalletInfo
	if err := msgpack.Unmarshal(data, &info); err != nil {
		return WalletInfo{}, false, err
	}
	return info, true, nil
}

// WalletInfoIterate walks every persisted wallet in ascending id order.
func (t *Txn) WalletInfoIterate(fn func(walletID uint32, info WalletInfo) error) error {
	c := t.bucket(bucketWalletInfo).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var info WalletInfo
		if err := msgpack.Unmarshal(v, &info); err != nil {
			return err
		}
		if err := fn(binary.BigEndian.Uint32(k), info); err != nil {
			return err
		}
	}
	return nil
}

// WalletAccountInfoPut stores one account entry of a wallet.
func (t *Txn) WalletAccountInfoPut(walletID, accountID uint32, info WalletAccountInfo) error {
	return put(t.bucket(bucketWalletAccountInfo), walletAccountKey(walletID, accountID), info)
}

// WalletAccountInfoGet returns one account entry of a wallet.
func (t *Txn) WalletAccountInfoGet(walletID, accountID uint32) (WalletAccountInfo, bool, error) {
	data := t.bucket(bucketWalletAccountInfo).Get(walletAccountKey(walletID, accountID))
	if data == nil {
		return WalletAccountInfo{}, false, nil
	}
	var info WalletAccountInfo
	if err := msgpack.Unmarshal(data, &info); err != nil {
		return WalletAccountInfo{}, false, err
	}
	return info, true, nil
}

// WalletAccountInfoIterate walks every account entry belonging to walletID.
func (t *Txn) WalletAccountInfoIterate(walletID uint32, fn func(accountID uint32, info WalletAccountInfo) error) error {
	c := t.bucket(bucketWalletAccountInfo).Cursor()
	prefix := walletIDKey(walletID)
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var info WalletAccountInfo
		if err := msgpack.Unmarshal(v, &info); err != nil {
			return err
		}
		if err := fn(binary.BigEndian.Uint32(k[4:]), info); err != nil {
			return err
		}
	}
	return nil
}

// SelectedWalletIDGet returns the wallet id the user last selected, if any.
func (t *Txn) SelectedWalletIDGet() (uint32, bool, error) {
	data := t.bucket(bucketSelectedWalletID).Get(selectedWalletIDKey)
	if data == nil {
		return 0, false, nil
	}
	return binary.BigEndian.Uint32(data), true, nil
}

// SelectedWalletIDPut records the user's current wallet selection.
func (t *Txn) SelectedWalletIDPut(walletID uint32) error {
	return t.bucket(bucketSelectedWalletID).Put(selectedWalletIDKey, walletIDKey(walletID))
}
