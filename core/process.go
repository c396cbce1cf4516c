package core

import (
	"github.com/AltonMatrix/Raicoin/crypto"
	"github.com/AltonMatrix/Raicoin/ledger"
	"github.com/AltonMatrix/Raicoin/observer"
	"github.com/AltonMatrix/Raicoin/queue"
	"github.com/AltonMatrix/Raicoin/types"
)

// ProcessBlock applies an inbound or newly authored block to the local
// ledger mirror (spec.md §4.6 process_block(block, confirmed)). Blocks for
// accounts this instance does not own are silently dropped.
func (w *Wallets) ProcessBlock(block types.Block, confirmed bool) error {
	if err := w.tg.Add(); err != nil {
		return err
	}
	defer w.tg.Done()

	if !w.isMyAccount(block.Account) {
		return nil
	}
	txn, err := w.store.Begin(true)
	if err != nil {
		return types.WrapError(types.TransactionBegin, err)
	}
	if err := w.applyLocallyInTxn(txn, block, confirmed); err != nil {
		txn.Abort()
		return err
	}
	return txn.Commit()
}

func blockHash(b types.Block) types.Hash {
	if h, ok := b.CachedHash(); ok {
		return h
	}
	return crypto.HashBlock(b)
}

// applyLocallyInTxn implements spec.md §4.6's branch table, shared by
// inbound network blocks (ProcessBlock) and blocks this instance just
// authored for itself (author.go's authorInTxn, confirmed=false).
// w.markReceived / w.unmarkReceived take the Wallets mutex, a lock disjoint
// from the ledger transaction, so calling them here is safe.
func (w *Wallets) applyLocallyInTxn(txn *ledger.Txn, block types.Block, confirmed bool) error {
	info, hasInfo, err := txn.AccountInfoGet(block.Account)
	if err != nil {
		return types.WrapError(types.LedgerAccountInfoGet, err)
	}
	hash := blockHash(block)

	switch {
	case !hasInfo:
		if block.Height != 0 {
			return nil // drop: can't open at a non-zero height
		}
		confirmedHeight := ledger.InvalidHeight
		if confirmed {
			confirmedHeight = 0
		}
		if err := txn.AccountInfoPut(block.Account, ledger.AccountInfo{
			Type: block.Type, HeadHash: hash, HeadHeight: 0, ConfirmedHeight: confirmedHeight,
		}); err != nil {
			return err
		}
		if err := txn.BlockPut(hash, block); err != nil {
			return err
		}
		w.onReceiveSideEffects(txn, block)
		w.obs.Block.Notify(observer.BlockEvent{Account: block.Account, Hash: hash, Rollback: false})
		return nil

	case block.Height == info.HeadHeight+1:
		if block.Previous == info.HeadHash {
			if err := txn.BlockPut(hash, block); err != nil {
				return err
			}
			info.HeadHash = hash
			info.HeadHeight = block.Height
			if confirmed {
				info.ConfirmedHeight = block.Height
			}
			if err := txn.AccountInfoPut(block.Account, info); err != nil {
				return err
			}
			w.onReceiveSideEffects(txn, block)
			w.obs.Block.Notify(observer.BlockEvent{Account: block.Account, Hash: hash, Rollback: false})
			return nil
		}
		// Fork at head: only acted on when this notification is confirmed and
		// the existing head sits exactly at confirmed_height — an unconfirmed
		// fork, or a confirmed one where confirmed_height isn't exactly
		// head_height, must leave confirmed_height untouched
		// (wallet.cpp:1786-1795). Roll it back by one; leave the local head in
		// place (spec.md §9 "two-step convergence").
		if confirmed && info.ConfirmedHeight == info.HeadHeight {
			if info.HeadHeight == 0 {
				info.ConfirmedHeight = ledger.InvalidHeight
			} else {
				info.ConfirmedHeight = info.HeadHeight - 1
			}
			return txn.AccountInfoPut(block.Account, info)
		}
		return nil

	case block.Height > info.HeadHeight+1:
		return nil // gap: the sync loop backfills

	default: // block.Height <= info.HeadHeight
		if !confirmed {
			return nil
		}
		existingHash, ok, err := txn.BlockGetByAccountHeight(block.Account, block.Height)
		if err != nil {
			return types.WrapError(types.LedgerBlockGet, err)
		}
		if ok && existingHash == hash {
			if info.ConfirmedHeight == ledger.InvalidHeight || block.Height > info.ConfirmedHeight {
				info.ConfirmedHeight = block.Height
				return txn.AccountInfoPut(block.Account, info)
			}
			return nil
		}
		// Confirmed fork at a lower height: roll back until the divergent
		// height is clear, then re-enqueue this block for a second pass
		// (spec.md §4.6 "Behind" branch).
		for {
			cur, _, err := txn.AccountInfoGet(block.Account)
			if err != nil {
				return types.WrapError(types.LedgerAccountInfoGet, err)
			}
			if cur.HeadHeight < block.Height {
				break
			}
			if err := w.popHeadInTxn(txn, block.Account); err != nil {
				return err
			}
			if _, stillThere, err := txn.AccountInfoGet(block.Account); err != nil {
				return types.WrapError(types.LedgerAccountInfoGet, err)
			} else if !stillThere {
				break
			}
		}
		w.q.Enqueue(queue.Urgent, func() {
			_ = w.ProcessBlock(block, confirmed)
		})
		return nil
	}
}

func (w *Wallets) onReceiveSideEffects(txn *ledger.Txn, block types.Block) {
	if block.Opcode != types.Receive {
		return
	}
	_ = txn.ReceivableDel(block.Account, block.Link)
	w.markReceived(block.Link)
}

// popHeadInTxn removes the current head of account's chain: archives it to
// the rollback table, deletes it from the main block table, clears its
// predecessor's successor pointer, and updates or deletes AccountInfo
// (spec.md §4.6 rollback path).
func (w *Wallets) popHeadInTxn(txn *ledger.Txn, account types.Account) error {
	info, ok, err := txn.AccountInfoGet(account)
	if err != nil {
		return types.WrapError(types.LedgerAccountInfoGet, err)
	}
	if !ok {
		return nil
	}
	stored, ok, err := txn.BlockGet(info.HeadHash)
	if err != nil {
		return types.WrapError(types.LedgerBlockGet, err)
	}
	if !ok {
		return nil
	}
	block := stored.Block

	if err := txn.RollbackBlockPut(info.HeadHash, block); err != nil {
		return err
	}
	if err := txn.BlockDel(info.HeadHash, account, block.Height); err != nil {
		return err
	}
	if !block.IsOpen() {
		if err := txn.ClearSuccessor(block.Previous); err != nil {
			return err
		}
	}

	if block.Height == 0 {
		if err := txn.AccountInfoDel(account); err != nil {
			return err
		}
	} else {
		info.HeadHash = block.Previous
		info.HeadHeight = block.Height - 1
		if info.ConfirmedHeight != ledger.InvalidHeight && info.ConfirmedHeight > info.HeadHeight {
			info.ConfirmedHeight = info.HeadHeight
		}
		if err := txn.AccountInfoPut(account, info); err != nil {
			return err
		}
	}

	if block.Opcode == types.Receive {
		w.unmarkReceived(block.Link)
	}
	w.obs.Block.Notify(observer.BlockEvent{Account: account, Hash: info.HeadHash, Rollback: true})
	return nil
}

// ProcessBlockRollback pops blocks from account's chain until hash is no
// longer present, a no-op if hash was never locally stored (spec.md §4.6,
// §8 invariant 8).
func (w *Wallets) ProcessBlockRollback(block types.Block) error {
	if err := w.tg.Add(); err != nil {
		return err
	}
	defer w.tg.Done()

	if !w.isMyAccount(block.Account) {
		return nil
	}
	targetHash := blockHash(block)
	txn, err := w.store.Begin(true)
	if err != nil {
		return types.WrapError(types.TransactionBegin, err)
	}
	for {
		exists, err := txn.BlockExists(targetHash)
		if err != nil {
			txn.Abort()
			return types.WrapError(types.LedgerBlockGet, err)
		}
		if !exists {
			break
		}
		if err := w.popHeadInTxn(txn, block.Account); err != nil {
			txn.Abort()
			return err
		}
	}
	return txn.Commit()
}
