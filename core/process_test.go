package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AltonMatrix/Raicoin/types"
)

func TestProcessBlockOpensNewAccount(t *testing.T) {
	w, account := newTestWallets(t)

	open := types.Block{Account: account, Type: types.TxBlock, Height: 0, Balance: types.AmountFromUint64(100)}
	require.NoError(t, w.ProcessBlock(open, true))

	txn, err := w.store.Begin(false)
	require.NoError(t, err)
	defer txn.Abort()
	info, ok, err := txn.AccountInfoGet(account)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(0), info.HeadHeight)
	require.Equal(t, uint64(0), info.ConfirmedHeight)
}

func TestProcessBlockExactSuccessorExtendsChain(t *testing.T) {
	w, account := newTestWallets(t)

	open := types.Block{Account: account, Type: types.TxBlock, Height: 0}
	require.NoError(t, w.ProcessBlock(open, false))
	openHash := blockHash(open)

	next := types.Block{Account: account, Type: types.TxBlock, Height: 1, Previous: openHash}
	require.NoError(t, w.ProcessBlock(next, false))

	txn, err := w.store.Begin(false)
	require.NoError(t, err)
	defer txn.Abort()
	info, ok, err := txn.AccountInfoGet(account)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), info.HeadHeight)
	require.Equal(t, blockHash(next), info.HeadHash)
}

func TestProcessBlockGapIsDropped(t *testing.T) {
	w, account := newTestWallets(t)

	open := types.Block{Account: account, Type: types.TxBlock, Height: 0}
	require.NoError(t, w.ProcessBlock(open, false))

	var bogusPrevious types.Hash
	bogusPrevious[0] = 0xFF
	ahead := types.Block{Account: account, Type: types.TxBlock, Height: 5, Previous: bogusPrevious}
	require.NoError(t, w.ProcessBlock(ahead, false))

	txn, err := w.store.Begin(false)
	require.NoError(t, err)
	defer txn.Abort()
	info, ok, err := txn.AccountInfoGet(account)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(0), info.HeadHeight, "a block arriving ahead of the head must not be applied")
}

func TestProcessBlockForkAtHeadRollsConfirmedHeightBack(t *testing.T) {
	w, account := newTestWallets(t)

	open := types.Block{Account: account, Type: types.TxBlock, Height: 0}
	require.NoError(t, w.ProcessBlock(open, true))
	openHash := blockHash(open)

	head := types.Block{Account: account, Type: types.TxBlock, Height: 1, Previous: openHash, Note: "local"}
	require.NoError(t, w.ProcessBlock(head, true))

	var otherPrevious types.Hash
	otherPrevious[0] = 0xAB
	divergent := types.Block{Account: account, Type: types.TxBlock, Height: 2, Previous: otherPrevious, Note: "remote"}
	require.NoError(t, w.ProcessBlock(divergent, true))

	txn, err := w.store.Begin(false)
	require.NoError(t, err)
	defer txn.Abort()
	info, ok, err := txn.AccountInfoGet(account)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), info.HeadHeight, "local head is left in place on a head fork")
	require.Equal(t, uint64(0), info.ConfirmedHeight, "confirmed height rolls back by one on a head fork")
}

func TestProcessBlockConfirmedBehindRollsBackAndReenqueues(t *testing.T) {
	w, account := newTestWallets(t)

	open := types.Block{Account: account, Type: types.TxBlock, Height: 0}
	require.NoError(t, w.ProcessBlock(open, true))
	openHash := blockHash(open)

	wrong := types.Block{Account: account, Type: types.TxBlock, Height: 1, Previous: openHash, Note: "wrong"}
	require.NoError(t, w.ProcessBlock(wrong, true))

	correct := types.Block{Account: account, Type: types.TxBlock, Height: 1, Previous: openHash, Note: "correct"}
	require.NoError(t, w.ProcessBlock(correct, true))

	require.Eventually(t, func() bool {
		txn, err := w.store.Begin(false)
		if err != nil {
			return false
		}
		defer txn.Abort()
		info, ok, err := txn.AccountInfoGet(account)
		if err != nil || !ok {
			return false
		}
		return info.HeadHash == blockHash(correct) && info.ConfirmedHeight == 1
	}, time.Second, time.Millisecond)
}

func TestProcessBlockRollbackPopsHeads(t *testing.T) {
	w, account := newTestWallets(t)

	open := types.Block{Account: account, Type: types.TxBlock, Height: 0}
	require.NoError(t, w.ProcessBlock(open, true))
	openHash := blockHash(open)

	next := types.Block{Account: account, Type: types.TxBlock, Height: 1, Previous: openHash}
	require.NoError(t, w.ProcessBlock(next, true))

	require.NoError(t, w.ProcessBlockRollback(next))

	txn, err := w.store.Begin(false)
	require.NoError(t, err)
	defer txn.Abort()
	info, ok, err := txn.AccountInfoGet(account)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(0), info.HeadHeight)

	_, archived, err := txn.RollbackBlockGet(blockHash(next))
	require.NoError(t, err)
	require.True(t, archived, "popped blocks are archived to rollback_blocks")
}
