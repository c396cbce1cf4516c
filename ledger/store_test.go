package ledger

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/AltonMatrix/Raicoin/persist"
	"github.com/AltonMatrix/Raicoin/types"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	log := persist.NewLogger(io.Discard, "ledger-test")
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAccountInfoRoundTrip(t *testing.T) {
	store := openTestStore(t)
	account := types.Account{1, 2, 3}

	txn, err := store.Begin(true)
	require.NoError(t, err)
	want := AccountInfo{Type: types.TxBlock, HeadHeight: 4, ConfirmedHeight: InvalidHeight}
	require.NoError(t, txn.AccountInfoPut(account, want))
	require.NoError(t, txn.Commit())

	txn, err = store.Begin(false)
	require.NoError(t, err)
	got, ok, err := txn.AccountInfoGet(account)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
	require.NoError(t, txn.Abort())
}

func TestBlockChainAndSuccessor(t *testing.T) {
	store := openTestStore(t)
	account := types.Account{9}

	open := types.Block{Account: account, Height: 0}
	var openHash types.Hash
	openHash[0] = 0xAA

	second := types.Block{Account: account, Height: 1, Previous: openHash}
	var secondHash types.Hash
	secondHash[0] = 0xBB

	txn, err := store.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.BlockPut(openHash, open))
	require.NoError(t, txn.BlockPut(secondHash, second))
	require.NoError(t, txn.Commit())

	txn, err = store.Begin(false)
	require.NoError(t, err)
	stored, ok, err := txn.BlockGet(openHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, secondHash, stored.Successor)

	byHeight, ok, err := txn.BlockGetByAccountHeight(account, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, secondHash, byHeight)
	require.NoError(t, txn.Abort())
}

func TestReceivableIterate(t *testing.T) {
	store := openTestStore(t)
	dest := types.Account{7}
	src1 := types.Hash{1}
	src2 := types.Hash{2}

	txn, err := store.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.ReceivablePut(dest, src1, ReceivableInfo{Amount: types.AmountFromUint64(10)}))
	require.NoError(t, txn.ReceivablePut(dest, src2, ReceivableInfo{Amount: types.AmountFromUint64(20)}))
	require.NoError(t, txn.Commit())

	txn, err = store.Begin(false)
	require.NoError(t, err)
	var total uint64
	require.NoError(t, txn.ReceivableIterate(dest, func(source types.Hash, info ReceivableInfo) error {
		total += info.Amount.Big().Uint64()
		return nil
	}))
	require.Equal(t, uint64(30), total)
	require.NoError(t, txn.Abort())
}

func TestWalletInfoRoundTrip(t *testing.T) {
	store := openTestStore(t)

	txn, err := store.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.WalletInfoPut(1, WalletInfo{Version: 1, Index: 3}))
	require.NoError(t, txn.SelectedWalletIDPut(1))
	require.NoError(t, txn.Commit())

	txn, err = store.Begin(false)
	require.NoError(t, err)
	info, ok, err := txn.WalletInfoGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(3), info.Index)

	selected, ok, err := txn.SelectedWalletIDGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(1), selected)
	require.NoError(t, txn.Abort())
}
