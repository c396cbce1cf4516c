package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AltonMatrix/Raicoin/ledger"
	"github.com/AltonMatrix/Raicoin/types"
)

func authorSync(t *testing.T, f func(cb AuthorCallback)) (*types.Block, error) {
	t.Helper()
	done := make(chan struct{})
	var gotErr error
	var gotBlock *types.Block
	f(func(err error, block *types.Block) {
		gotErr = err
		gotBlock = block
		close(done)
	})
	<-done
	return gotBlock, gotErr
}

func TestAccountReceiveOpensAccountFromReceivable(t *testing.T) {
	w, account := newTestWallets(t)

	var source types.Hash
	source[0] = 0x55
	txn, err := w.store.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.ReceivablePut(account, source, ledger.ReceivableInfo{
		Amount:    types.AmountFromUint64(1000),
		Timestamp: time.Now().Unix(),
	}))
	require.NoError(t, txn.Commit())

	block, err := authorSync(t, func(cb AuthorCallback) { w.AccountReceive(account, source, cb) })
	require.NoError(t, err)
	require.Equal(t, types.Receive, block.Opcode)
	require.Equal(t, uint64(0), block.Height)

	checkTxn, err := w.store.Begin(false)
	require.NoError(t, err)
	defer checkTxn.Abort()
	_, ok, err := checkTxn.ReceivableGet(account, source)
	require.NoError(t, err)
	require.False(t, ok, "the consumed receivable must be removed")
}

func TestAccountReceiveFailsWithoutReceivable(t *testing.T) {
	w, account := newTestWallets(t)

	var source types.Hash
	source[0] = 0x66

	_, err := authorSync(t, func(cb AuthorCallback) { w.AccountReceive(account, source, cb) })
	require.Error(t, err)
}

func TestAccountSendRequiresExistingAccount(t *testing.T) {
	w, account := newTestWallets(t)

	_, err := authorSync(t, func(cb AuthorCallback) {
		w.AccountSend(account, types.Account{9}, types.AmountFromUint64(1), cb)
	})
	require.Error(t, err, "an account with no local head cannot author a SEND")
}

func TestAccountSendThenChangeThenCredit(t *testing.T) {
	w, account := newTestWallets(t)
	openAccount(t, w, account, 1000)

	block, err := authorSync(t, func(cb AuthorCallback) {
		w.AccountSend(account, types.Account{9}, types.AmountFromUint64(100), cb)
	})
	require.NoError(t, err)
	require.Equal(t, types.Send, block.Opcode)
	require.Equal(t, uint64(900), block.Balance.Big().Uint64())

	block, err = authorSync(t, func(cb AuthorCallback) {
		w.AccountChange(account, types.Account{2}, cb)
	})
	require.NoError(t, err)
	require.Equal(t, types.Change, block.Opcode)
	require.Equal(t, types.Account{2}, block.Representative)

	block, err = authorSync(t, func(cb AuthorCallback) {
		w.AccountCredit(account, 5, cb)
	})
	require.NoError(t, err)
	require.Equal(t, types.Credit, block.Opcode)
	require.Equal(t, uint16(6), block.Credit)
}

func TestAccountSendInsufficientBalanceFails(t *testing.T) {
	w, account := newTestWallets(t)
	openAccount(t, w, account, 50)

	_, err := authorSync(t, func(cb AuthorCallback) {
		w.AccountSend(account, types.Account{9}, types.AmountFromUint64(1000), cb)
	})
	require.Error(t, err)
}

// openAccount gives account an unconfirmed head with the given balance by
// authoring a RECEIVE against a freshly planted receivable. The default test
// config carries CreditPrice 0, so the opening credit costs nothing.
func openAccount(t *testing.T, w *Wallets, account types.Account, balance uint64) {
	t.Helper()
	var source types.Hash
	source[0] = 0x77
	txn, err := w.store.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.ReceivablePut(account, source, ledger.ReceivableInfo{
		Amount:    types.AmountFromUint64(balance),
		Timestamp: time.Now().Unix(),
	}))
	require.NoError(t, txn.Commit())

	_, err = authorSync(t, func(cb AuthorCallback) { w.AccountReceive(account, source, cb) })
	require.NoError(t, err)
}
