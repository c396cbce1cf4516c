package core

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AltonMatrix/Raicoin/ledger"
	"github.com/AltonMatrix/Raicoin/observer"
	"github.com/AltonMatrix/Raicoin/persist"
	"github.com/AltonMatrix/Raicoin/queue"
	"github.com/AltonMatrix/Raicoin/types"
)

// newTestWallets builds a fully wired Wallets over a temp-directory ledger,
// with one created wallet and its first account unlocked and loaded, ready
// for authoring/process tests.
func newTestWallets(t *testing.T) (*Wallets, types.Account) {
	t.Helper()
	log := persist.NewLogger(io.Discard, "core-test")

	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	q := queue.New(log)
	go q.Run()
	t.Cleanup(q.Stop)

	obs := observer.New(observer.GoroutineExecutor{})

	cfg := Config{PreconfiguredReps: []types.Account{{1}}, BlockType: types.TxBlock}
	w, err := New(store, q, obs, cfg, cfg.FixedCreditPrice(), log)
	require.NoError(t, err)

	walletID, err := w.CreateWallet("alpha")
	require.NoError(t, err)
	ww, err := w.walletByID(walletID)
	require.NoError(t, err)
	accounts := ww.Accounts()
	require.Len(t, accounts, 1)

	return w, accounts[0].PublicKey
}
