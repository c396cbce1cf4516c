package core

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AltonMatrix/Raicoin/ledger"
	"github.com/AltonMatrix/Raicoin/observer"
	"github.com/AltonMatrix/Raicoin/persist"
	"github.com/AltonMatrix/Raicoin/queue"
	"github.com/AltonMatrix/Raicoin/types"
	"github.com/vmihailenco/msgpack/v5"
)

func TestLoadFromLedgerRestoresWalletsAndSelection(t *testing.T) {
	log := persist.NewLogger(io.Discard, "core-test")
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	store, err := ledger.Open(dbPath, log)
	require.NoError(t, err)

	q := queue.New(log)
	obs := observer.New(observer.GoroutineExecutor{})
	cfg := Config{PreconfiguredReps: []types.Account{{1}}}
	w, err := New(store, q, obs, cfg, cfg.FixedCreditPrice(), log)
	require.NoError(t, err)

	id1, err := w.CreateWallet("alpha")
	require.NoError(t, err)
	id2, err := w.CreateWallet("beta")
	require.NoError(t, err)
	require.NoError(t, w.SelectWallet(id2))
	require.NoError(t, store.Close())

	store2, err := ledger.Open(dbPath, log)
	require.NoError(t, err)
	t.Cleanup(func() { store2.Close() })

	w2, err := New(store2, q, obs, cfg, cfg.FixedCreditPrice(), log)
	require.NoError(t, err)
	require.NoError(t, w2.LoadFromLedger())

	wallets, selected, err := w2.snapshot()
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	require.Contains(t, wallets, id1)
	require.Contains(t, wallets, id2)
	require.Equal(t, id2, selected)

	ww1, err := w2.walletByID(id1)
	require.NoError(t, err)
	require.Len(t, ww1.Accounts(), 1)
}

func TestBackupWalletProducesLoadableFile(t *testing.T) {
	w, _ := newTestWallets(t)

	wallets, _, err := w.snapshot()
	require.NoError(t, err)
	var id uint32
	for wid := range wallets {
		id = wid
	}

	dir := t.TempDir()
	require.NoError(t, w.BackupWallet(id, dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	var record struct {
		Info     ledger.WalletInfo
		Accounts map[uint32]ledger.WalletAccountInfo
	}
	require.NoError(t, msgpack.Unmarshal(data, &record))
	require.Len(t, record.Accounts, 1)
}

func TestStatusSnapshotReportsLockState(t *testing.T) {
	w, account := newTestWallets(t)

	status := w.StatusSnapshot()
	require.Len(t, status, 1)
	require.True(t, status[0].Unlocked)
	require.Len(t, status[0].Accounts, 1)
	require.Equal(t, account, status[0].Accounts[0].PublicKey)

	ww, err := w.walletByID(status[0].ID)
	require.NoError(t, err)
	ww.Lock()

	status = w.StatusSnapshot()
	require.False(t, status[0].Unlocked)
}

func TestCloseDrainsInFlightAuthoring(t *testing.T) {
	w, account := newTestWallets(t)

	done := make(chan struct{})
	w.AccountChange(account, types.Account{2}, func(err error, block *types.Block) {
		close(done)
	})
	<-done

	require.NoError(t, w.Close())
	require.Error(t, w.tg.Add(), "Add must fail once Close has stopped the thread group")
}
