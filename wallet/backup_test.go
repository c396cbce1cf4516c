package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestBackupRoundTripsEncryptedState(t *testing.T) {
	w, err := Create("alpha")
	require.NoError(t, err)
	_, err = w.AttemptPassword("alpha")
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, w.Backup(7, dir))

	name := filepath.Join(dir, walletBackupFileName(7))
	data, err := os.ReadFile(name)
	require.NoError(t, err)

	var record backupRecord
	require.NoError(t, msgpack.Unmarshal(data, &record))
	require.Len(t, record.Accounts, 1)

	account := w.accounts[0]
	require.Equal(t, account.PublicKey, record.Accounts[account.ID].PublicKey)
	require.Equal(t, account.PrivateKeyCT, record.Accounts[account.ID].PrivateKeyCT)
	require.Equal(t, w.seedCT, record.Info.SeedCT)
}
