package wallet

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/otiai10/copy"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/AltonMatrix/Raicoin/ledger"
)

// backupRecord is the already-encrypted persisted state Backup exports —
// the same ciphertext blobs Store writes to the ledger, never plaintext key
// material (spec.md §4.2 backup(), adapted from the teacher's per-seed
// backup-file habit to this core's single-ciphertext-blob model).
type backupRecord struct {
	Info     ledger.WalletInfo
	Accounts map[uint32]ledger.WalletAccountInfo
}

// Backup writes this wallet's encrypted envelope and account entries to a
// file staged under a temp directory, then copies that directory into dir
// via github.com/otiai10/copy (SPEC_FULL.md §4.2). walletID must match the
// id this wallet was stored under (spec.md §4.2 store()).
func (w *Wallet) Backup(walletID uint32, dir string) error {
	w.mu.Lock()
	record := backupRecord{
		Info: ledger.WalletInfo{
			Version:           w.version,
			Index:             w.nextIndex,
			SelectedAccountID: w.selectedAccountID,
			Salt:              w.envelope.Salt,
			KeyCT:             w.envelope.KeyCT,
			SeedCT:            w.seedCT,
			CheckCT:           w.checkCT,
		},
		Accounts: make(map[uint32]ledger.WalletAccountInfo, len(w.accounts)),
	}
	for _, a := range w.accounts {
		record.Accounts[a.ID] = ledger.WalletAccountInfo{
			Index:        a.Index,
			PrivateKeyCT: a.PrivateKeyCT,
			PublicKey:    a.PublicKey,
		}
	}
	w.mu.Unlock()

	data, err := msgpack.Marshal(record)
	if err != nil {
		return err
	}

	staging, err := os.MkdirTemp("", "wallet-backup-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	name := filepath.Join(staging, walletBackupFileName(walletID))
	if err := os.WriteFile(name, data, 0600); err != nil {
		return err
	}
	return copy.Copy(staging, dir)
}

func walletBackupFileName(walletID uint32) string {
	return "wallet-" + strconv.FormatUint(uint64(walletID), 10) + ".bak"
}
