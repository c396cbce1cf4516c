package wallet

import (
	"github.com/AltonMatrix/Raicoin/ledger"
	"github.com/AltonMatrix/Raicoin/types"
)

// ledgerTxn is the subset of *ledger.Txn the wallet package depends on, so
// its own tests can exercise Store/StoreInfo/StoreAccount against a fake.
type ledgerTxn interface {
	WalletInfoPut(walletID uint32, info ledger.WalletInfo) error
	WalletAccountInfoPut(walletID, accountID uint32, info ledger.WalletAccountInfo) error
}

// StoreInfo persists the wallet's envelope/index state (spec.md §4.2
// store_info()).
func (w *Wallet) StoreInfo(txn ledgerTxn, walletID uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return txn.WalletInfoPut(walletID, ledger.WalletInfo{
		Version:           w.version,
		Index:             w.nextIndex,
		SelectedAccountID: w.selectedAccountID,
		Salt:              w.envelope.Salt,
		KeyCT:             w.envelope.KeyCT,
		SeedCT:            w.seedCT,
		CheckCT:           w.checkCT,
	})
}

// StoreAccount persists one account entry of the wallet (spec.md §4.2
// store_account()).
func (w *Wallet) StoreAccount(txn ledgerTxn, walletID, accountID uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.findLocked(accountID)
	if !ok {
		return types.NewError(types.WalletAccountGet)
	}
	return txn.WalletAccountInfoPut(walletID, accountID, ledger.WalletAccountInfo{
		Index:        entry.Index,
		PrivateKeyCT: entry.PrivateKeyCT,
		PublicKey:    entry.PublicKey,
	})
}

// Store persists the wallet's info and every account entry in one pass
// (spec.md §4.2 store()), the snapshot taken at first creation so a new
// wallet and its first account are written atomically by the caller's
// single ledger transaction.
func (w *Wallet) Store(txn ledgerTxn, walletID uint32) error {
	if err := w.StoreInfo(txn, walletID); err != nil {
		return err
	}
	w.mu.Lock()
	ids := make([]uint32, len(w.accounts))
	for i, a := range w.accounts {
		ids[i] = a.ID
	}
	w.mu.Unlock()
	for _, id := range ids {
		if err := w.StoreAccount(txn, walletID, id); err != nil {
			return err
		}
	}
	return nil
}
