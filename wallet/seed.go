package wallet

import (
	"github.com/AltonMatrix/Raicoin/crypto"
	"github.com/AltonMatrix/Raicoin/types"
)

// createAccountLocked derives account at w.nextIndex from seed, wraps its
// private key under masterKey, appends it, and advances nextIndex. Callers
// must already hold w.mu (or, as in newWallet, be the sole owner of an
// as-yet-unshared Wallet).
func (w *Wallet) createAccountLocked(seed types.RawKey, masterKey types.RawKey) (accountEntry, error) {
	privateKey := crypto.HashAccountIndex(seed, w.nextIndex)
	publicKey := crypto.GeneratePublicKey(privateKey)
	privateKeyCT, err := crypto.Wrap(privateKey, masterKey, w.envelope.Salt)
	if err != nil {
		return accountEntry{}, err
	}
	entry := accountEntry{
		ID:           w.nextAccountID(),
		Index:        w.nextIndex,
		PublicKey:    publicKey,
		PrivateKeyCT: privateKeyCT,
	}
	w.nextIndex++
	w.accounts = append(w.accounts, entry)
	if w.selectedAccountID == 0 {
		w.selectedAccountID = entry.ID
	}
	return entry, nil
}

// nextAccountID computes max(existing ids)+1, or 1 if the wallet has no
// accounts yet (spec.md §3: "a new id is max(existing)+1").
func (w *Wallet) nextAccountID() uint32 {
	var max uint32
	for _, a := range w.accounts {
		if a.ID > max {
			max = a.ID
		}
	}
	return max + 1
}

// CreateAccount HD-derives the next account from the seed at the wallet's
// current index and appends it (spec.md §4.2 create_account()). Requires
// the wallet to be unlocked.
func (w *Wallet) CreateAccount() (uint32, types.Account, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	seed, err := w.unlockedSeed()
	if err != nil {
		return 0, types.Account{}, err
	}
	masterKey, err := w.envelope.MasterKey()
	if err != nil {
		return 0, types.Account{}, types.NewError(types.WalletLocked)
	}
	entry, err := w.createAccountLocked(seed, masterKey)
	if err != nil {
		return 0, types.Account{}, err
	}
	return entry.ID, entry.PublicKey, nil
}

// ImportAccount stores an ad-hoc keypair not derived from the wallet's
// seed (spec.md §4.2 import_account()). Rejects a public key already
// present in the wallet with WalletAccountExists. Requires unlocked.
func (w *Wallet) ImportAccount(privateKey types.RawKey) (uint32, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.envelope.ValidPassword(w.checkCT) {
		return 0, types.NewError(types.WalletLocked)
	}
	masterKey, err := w.envelope.MasterKey()
	if err != nil {
		return 0, types.NewError(types.WalletLocked)
	}

	publicKey := crypto.GeneratePublicKey(privateKey)
	for _, a := range w.accounts {
		if a.PublicKey == publicKey {
			return 0, types.NewError(types.WalletAccountExists)
		}
	}

	privateKeyCT, err := crypto.Wrap(privateKey, masterKey, w.envelope.Salt)
	if err != nil {
		return 0, err
	}
	entry := accountEntry{
		ID:           w.nextAccountID(),
		Index:        types.ImportedAccountIndex,
		PublicKey:    publicKey,
		PrivateKeyCT: privateKeyCT,
	}
	w.accounts = append(w.accounts, entry)
	if w.selectedAccountID == 0 {
		w.selectedAccountID = entry.ID
	}
	return entry.ID, nil
}
