package wallet

import (
	"github.com/AltonMatrix/Raicoin/crypto"
	"github.com/AltonMatrix/Raicoin/types"
)

// AccountSummary is one row of Accounts()'s result (spec.md §4.2
// accounts(): "list<(id, public_key, is_adhoc)>").
type AccountSummary struct {
	ID        uint32
	PublicKey types.Account
	IsAdHoc   bool
}

// Accounts returns every account in insertion order (spec.md §8 invariant
// 6: "accounts() order is insertion order; ids strictly increase").
func (w *Wallet) Accounts() []AccountSummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]AccountSummary, len(w.accounts))
	for i, a := range w.accounts {
		out[i] = AccountSummary{
			ID:        a.ID,
			PublicKey: a.PublicKey,
			IsAdHoc:   a.Index == types.ImportedAccountIndex,
		}
	}
	return out
}

// SelectAccount sets the selected account id; the id must already exist
// in this wallet (spec.md §4.2 select_account()).
func (w *Wallet) SelectAccount(id uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.findLocked(id); !ok {
		return types.NewError(types.WalletNotSelectedAccount)
	}
	w.selectedAccountID = id
	return nil
}

// findLocked returns the account entry for id; callers must hold w.mu.
func (w *Wallet) findLocked(id uint32) (accountEntry, bool) {
	for _, a := range w.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return accountEntry{}, false
}

// PrivateKey unwraps and returns the plaintext private key for an owned
// account (spec.md §4.2 private_key()). O(n) scan over the account list,
// matching the spec's stated complexity. Requires unlocked.
func (w *Wallet) PrivateKey(account types.Account) (types.RawKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.envelope.ValidPassword(w.checkCT) {
		return types.RawKey{}, types.NewError(types.WalletLocked)
	}
	masterKey, err := w.envelope.MasterKey()
	if err != nil {
		return types.RawKey{}, types.NewError(types.WalletLocked)
	}
	for _, a := range w.accounts {
		if a.PublicKey == account {
			return crypto.Unwrap(a.PrivateKeyCT, masterKey, w.envelope.Salt)
		}
	}
	return types.RawKey{}, types.NewError(types.WalletAccountGet)
}

// Sign signs message with the private key belonging to account (spec.md
// §4.2 sign()). Requires unlocked.
func (w *Wallet) Sign(account types.Account, message []byte) (types.Signature, error) {
	privateKey, err := w.PrivateKey(account)
	if err != nil {
		return types.Signature{}, err
	}
	return crypto.Sign(privateKey, message), nil
}
