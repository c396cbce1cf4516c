// Package wallet implements one seed-protected wallet: its encrypted
// envelope, its ordered list of HD-derived or imported accounts, and the
// operations spec.md §4.2 defines over them. A Wallets collection (the
// core package) owns many Wallets and is responsible for everything that
// spans more than one of them.
package wallet

import (
	"sync"

	"github.com/AltonMatrix/Raicoin/crypto"
	"github.com/AltonMatrix/Raicoin/types"
)

// accountEntry is one row of a wallet's account list (spec.md §3
// WalletAccountInfo, paired with its stable id within the wallet).
type accountEntry struct {
	ID           uint32
	Index        uint32 // types.ImportedAccountIndex for ad-hoc imports
	PublicKey    types.Account
	PrivateKeyCT types.Ciphertext
}

// Wallet is one seed plus its derived/imported accounts, behind a password
// envelope. All exported methods take w.mu, matching spec.md §4.2's "all
// operations take the wallet's mutex" and §5's "no I/O within a held
// wallet lock" — ledger persistence is always the caller's job, performed
// with the values these methods return, never from inside this package.
type Wallet struct {
	mu sync.Mutex

	envelope *crypto.Envelope
	checkCT  types.Ciphertext
	seedCT   types.Ciphertext

	version           uint32
	nextIndex         uint32
	selectedAccountID uint32
	accounts          []accountEntry
}

const walletVersion = 1

// unlockedSeed returns the plaintext seed, failing WalletLocked if the
// envelope's current password candidate is wrong.
func (w *Wallet) unlockedSeed() (types.RawKey, error) {
	if !w.envelope.ValidPassword(w.checkCT) {
		return types.RawKey{}, types.NewError(types.WalletLocked)
	}
	masterKey, err := w.envelope.MasterKey()
	if err != nil {
		return types.RawKey{}, types.NewError(types.WalletLocked)
	}
	return crypto.Unwrap(w.seedCT, masterKey, w.envelope.Salt)
}

// Seed returns the plaintext seed; requires the wallet to be unlocked
// (spec.md §4.2 seed()).
func (w *Wallet) Seed() (types.RawKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unlockedSeed()
}

// Lock zeroes the in-memory password fan (spec.md §4.2 lock()).
func (w *Wallet) Lock() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.envelope.Lock()
}

// EmptyPassword reports whether the wallet currently accepts the empty
// string as its password (spec.md §4.2 empty_password()) — used by callers
// that want to warn a user who never set a password. Unlike
// AttemptPassword, this never disturbs whether the wallet is unlocked.
func (w *Wallet) EmptyPassword() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	ok, err := w.envelope.CheckPassword("", w.checkCT)
	return err == nil && ok
}

// IsMyAccount reports whether pk belongs to one of this wallet's accounts
// (spec.md §4.2 is_my_account()).
func (w *Wallet) IsMyAccount(pk types.Account) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, a := range w.accounts {
		if a.PublicKey == pk {
			return true
		}
	}
	return false
}

// SelectedAccountID returns the currently selected account id, 0 if none
// has been selected yet (spec.md §3).
func (w *Wallet) SelectedAccountID() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selectedAccountID
}
