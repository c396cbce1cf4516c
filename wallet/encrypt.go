package wallet

import "github.com/AltonMatrix/Raicoin/types"

// AttemptPassword derives the KEK for password, loads it into the
// envelope's fan, and reports whether it unlocks the wallet (spec.md §4.2
// attempt_password()).
func (w *Wallet) AttemptPassword(password string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.envelope.AttemptPassword(password, w.checkCT)
}

// ChangePassword re-wraps the master key under a freshly derived KEK,
// leaving the seed and check ciphertexts untouched (spec.md §4.2
// change_password()). Requires the wallet to already be unlocked.
func (w *Wallet) ChangePassword(newPassword string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.envelope.ValidPassword(w.checkCT) {
		return types.NewError(types.WalletLocked)
	}
	return w.envelope.ChangePassword(newPassword)
}
