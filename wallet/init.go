package wallet

import (
	"github.com/AltonMatrix/Raicoin/crypto"
	"github.com/AltonMatrix/Raicoin/types"
)

// Create generates a brand-new wallet: random salt, random master key,
// random seed, and a first HD-derived account (spec.md §4.2 create()).
func Create(password string) (*Wallet, error) {
	return newWallet(password, crypto.RandomRawKey())
}

// FromSeed behaves like Create but uses the caller-supplied seed instead of
// a random one (spec.md §4.2 from_seed()), still deriving account #0.
func FromSeed(password string, seed types.RawKey) (*Wallet, error) {
	return newWallet(password, seed)
}

func newWallet(password string, seed types.RawKey) (*Wallet, error) {
	envelope, masterKey, err := crypto.NewEnvelope(password)
	if err != nil {
		return nil, err
	}
	seedCT, err := crypto.Wrap(seed, masterKey, envelope.Salt)
	if err != nil {
		return nil, err
	}
	checkCT, err := crypto.EncryptCheck(masterKey, envelope.Salt)
	if err != nil {
		return nil, err
	}
	w := &Wallet{
		envelope: envelope,
		checkCT:  checkCT,
		seedCT:   seedCT,
		version:  walletVersion,
	}
	if _, err := w.createAccountLocked(seed, masterKey); err != nil {
		return nil, err
	}
	return w, nil
}

// Open reconstructs a wallet from a persisted WalletInfo-shaped record.
// Accounts are loaded separately via LoadAccount (spec.md §4.2 open()).
func Open(version uint32, salt [32]byte, keyCT, seedCT, checkCT types.Ciphertext, nextIndex, selectedAccountID uint32) *Wallet {
	return &Wallet{
		envelope:          crypto.OpenEnvelope(salt, keyCT),
		checkCT:           checkCT,
		seedCT:            seedCT,
		version:           version,
		nextIndex:         nextIndex,
		selectedAccountID: selectedAccountID,
	}
}

// LoadAccount appends a previously persisted account entry to a wallet
// opened via Open, in the order they must be replayed (spec.md §4.2 open(),
// "accounts loaded separately").
func (w *Wallet) LoadAccount(id, index uint32, publicKey types.Account, privateKeyCT types.Ciphertext) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accounts = append(w.accounts, accountEntry{
		ID:           id,
		Index:        index,
		PublicKey:    publicKey,
		PrivateKeyCT: privateKeyCT,
	})
}
