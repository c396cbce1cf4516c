package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"golang.org/x/crypto/scrypt"

	"github.com/AltonMatrix/Raicoin/types"
)

const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	// fanShares is the number of XOR shares the in-memory password is
	// split across (spec.md §4.1, §9 "password fan").
	fanShares = 4
)

var errBadEncryptionKey = errors.New("crypto: ciphertext does not decrypt under the given key")

// DeriveKEK derives a password-based key-encryption-key. Identical
// (password, salt) always yields the same 32-byte key (spec.md §4.1).
func DeriveKEK(password string, salt []byte) (types.RawKey, error) {
	dk, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, types.RawKeySize)
	if err != nil {
		return types.RawKey{}, err
	}
	var kek types.RawKey
	copy(kek[:], dk)
	return kek, nil
}

// ivFromSalt returns the first 128 bits of salt, the IV spec.md §4.1
// mandates for every wrap/unwrap call under that salt.
func ivFromSalt(salt [32]byte) []byte {
	iv := make([]byte, aes.BlockSize)
	copy(iv, salt[:aes.BlockSize])
	return iv
}

// Wrap encrypts a 32-byte key under wrappingKey using AES-256-CBC with an
// IV derived from salt. The cipher mode itself is an out-of-scope external
// primitive per spec.md §1; see DESIGN.md for why stdlib AES fills that one
// role instead of a pack third-party cipher.
func Wrap(plaintext types.RawKey, wrappingKey types.RawKey, salt [32]byte) (types.Ciphertext, error) {
	block, err := aes.NewCipher(wrappingKey[:])
	if err != nil {
		return nil, err
	}
	ct := make([]byte, types.RawKeySize)
	cipher.NewCBCEncrypter(block, ivFromSalt(salt)).CryptBlocks(ct, plaintext[:])
	return types.Ciphertext(ct), nil
}

// Unwrap decrypts a ciphertext produced by Wrap under the same key and salt.
func Unwrap(ct types.Ciphertext, wrappingKey types.RawKey, salt [32]byte) (types.RawKey, error) {
	if len(ct) != types.RawKeySize {
		return types.RawKey{}, errors.New("crypto: malformed ciphertext length")
	}
	block, err := aes.NewCipher(wrappingKey[:])
	if err != nil {
		return types.RawKey{}, err
	}
	var out types.RawKey
	cipher.NewCBCDecrypter(block, ivFromSalt(salt)).CryptBlocks(out[:], ct)
	return out, nil
}

// EncryptCheck encrypts an all-zero plaintext under masterKey, producing the
// password-verification oracle (spec.md §3 "check_ct").
func EncryptCheck(masterKey types.RawKey, salt [32]byte) (types.Ciphertext, error) {
	return Wrap(types.RawKey{}, masterKey, salt)
}

// Fan holds a password (or any 32-byte key) split into XOR shares, so that
// no contiguous copy of it sits in memory between Set and Get calls
// (spec.md §3, §9). It is not a secrecy boundary against an attacker who
// can read process memory at leisure — only against a single snapshot.
type Fan struct {
	shares [fanShares]types.RawKey
}

// NewFan constructs a Fan holding the zero key (the locked state).
func NewFan() *Fan {
	f := &Fan{}
	f.Set(types.RawKey{})
	return f
}

// Set regenerates the shares such that their XOR reconstructs k.
func (f *Fan) Set(k types.RawKey) {
	var acc types.RawKey
	for i := 0; i < fanShares-1; i++ {
		f.shares[i] = RandomRawKey()
		xorInto(&acc, f.shares[i])
	}
	var last types.RawKey
	xorInto(&last, k)
	xorInto(&last, acc)
	f.shares[fanShares-1] = last
}

// Get reconstructs the held key by XORing all shares together.
func (f *Fan) Get() types.RawKey {
	var acc types.RawKey
	for _, s := range f.shares {
		xorInto(&acc, s)
	}
	return acc
}

// Lock is Set(zero key).
func (f *Fan) Lock() {
	f.Set(types.RawKey{})
}

func xorInto(dst *types.RawKey, src types.RawKey) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// Envelope is the full password-protection state for one wallet: the salt,
// the wrapped master key, and the check ciphertext, plus the in-memory
// password fan. It implements spec.md §4.1 end to end.
type Envelope struct {
	Salt  [32]byte
	KeyCT types.Ciphertext
	fan   *Fan
}

// NewEnvelope creates a fresh envelope: random salt, random master key
// wrapped under the derived KEK for password, and returns the master key so
// the caller can wrap the seed and compute the check ciphertext with it.
func NewEnvelope(password string) (*Envelope, types.RawKey, error) {
	e := &Envelope{Salt: RandomSalt(), fan: NewFan()}
	kek, err := DeriveKEK(password, e.Salt[:])
	if err != nil {
		return nil, types.RawKey{}, err
	}
	e.fan.Set(kek)
	masterKey := RandomRawKey()
	ct, err := Wrap(masterKey, kek, e.Salt)
	if err != nil {
		return nil, types.RawKey{}, err
	}
	e.KeyCT = ct
	return e, masterKey, nil
}

// OpenEnvelope reconstructs an envelope from persisted fields; it starts
// locked (the fan holds the zero key) until AttemptPassword succeeds.
func OpenEnvelope(salt [32]byte, keyCT types.Ciphertext) *Envelope {
	return &Envelope{Salt: salt, KeyCT: keyCT, fan: NewFan()}
}

// AttemptPassword derives the KEK for password, loads it into the fan, and
// reports whether it is the correct password (spec.md §4.2
// attempt_password).
func (e *Envelope) AttemptPassword(password string, checkCT types.Ciphertext) (bool, error) {
	kek, err := DeriveKEK(password, e.Salt[:])
	if err != nil {
		return false, err
	}
	e.fan.Set(kek)
	return e.ValidPassword(checkCT), nil
}

// CheckPassword reports whether password is correct without disturbing the
// envelope's currently loaded fan state — unlike AttemptPassword, this never
// changes whether the wallet is unlocked. Used for advisory checks such as
// "is the password still the empty string" (spec.md §4.2 empty_password()).
func (e *Envelope) CheckPassword(password string, checkCT types.Ciphertext) (bool, error) {
	kek, err := DeriveKEK(password, e.Salt[:])
	if err != nil {
		return false, err
	}
	masterKey, err := Unwrap(e.KeyCT, kek, e.Salt)
	if err != nil {
		return false, err
	}
	candidate, err := EncryptCheck(masterKey, e.Salt)
	if err != nil {
		return false, err
	}
	return ConstantTimeEqual(candidate, checkCT), nil
}

// ValidPassword reports whether the currently loaded KEK unwraps the master
// key into a key that reproduces checkCT.
func (e *Envelope) ValidPassword(checkCT types.Ciphertext) bool {
	masterKey, err := e.masterKey()
	if err != nil {
		return false
	}
	candidate, err := EncryptCheck(masterKey, e.Salt)
	if err != nil {
		return false
	}
	return ConstantTimeEqual(candidate, checkCT)
}

// masterKey returns the current master key candidate. It fails only when the
// loaded KEK is all zeros (the wallet is locked); a wrong password yields a
// wrong key with no error. Callers must check ValidPassword first when they
// need a sharp locked/unlocked boundary; masterKey itself just unwraps
// whatever KEK is currently loaded.
func (e *Envelope) masterKey() (types.RawKey, error) {
	kek := e.fan.Get()
	if kek == (types.RawKey{}) {
		return types.RawKey{}, errBadEncryptionKey
	}
	return Unwrap(e.KeyCT, kek, e.Salt)
}

// MasterKey exposes the unwrapped master key for wrapping/unwrapping seed
// and per-account private keys. Callers must have already verified
// ValidPassword.
func (e *Envelope) MasterKey() (types.RawKey, error) {
	return e.masterKey()
}

// ChangePassword re-wraps the master key under a freshly derived KEK for
// newPassword, leaving seed/check ciphertexts untouched (spec.md §4.2).
func (e *Envelope) ChangePassword(newPassword string) error {
	masterKey, err := e.masterKey()
	if err != nil {
		return err
	}
	kek, err := DeriveKEK(newPassword, e.Salt[:])
	if err != nil {
		return err
	}
	ct, err := Wrap(masterKey, kek, e.Salt)
	if err != nil {
		return err
	}
	e.fan.Set(kek)
	e.KeyCT = ct
	return nil
}

// Lock zeroes the fan; ValidPassword becomes false until the next
// AttemptPassword.
func (e *Envelope) Lock() {
	e.fan.Lock()
}
