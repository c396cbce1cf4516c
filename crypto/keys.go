// Package crypto wraps the cryptographic primitives the wallet core needs
// around the data types in the types package: hashing, HD key derivation,
// signing, password-based key wrapping, and the password "fan" that keeps
// the plaintext password from living contiguously in memory. The
// primitives themselves (Blake2b, Ed25519, AES, scrypt) are treated as
// external, already-audited collaborators per spec.md §1; this package is
// only the glue that assembles them into the operations spec.md §4.1
// specifies.
package crypto

import (
	"crypto/subtle"
	"encoding/binary"

	"github.com/NebulousLabs/fastrand"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"

	"github.com/AltonMatrix/Raicoin/types"
)

// HashAccountIndex computes Blake2b-256(seed || u32_be(index)), the fixed
// HD derivation hash spec.md §4.2 mandates.
func HashAccountIndex(seed types.RawKey, index uint32) types.RawKey {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Blake2b-256 with no key never errors; a failure here means the
		// standard library itself is broken.
		panic(err)
	}
	h.Write(seed[:])
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	h.Write(idx[:])
	var out types.RawKey
	copy(out[:], h.Sum(nil))
	return out
}

// GeneratePublicKey derives the Ed25519 public key for a raw private seed,
// matching the teacher's GenerateKeyPairDeterministic pattern but taking
// the already-derived 32-byte seed directly (HashAccountIndex supplies it).
func GeneratePublicKey(privateKeySeed types.RawKey) types.Account {
	pub := ed25519.NewKeyFromSeed(privateKeySeed[:]).Public().(ed25519.PublicKey)
	var acc types.Account
	copy(acc[:], pub)
	return acc
}

// Sign signs message with the Ed25519 key derived from privateKeySeed.
func Sign(privateKeySeed types.RawKey, message []byte) types.Signature {
	priv := ed25519.NewKeyFromSeed(privateKeySeed[:])
	sig := ed25519.Sign(priv, message)
	var out types.Signature
	copy(out[:], sig)
	return out
}

// Verify checks an Ed25519 signature over message against the public key
// carried by account.
func Verify(account types.Account, message []byte, sig types.Signature) bool {
	return ed25519.Verify(account[:], message, sig[:])
}

// HashBlake2b256 hashes an arbitrary byte slice, used for the block signing
// hash and for the account_subscribe challenge in sync.
func HashBlake2b256(parts ...[]byte) types.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// RandomRawKey draws 32 bytes from the same cryptographically seeded RNG
// used everywhere else key material is generated (design note in spec.md
// §9): fastrand, the teacher's own RNG choice in crypto/signatures.go.
func RandomRawKey() types.RawKey {
	var k types.RawKey
	fastrand.Read(k[:])
	return k
}

// RandomSalt draws a fresh 256-bit wallet salt.
func RandomSalt() [32]byte {
	var s [32]byte
	fastrand.Read(s[:])
	return s
}

// ChooseRepresentative picks uniformly at random from a non-empty set of
// preconfigured representatives, using the same RNG as key generation
// (spec.md §4.5, §9).
func ChooseRepresentative(candidates []types.Account) types.Account {
	if len(candidates) == 0 {
		panic("crypto: ChooseRepresentative called with an empty candidate set")
	}
	i := fastrand.Intn(len(candidates))
	return candidates[i]
}

// ConstantTimeEqual compares two byte slices without leaking timing
// information about the position of the first mismatch, used by the
// password-check step (spec.md §4.1 "recommended").
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
