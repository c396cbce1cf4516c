// Package types defines the wire- and storage-level value types shared by
// every other package in the wallet core: accounts, hashes, raw key
// material, amounts and the block header fields common to every block type.
package types

import (
	"encoding/hex"
	"errors"
	"math/big"
)

const (
	// AccountSize is the size in bytes of an account identifier (an
	// Ed25519 public key).
	AccountSize = 32

	// HashSize is the size in bytes of a block hash (Blake2b-256).
	HashSize = 32

	// RawKeySize is the size in bytes of a raw (unwrapped) key.
	RawKeySize = 32

	// SignatureSize is the size in bytes of an Ed25519 signature.
	SignatureSize = 64

	// ImportedAccountIndex marks a wallet account entry as an ad-hoc
	// imported account rather than an HD-derived one (spec.md §3:
	// "index = MAX_U32").
	ImportedAccountIndex = ^uint32(0)
)

type (
	// Account is a 256-bit public key identifying a chain of blocks. The
	// zero value is the "unset" sentinel used throughout the wallet.
	Account [AccountSize]byte

	// Hash is a 256-bit Blake2b digest, used for block hashes and as the
	// key of the received-set.
	Hash [HashSize]byte

	// RawKey is 256 bits of key material that exists only transiently in
	// memory; it is never persisted in this form.
	RawKey [RawKeySize]byte

	// Ciphertext is the encrypted-at-rest form of a RawKey or of the
	// check value. It carries no embedded IV: the IV is always
	// re-derived from the owning wallet's salt.
	Ciphertext []byte

	// Signature is an Ed25519 signature over a block's signing hash.
	Signature [SignatureSize]byte
)

// IsZero reports whether the account equals the unset sentinel.
func (a Account) IsZero() bool { return a == Account{} }

func (a Account) String() string { return hex.EncodeToString(a[:]) }

func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

func (s Signature) String() string { return hex.EncodeToString(s[:]) }

// MarshalJSON encodes the account as lowercase hex, matching spec.md §6
// ("accounts are the project's address encoding"; hex stands in for the
// project-specific checksum address format, which is out of scope here).
func (a Account) MarshalJSON() ([]byte, error) {
	return marshalHex(a[:])
}

func (a *Account) UnmarshalJSON(data []byte) error {
	return unmarshalHex(data, a[:])
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return marshalHex(h[:])
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	return unmarshalHex(data, h[:])
}

func (s Signature) MarshalJSON() ([]byte, error) {
	return marshalHex(s[:])
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	return unmarshalHex(data, s[:])
}

func marshalHex(b []byte) ([]byte, error) {
	out := make([]byte, len(b)*2+2)
	out[0] = '"'
	hex.Encode(out[1:], b)
	out[len(out)-1] = '"'
	return out, nil
}

func unmarshalHex(data []byte, dst []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("types: expected a hex string")
	}
	data = data[1 : len(data)-1]
	decoded := make([]byte, hex.DecodedLen(len(data)))
	n, err := hex.Decode(decoded, data)
	if err != nil {
		return err
	}
	if n != len(dst) {
		return errors.New("types: unexpected hex length")
	}
	copy(dst, decoded)
	return nil
}

// Amount is an arbitrary-precision non-negative quantity of the chain's
// native unit, backed by math/big the way a currency type in a real ledger
// needs to be (balances routinely exceed 64 bits once raw units are used).
type Amount struct {
	i big.Int
}

// NewAmount wraps an arbitrary-precision integer as an Amount.
func NewAmount(i *big.Int) Amount {
	var a Amount
	a.i.Set(i)
	return a
}

// AmountFromUint64 constructs an Amount from a uint64.
func AmountFromUint64(v uint64) Amount {
	var a Amount
	a.i.SetUint64(v)
	return a
}

func (a Amount) Big() *big.Int { return new(big.Int).Set(&a.i) }

func (a Amount) Add(b Amount) Amount {
	var out Amount
	out.i.Add(&a.i, &b.i)
	return out
}

func (a Amount) Sub(b Amount) (Amount, bool) {
	var out Amount
	if a.i.Cmp(&b.i) < 0 {
		return Amount{}, false
	}
	out.i.Sub(&a.i, &b.i)
	return out, true
}

func (a Amount) Cmp(b Amount) int { return a.i.Cmp(&b.i) }

func (a Amount) Mul64(n uint64) Amount {
	var out Amount
	out.i.Mul(&a.i, new(big.Int).SetUint64(n))
	return out
}

func (a Amount) IsZero() bool { return a.i.Sign() == 0 }

func (a Amount) String() string { return a.i.String() }

// MarshalJSON emits amounts as decimal strings, per spec.md §6.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.i.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("types: amount must be a decimal string")
	}
	_, ok := a.i.SetString(string(data[1:len(data)-1]), 10)
	if !ok {
		return errors.New("types: invalid decimal amount")
	}
	return nil
}

// MarshalBinary encodes the amount as a decimal string. The ledger's msgpack
// codec uses it, since Amount has no exported fields of its own.
func (a Amount) MarshalBinary() ([]byte, error) {
	return []byte(a.i.String()), nil
}

// UnmarshalBinary decodes an amount written by MarshalBinary.
func (a *Amount) UnmarshalBinary(data []byte) error {
	if _, ok := a.i.SetString(string(data), 10); !ok {
		return errors.New("types: invalid decimal amount")
	}
	return nil
}
