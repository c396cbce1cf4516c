package crypto

import (
	"encoding/binary"

	"github.com/AltonMatrix/Raicoin/types"
)

// HashBlock computes the canonical Blake2b-256 hash over a block's signed
// fields (everything except the signature itself), matching the layout
// original_source/rai/blocks.cpp hashes before signing. Lives here rather
// than as a types.Block method to avoid types importing crypto.
func HashBlock(b types.Block) types.Hash {
	var buf []byte
	buf = append(buf, byte(b.Type), byte(b.Opcode))
	buf = appendUint16(buf, b.Credit)
	buf = appendUint32(buf, b.Counter)
	buf = appendUint64(buf, uint64(b.Timestamp))
	buf = appendUint64(buf, b.Height)
	buf = append(buf, b.Account[:]...)
	buf = append(buf, b.Previous[:]...)
	buf = append(buf, b.Representative[:]...)
	balance := b.Balance.Big().Bytes()
	buf = appendUint32(buf, uint32(len(balance)))
	buf = append(buf, balance...)
	buf = append(buf, b.Link[:]...)
	buf = append(buf, []byte(b.Note)...)
	return HashBlake2b256(buf)
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// SignBlock computes HashBlock, signs it with privateKey, and sets both the
// signature and the memoized hash on the block.
func SignBlock(b *types.Block, privateKey types.RawKey) {
	hash := HashBlock(*b)
	b.Signature = Sign(privateKey, hash[:])
	b.SetHash(hash)
}

// VerifyBlock reports whether the block's signature is valid for its
// account (spec.md §8 invariant 11).
func VerifyBlock(b types.Block) bool {
	hash := HashBlock(b)
	return Verify(b.Account, hash[:], b.Signature)
}
