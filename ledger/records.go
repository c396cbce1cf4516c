package ledger

import "github.com/AltonMatrix/Raicoin/types"

// InvalidHeight is the sentinel stored in AccountInfo.ConfirmedHeight before
// the remote node has confirmed anything for that account (spec.md §3).
const InvalidHeight = ^uint64(0)

// AccountInfo mirrors the head of one owned account's chain, as tracked
// locally (spec.md §3).
type AccountInfo struct {
	Type            types.BlockType
	HeadHash        types.Hash
	HeadHeight      uint64
	ConfirmedHeight uint64 // InvalidHeight if nothing is confirmed yet
	Forks           uint32
}

// StoredBlock is a block plus the hash of the block that succeeds it in the
// account's chain, if any (spec.md §6: "blocks[hash] -> (block, successor_hash)").
type StoredBlock struct {
	Block     types.Block
	Successor types.Hash // zero if this is the current head
}

// ReceivableInfo is a pending incoming value credited by some remote SEND
// whose RECEIVE counterpart has not yet been authored (spec.md §3).
type ReceivableInfo struct {
	SourceAccount types.Account
	Amount        types.Amount
	Timestamp     int64
}

// WalletInfo is the persisted projection of a Wallet's envelope and HD
// state (spec.md §3), keyed by wallet id in the wallet_info bucket.
type WalletInfo struct {
	Version           uint32
	Index             uint32
	SelectedAccountID uint32
	Salt              [32]byte
	KeyCT             types.Ciphertext
	SeedCT            types.Ciphertext
	CheckCT           types.Ciphertext
}

// WalletAccountInfo is one account entry inside a wallet (spec.md §3).
// Index == types.ImportedAccountIndex marks an ad-hoc imported account.
type WalletAccountInfo struct {
	Index        uint32
	PrivateKeyCT types.Ciphertext
	PublicKey    types.Account
}
