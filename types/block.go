package types

import "time"

// BlockType distinguishes the wire/storage schema of a block. Serialization
// beyond the shared header fields below is block-type-specific and out of
// scope for this core (spec.md §1): every block type is carried in the one
// Block struct below.
type BlockType uint8

const (
	TxBlock BlockType = iota + 1
	AdBlock
)

func (t BlockType) String() string {
	switch t {
	case TxBlock:
		return "TX_BLOCK"
	case AdBlock:
		return "AD_BLOCK"
	default:
		return "UNKNOWN_BLOCK"
	}
}

// Opcode identifies the transaction performed by a block.
type Opcode uint8

const (
	Send Opcode = iota + 1
	Receive
	Change
	Credit
)

func (o Opcode) String() string {
	switch o {
	case Send:
		return "SEND"
	case Receive:
		return "RECEIVE"
	case Change:
		return "CHANGE"
	case Credit:
		return "CREDIT"
	default:
		return "UNKNOWN"
	}
}

const (
	// TransactionsPerCredit is the number of operations a single unit of
	// credit buys per calendar day.
	TransactionsPerCredit = 50

	// MaxAccountCredit bounds both the absolute credit balance an account
	// may hold and the delta a single CREDIT block may purchase. Capped at
	// the maximum a uint16 Block.Credit field can represent, not 1<<16
	// itself, so the bound can never be reached and then wrap to zero.
	MaxAccountCredit = 1<<16 - 1

	// MaxTimestampSkew is the maximum amount a block's timestamp may lead
	// the authoring node's clock.
	MaxTimestampSkew = 60 * time.Second
)

// Block is the common header shared by every block type. TxBlock carries
// additional note fields the core never inspects; AdBlock carries none.
type Block struct {
	Type           BlockType `json:"type"`
	Opcode         Opcode    `json:"opcode"`
	Credit         uint16    `json:"credit"`
	Counter        uint32    `json:"counter"`
	Timestamp      int64     `json:"timestamp"`
	Height         uint64    `json:"height"`
	Account        Account   `json:"account"`
	Previous       Hash      `json:"previous"`
	Representative Account   `json:"representative"`
	Balance        Amount    `json:"balance"`

	// Link is context-specific: the destination account for SEND, the
	// source block hash for RECEIVE, and zero otherwise.
	Link      Hash       `json:"link"`
	Note      string     `json:"note,omitempty"`
	Signature Signature  `json:"signature"`

	// hash is the memoized block hash; set by SetHash, which the crypto
	// package calls after hashing, and cleared by ClearHashCache.
	hash *Hash
}

// LinkAccount interprets Link as a destination account (valid only when
// Opcode == Send).
func (b *Block) LinkAccount() Account {
	var a Account
	copy(a[:], b.Link[:])
	return a
}

// SetLinkAccount stores a destination account into Link (SEND blocks).
func (b *Block) SetLinkAccount(a Account) {
	copy(b.Link[:], a[:])
}

// IsOpen reports whether this block opens the account (height 0).
func (b *Block) IsOpen() bool { return b.Height == 0 }

// ClearHashCache invalidates the memoized hash, e.g. after a mutation made
// while constructing the block but before signing.
func (b *Block) ClearHashCache() { b.hash = nil }

// SetHash memoizes a hash computed by a collaborator (crypto.HashBlock);
// kept in the types package only as a cache, never computed here, since
// hashing lives in the crypto package to avoid an import cycle.
func (b *Block) SetHash(h Hash) { b.hash = &h }

// CachedHash returns a previously memoized hash, if any.
func (b *Block) CachedHash() (Hash, bool) {
	if b.hash == nil {
		return Hash{}, false
	}
	return *b.hash, true
}
