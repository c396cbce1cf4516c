package core

import "github.com/AltonMatrix/Raicoin/types"

// ServerConfig locates the remote node (spec.md §6 configuration).
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	Path string `toml:"path"`
}

// Config is the shape spec.md §6 requires the core to accept: a plain Go
// struct the core never parses from a file itself — config parsing is an
// ambient cmd-level concern (SPEC_FULL.md §6).
type Config struct {
	Server            ServerConfig    `toml:"server"`
	PreconfiguredReps []types.Account `toml:"preconfigured_reps"`
	BlockType         types.BlockType `toml:"block_type"`

	// MinServerVersion gates every account_info response that reports a
	// server_version (SPEC_FULL.md §4.8); empty means no constraint.
	MinServerVersion string `toml:"min_server_version"`

	// LedgerPath is where the bbolt-backed ledger mirror lives on disk.
	LedgerPath string `toml:"ledger_path"`

	// CreditPrice is the fixed per-unit credit price, in raw Amount units,
	// the daemon's CreditPriceFunc charges regardless of block timestamp
	// (spec.md §1/§13 leaves credit pricing to the embedder). Zero means
	// credits are free.
	CreditPrice uint64 `toml:"credit_price"`
}

// FixedCreditPrice returns a CreditPriceFunc pricing every unit of credit
// at c.CreditPrice regardless of timestamp, the only pricing policy this
// core ships.
func (c Config) FixedCreditPrice() CreditPriceFunc {
	price := types.AmountFromUint64(c.CreditPrice)
	return func(_ int64) types.Amount { return price }
}

// Validate enforces the one fatal precondition spec.md §6 names: an empty
// preconfigured_reps list aborts wallet-system construction (spec.md §4.5,
// §7 "unrecoverable startup conditions").
func (c Config) Validate() error {
	if len(c.PreconfiguredReps) == 0 {
		return types.NewError(types.ConfigNoPreconfiguredReps)
	}
	return nil
}
