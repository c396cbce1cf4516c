// Package ledger is the local mirror of confirmed chain state: wallet
// envelopes, per-account heads, blocks, and pending receivables, held in a
// single-writer/multi-reader embedded store with explicit commit/abort
// (spec.md §3, §4.3). It plays the role the teacher's persist.BoltDatabase
// plays for siad's consensus set, but keyed to the block-lattice schema
// above instead of to UTXO state.
package ledger

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/AltonMatrix/Raicoin/types"
)

var (
	bucketWalletInfo           = []byte("wallet_info")
	bucketWalletAccountInfo    = []byte("wallet_account_info")
	bucketSelectedWalletID     = []byte("selected_wallet_id")
	bucketAccountInfo          = []byte("account_info")
	bucketBlocks               = []byte("blocks")
	bucketBlocksByAccountHeight = []byte("blocks_by_account_height")
	bucketReceivableInfo       = []byte("receivable_info")
	bucketRollbackBlocks       = []byte("rollback_blocks")

	allBuckets = [][]byte{
		bucketWalletInfo,
		bucketWalletAccountInfo,
		bucketSelectedWalletID,
		bucketAccountInfo,
		bucketBlocks,
		bucketBlocksByAccountHeight,
		bucketReceivableInfo,
		bucketRollbackBlocks,
	}

	selectedWalletIDKey = []byte("selected")
)

// accountInfoCacheSize bounds the in-memory account_info working set the
// way the teacher bounds its consensus-set caches (SPEC_FULL.md §4.3).
const accountInfoCacheSize = 4096

// Store is the on-disk ledger mirror. One Store backs one walletd process.
type Store struct {
	db    *bolt.DB
	cache *lru.Cache
	log   *logrus.Entry
}

// Open creates or opens the ledger database at path, creating every bucket
// on first use the way the teacher's persist package does in its own
// boltdb-backed stores.
func Open(path string, log *logrus.Entry) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	cache, err := lru.New(accountInfoCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, cache: cache, log: log}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Txn is an explicit ledger transaction, matching spec.md §4.3's
// single-writer/multi-reader contract: callers must Commit or Abort every
// transaction they begin.
type Txn struct {
	tx       *bolt.Tx
	store    *Store
	writable bool

	// touchedAccounts records every account_info key this transaction wrote
	// to the cache optimistically, so Abort can evict them — the cache is
	// mutated in place as writes happen (AccountInfoPut/AccountInfoDel), but
	// bbolt only rolls its own state back on Abort, so the cached value must
	// be separately invalidated or it would outlive the discarded write
	// (spec.md §4.3 "aborts fully discard uncommitted writes").
	touchedAccounts map[types.Account]struct{}
}

// Begin starts a new transaction. A writable transaction excludes all
// other writers until it is committed or aborted; read-only transactions
// may run concurrently with each other and with a single writer.
func (s *Store) Begin(writable bool) (*Txn, error) {
	tx, err := s.db.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &Txn{tx: tx, store: s, writable: writable}, nil
}

// Commit finalizes the transaction's writes.
func (t *Txn) Commit() error {
	return t.tx.Commit()
}

// Abort discards the transaction without writing anything, evicting any
// account_info cache entries this transaction optimistically wrote so a
// subsequent read reloads the still-committed value from bbolt instead of
// the discarded one.
func (t *Txn) Abort() error {
	for account := range t.touchedAccounts {
		t.store.cache.Remove(account)
	}
	return t.tx.Rollback()
}

// touchAccount records that account's cache entry was optimistically
// mutated by this (still-open) transaction.
func (t *Txn) touchAccount(account types.Account) {
	if t.touchedAccounts == nil {
		t.touchedAccounts = make(map[types.Account]struct{})
	}
	t.touchedAccounts[account] = struct{}{}
}

func (t *Txn) bucket(name []byte) *bolt.Bucket {
	return t.tx.Bucket(name)
}
