// Package core assembles the pieces every other package provides — wallet
// envelopes, the ledger mirror, the action queue, the WebSocket runner, and
// the observer registries — into the Wallets collection spec.md §3/§5
// describes, and implements the block authoring pipeline, local block
// application, and sync state machine on top of it.
package core

import (
	"sync"

	"github.com/NebulousLabs/threadgroup"
	"github.com/mitchellh/copystructure"
	"github.com/sirupsen/logrus"

	"github.com/AltonMatrix/Raicoin/ledger"
	"github.com/AltonMatrix/Raicoin/observer"
	"github.com/AltonMatrix/Raicoin/queue"
	"github.com/AltonMatrix/Raicoin/types"
	"github.com/AltonMatrix/Raicoin/wallet"
	"github.com/AltonMatrix/Raicoin/wsclient"
)

// CreditPriceFunc prices one unit of transaction credit at a given block
// timestamp. Credit pricing is an external policy per spec.md §1/§13
// ("does not provide a fee market") — the core only consumes it.
type CreditPriceFunc func(timestamp int64) types.Amount

// Wallets is the top-level collection spec.md §3 describes: every loaded
// wallet, the selected one, the cross-wallet received-set, and the action
// queue every authoring and sync operation is serialized through.
type Wallets struct {
	mu                sync.RWMutex
	wallets           map[uint32]*wallet.Wallet
	selectedWalletID  uint32
	received          map[types.Hash]struct{}

	store         *ledger.Store
	q             *queue.Queue
	obs           *observer.Observers
	ws            *wsclient.Runner
	config        Config
	price         CreditPriceFunc
	log           *logrus.Entry
	serverRefused bool

	// tg gates every authoring and network-triggered entrypoint so Close
	// can drain in-flight work before the ledger and queue underneath it
	// are torn down (grounded on the teacher's modules/wallet.Wallet.tg).
	tg threadgroup.ThreadGroup
}

// New constructs an empty Wallets collection wired to its collaborators.
// Callers must call LoadFromLedger before serving any requests.
func New(store *ledger.Store, q *queue.Queue, obs *observer.Observers, config Config, price CreditPriceFunc, log *logrus.Entry) (*Wallets, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Wallets{
		wallets:  make(map[uint32]*wallet.Wallet),
		received: make(map[types.Hash]struct{}),
		store:    store,
		q:        q,
		obs:      obs,
		config:   config,
		price:    price,
		log:      log,
	}, nil
}

// LoadFromLedger populates the collection from every wallet and account
// persisted in the ledger, restoring the user's last selection (spec.md §4.2
// load(), SPEC_FULL.md §6 startup sequence). Called once at daemon startup,
// before AttachRunner or any authoring call.
func (w *Wallets) LoadFromLedger() error {
	txn, err := w.store.Begin(false)
	if err != nil {
		return types.WrapError(types.TransactionBegin, err)
	}
	defer txn.Abort()

	loaded := make(map[uint32]*wallet.Wallet)
	if err := txn.WalletInfoIterate(func(walletID uint32, info ledger.WalletInfo) error {
		ww := wallet.Open(info.Version, info.Salt, info.KeyCT, info.SeedCT, info.CheckCT, info.Index, info.SelectedAccountID)
		if err := txn.WalletAccountInfoIterate(walletID, func(accountID uint32, acc ledger.WalletAccountInfo) error {
			ww.LoadAccount(accountID, acc.Index, acc.PublicKey, acc.PrivateKeyCT)
			return nil
		}); err != nil {
			return err
		}
		loaded[walletID] = ww
		return nil
	}); err != nil {
		return err
	}

	selected, _, err := txn.SelectedWalletIDGet()
	if err != nil {
		return err
	}

	received, err := scanReceivedSet(txn)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.wallets = loaded
	w.selectedWalletID = selected
	w.received = received
	w.mu.Unlock()
	return nil
}

// scanReceivedSet rebuilds the cross-wallet received set by walking every
// owned account's chain back from its head to its open block, collecting
// every RECEIVE block's Link (spec.md §3 "initialized at startup by
// scanning every owned account's chain for RECEIVE blocks", original
// wallet.cpp InitReceived_).
func scanReceivedSet(txn *ledger.Txn) (map[types.Hash]struct{}, error) {
	received := make(map[types.Hash]struct{})
	err := txn.AccountInfoIterate(func(_ types.Account, info ledger.AccountInfo) error {
		hash := info.HeadHash
		for {
			stored, ok, err := txn.BlockGet(hash)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if stored.Block.Opcode == types.Receive {
				received[stored.Block.Link] = struct{}{}
			}
			if stored.Block.IsOpen() {
				break
			}
			hash = stored.Block.Previous
		}
		return nil
	})
	return received, err
}

// Close blocks new authoring and sync work from starting and waits for any
// already in flight to finish, so the daemon can then safely stop the
// queue and close the ledger underneath it.
func (w *Wallets) Close() error {
	return w.tg.Stop()
}

// AttachRunner wires the WebSocket runner used to publish blocks and
// subscription requests (set after construction since the runner itself
// needs callbacks that close over this Wallets).
func (w *Wallets) AttachRunner(ws *wsclient.Runner) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ws = ws
}

// snapshot deep-copies the wallet-list container metadata — ids and
// selection state only, never key material — via copystructure, so long
// operations that iterate every wallet can release the collection lock
// first (spec.md §5 "All long-running operations copy the wallet list
// first and operate on the copy"; SPEC_FULL.md §4.12).
func (w *Wallets) snapshot() (map[uint32]*wallet.Wallet, uint32, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ids := make([]uint32, 0, len(w.wallets))
	for id := range w.wallets {
		ids = append(ids, id)
	}
	copied, err := copystructure.Copy(ids)
	if err != nil {
		return nil, 0, err
	}
	idsCopy := copied.([]uint32)

	out := make(map[uint32]*wallet.Wallet, len(idsCopy))
	for _, id := range idsCopy {
		out[id] = w.wallets[id] // the *Wallet pointer itself, never copied: key material stays owned by the original
	}
	return out, w.selectedWalletID, nil
}

// CreateWallet creates and persists a brand-new wallet with its first
// account, selects it if no wallet is currently selected, and returns its
// id (spec.md §3 "New wallet ids are max+1").
func (w *Wallets) CreateWallet(password string) (uint32, error) {
	nw, err := wallet.Create(password)
	if err != nil {
		return 0, err
	}
	if _, err := nw.AttemptPassword(password); err != nil {
		return 0, err
	}
	return w.insertAndStore(nw)
}

// ImportWalletSeed creates a wallet from a caller-supplied seed (spec.md
// §4.2 from_seed()).
func (w *Wallets) ImportWalletSeed(password string, seed types.RawKey) (uint32, error) {
	nw, err := wallet.FromSeed(password, seed)
	if err != nil {
		return 0, err
	}
	if _, err := nw.AttemptPassword(password); err != nil {
		return 0, err
	}
	return w.insertAndStore(nw)
}

func (w *Wallets) insertAndStore(nw *wallet.Wallet) (uint32, error) {
	w.mu.Lock()
	id := w.nextWalletIDLocked()
	w.wallets[id] = nw
	if w.selectedWalletID == 0 {
		w.selectedWalletID = id
	}
	selected := w.selectedWalletID
	w.mu.Unlock()

	txn, err := w.store.Begin(true)
	if err != nil {
		return 0, types.WrapError(types.TransactionBegin, err)
	}
	if err := nw.Store(txn, id); err != nil {
		txn.Abort()
		return 0, err
	}
	if err := txn.SelectedWalletIDPut(selected); err != nil {
		txn.Abort()
		return 0, err
	}
	if err := txn.Commit(); err != nil {
		return 0, err
	}

	w.obs.SelectedWallet.Notify(selected)
	w.q.Enqueue(queue.Normal, w.RunSyncCycle)
	return id, nil
}

func (w *Wallets) nextWalletIDLocked() uint32 {
	var max uint32
	for id := range w.wallets {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// SelectWallet changes the selected wallet id; it must already be loaded.
func (w *Wallets) SelectWallet(id uint32) error {
	w.mu.Lock()
	if _, ok := w.wallets[id]; !ok {
		w.mu.Unlock()
		return types.NewError(types.WalletGet)
	}
	w.selectedWalletID = id
	w.mu.Unlock()

	txn, err := w.store.Begin(true)
	if err != nil {
		return types.WrapError(types.TransactionBegin, err)
	}
	if err := txn.SelectedWalletIDPut(id); err != nil {
		txn.Abort()
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	w.obs.SelectedWallet.Notify(id)
	return nil
}

// LockWallet wipes id's decrypted key material from memory and notifies the
// lock observer (spec.md §4.2 lock(), §4.10 lock event class).
func (w *Wallets) LockWallet(id uint32) error {
	ww, err := w.walletByID(id)
	if err != nil {
		return err
	}
	ww.Lock()
	w.obs.Lock.Notify(id)
	return nil
}

// ChangePassword re-wraps id's envelope under newPassword, persists the new
// ciphertexts, and notifies the password-set observer (spec.md §4.2
// change_password(), §4.10 password-set event class).
func (w *Wallets) ChangePassword(id uint32, newPassword string) error {
	ww, err := w.walletByID(id)
	if err != nil {
		return err
	}
	if err := ww.ChangePassword(newPassword); err != nil {
		return err
	}

	txn, err := w.store.Begin(true)
	if err != nil {
		return types.WrapError(types.TransactionBegin, err)
	}
	if err := ww.StoreInfo(txn, id); err != nil {
		txn.Abort()
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	w.obs.PasswordSet.Notify(id)
	return nil
}

// SelectAccount changes walletID's selected account, persists the new
// selection, and notifies the selected-account observer (spec.md §4.2
// select_account(), §4.10 selected-account event class).
func (w *Wallets) SelectAccount(walletID, accountID uint32) error {
	ww, err := w.walletByID(walletID)
	if err != nil {
		return err
	}
	if err := ww.SelectAccount(accountID); err != nil {
		return err
	}

	txn, err := w.store.Begin(true)
	if err != nil {
		return types.WrapError(types.TransactionBegin, err)
	}
	if err := ww.StoreInfo(txn, walletID); err != nil {
		txn.Abort()
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	w.obs.SelectedAccount.Notify(accountID)
	return nil
}

// walletByID returns a loaded wallet, failing WalletGet if it is unknown.
func (w *Wallets) walletByID(id uint32) (*wallet.Wallet, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ww, ok := w.wallets[id]
	if !ok {
		return nil, types.NewError(types.WalletGet)
	}
	return ww, nil
}

// findOwner returns the wallet owning account, consulting a snapshot so
// the scan never holds the collection lock during a wallet call.
func (w *Wallets) findOwner(account types.Account) (*wallet.Wallet, error) {
	wallets, _, err := w.snapshot()
	if err != nil {
		return nil, err
	}
	for _, ww := range wallets {
		if ww.IsMyAccount(account) {
			return ww, nil
		}
	}
	return nil, types.NewError(types.WalletAccountGet)
}

// isMyAccount reports whether pk belongs to any loaded wallet, consulting
// a snapshot so the scan never holds the collection lock during wallet
// calls (spec.md §5 "shared-resource policy").
func (w *Wallets) isMyAccount(pk types.Account) bool {
	wallets, _, err := w.snapshot()
	if err != nil {
		return false
	}
	for _, ww := range wallets {
		if ww.IsMyAccount(pk) {
			return true
		}
	}
	return false
}

// markReceived records hash in the cross-wallet received set (spec.md §3
// "Received set"), guarded by the collection mutex per spec.md §5.
func (w *Wallets) markReceived(hash types.Hash) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.received[hash] = struct{}{}
}

func (w *Wallets) unmarkReceived(hash types.Hash) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.received, hash)
}

func (w *Wallets) isReceived(hash types.Hash) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.received[hash]
	return ok
}

// refuseServer latches a connected-but-too-old server so no further
// subscribe/sync traffic is sent until the next reconnect (SPEC_FULL.md
// §4.8).
func (w *Wallets) refuseServer() {
	w.mu.Lock()
	w.serverRefused = true
	w.mu.Unlock()
}

func (w *Wallets) serverIsRefused() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.serverRefused
}

// WalletStatusEntry is one wallet's row of StatusSnapshot, the read-only
// view the control-surface HTTP endpoint (SPEC_FULL.md §4.11) renders.
type WalletStatusEntry struct {
	ID       uint32
	Unlocked bool
	Accounts []AccountStatusEntry
}

// AccountStatusEntry is one account's row within WalletStatusEntry.
type AccountStatusEntry struct {
	PublicKey types.Account
	IsAdHoc   bool
}

// BackupWallet exports one wallet's encrypted persisted record to dir
// (spec.md §4.2 backup(), SPEC_FULL.md §4.2).
func (w *Wallets) BackupWallet(id uint32, dir string) error {
	ww, err := w.walletByID(id)
	if err != nil {
		return err
	}
	return ww.Backup(id, dir)
}

// StatusSnapshot reports every loaded wallet's lock state and accounts,
// consulting a snapshot so the scan never holds the collection lock during
// wallet calls.
func (w *Wallets) StatusSnapshot() []WalletStatusEntry {
	wallets, _, err := w.snapshot()
	if err != nil {
		return nil
	}
	out := make([]WalletStatusEntry, 0, len(wallets))
	for id, ww := range wallets {
		accounts := ww.Accounts()
		_, unlockErr := ww.Seed()
		entry := WalletStatusEntry{ID: id, Unlocked: unlockErr == nil, Accounts: make([]AccountStatusEntry, len(accounts))}
		for i, a := range accounts {
			entry.Accounts[i] = AccountStatusEntry{PublicKey: a.PublicKey, IsAdHoc: a.IsAdHoc}
		}
		out = append(out, entry)
	}
	return out
}
