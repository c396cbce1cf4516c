package core

import (
	"encoding/json"
	"time"

	"github.com/AltonMatrix/Raicoin/build"
	"github.com/AltonMatrix/Raicoin/crypto"
	"github.com/AltonMatrix/Raicoin/ledger"
	"github.com/AltonMatrix/Raicoin/observer"
	"github.com/AltonMatrix/Raicoin/queue"
	"github.com/AltonMatrix/Raicoin/types"
)

// syncCycleInterval is the periodic full resync period spec.md §4.8 names.
const syncCycleInterval = 300 * time.Second

// receivablesPerQuery caps one outbound receivables() request, per spec.md
// §4.8 ("count=1000").
const receivablesPerQuery = 1000

// OnConnected re-subscribes every owned account and runs a full sync cycle,
// the behavior spec.md §4.9 requires on CONNECTED. Wire this as the
// wsclient.Runner's onConnected callback.
func (w *Wallets) OnConnected() {
	if err := w.tg.Add(); err != nil {
		return
	}
	defer w.tg.Done()

	w.mu.Lock()
	w.serverRefused = false
	w.mu.Unlock()
	w.q.Enqueue(queue.Urgent, func() {
		for _, account := range w.ownedAccounts() {
			w.sendSubscribe(account)
		}
		w.RunSyncCycle()
	})
}

// OnMessage dispatches one inbound WebSocket frame by its ack/notify tag
// (spec.md §4.8's table). Wire this as the wsclient.Runner's onMessage
// callback.
func (w *Wallets) OnMessage(raw json.RawMessage) {
	if err := w.tg.Add(); err != nil {
		return
	}
	defer w.tg.Done()

	var tag struct {
		Ack    string `json:"ack,omitempty"`
		Notify string `json:"notify,omitempty"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		if w.log != nil {
			w.log.WithError(err).Warn("sync: malformed inbound frame")
		}
		return
	}

	switch {
	case tag.Ack == "block_query":
		w.handleAckBlockQuery(raw)
	case tag.Ack == "receivables":
		w.handleAckReceivables(raw)
	case tag.Ack == "account_info":
		w.handleAckAccountInfo(raw)
	case tag.Notify == "block_append":
		w.handleNotifyBlock(raw, false)
	case tag.Notify == "block_confirm":
		w.handleNotifyBlock(raw, true)
	case tag.Notify == "block_rollback":
		w.handleNotifyBlockRollback(raw)
	case tag.Notify == "receivable_info":
		w.handleNotifyReceivable(raw)
	default:
		if w.log != nil {
			w.log.WithField("frame", string(raw)).Debug("sync: unrecognized frame")
		}
	}
}

// ownedAccounts lists every account across every loaded wallet, consulting
// a snapshot so the scan never holds the collection lock during wallet
// calls (spec.md §5).
func (w *Wallets) ownedAccounts() []types.Account {
	wallets, _, err := w.snapshot()
	if err != nil {
		return nil
	}
	var out []types.Account
	for _, ww := range wallets {
		for _, a := range ww.Accounts() {
			out = append(out, a.PublicKey)
		}
	}
	return out
}

// sendSubscribe issues account_subscribe, signing the challenge
// Blake2b(account || u64_le(timestamp)) when the owning wallet is unlocked
// (spec.md §4.8: "signature optional (only when wallet unlocked)").
func (w *Wallets) sendSubscribe(account types.Account) {
	if w.ws == nil || w.serverIsRefused() {
		return
	}
	now := time.Now().Unix()
	msg := map[string]interface{}{
		"action":    "account_subscribe",
		"account":   account,
		"timestamp": now,
	}
	if ww, err := w.findOwner(account); err == nil {
		challenge := crypto.HashBlake2b256(account[:], appendUint64LE(nil, uint64(now)))
		if sig, err := ww.Sign(account, challenge[:]); err == nil {
			msg["signature"] = sig
		}
	}
	_ = w.ws.Send(msg)
}

func appendUint64LE(buf []byte, v uint64) []byte {
	var tmp [8]byte
	for i := 0; i < 8; i++ {
		tmp[i] = byte(v >> (8 * uint(i)))
	}
	return append(buf, tmp[:]...)
}

// RunSyncCycle issues the block/receivables/account-info queries spec.md
// §4.8's sync cycle describes for every owned account. Triggered on
// connect, after a wallet is created, and periodically every 300s.
func (w *Wallets) RunSyncCycle() {
	if w.ws == nil || w.serverIsRefused() {
		return
	}
	for _, account := range w.ownedAccounts() {
		w.syncAccount(account)
	}
}

func (w *Wallets) syncAccount(account types.Account) {
	txn, err := w.store.Begin(false)
	if err != nil {
		return
	}
	info, hasInfo, err := txn.AccountInfoGet(account)
	txn.Abort()
	if err != nil {
		return
	}

	if !hasInfo {
		_ = w.ws.Send(map[string]interface{}{"action": "account_info", "account": account})
		_ = w.ws.Send(map[string]interface{}{"action": "receivables", "account": account, "type": "confirmed", "count": receivablesPerQuery})
		return
	}

	var queryHeight uint64
	var queryPrevious types.Hash
	if info.ConfirmedHeight == ledger.InvalidHeight {
		queryHeight = 0
	} else {
		queryHeight = info.ConfirmedHeight + 1
		if hash, ok, _ := w.blockHashAtHeight(account, info.ConfirmedHeight); ok {
			queryPrevious = hash
		}
	}
	_ = w.ws.Send(map[string]interface{}{
		"action": "block_query", "account": account, "height": queryHeight, "previous": queryPrevious,
	})

	nextHeight := info.HeadHeight + 1
	if nextHeight != queryHeight {
		_ = w.ws.Send(map[string]interface{}{
			"action": "block_query", "account": account, "height": nextHeight, "previous": info.HeadHash,
		})
	}

	_ = w.ws.Send(map[string]interface{}{"action": "account_info", "account": account})
	_ = w.ws.Send(map[string]interface{}{"action": "receivables", "account": account, "type": "confirmed", "count": receivablesPerQuery})
}

func (w *Wallets) blockHashAtHeight(account types.Account, height uint64) (types.Hash, bool, error) {
	txn, err := w.store.Begin(false)
	if err != nil {
		return types.Hash{}, false, err
	}
	defer txn.Abort()
	return txn.BlockGetByAccountHeight(account, height)
}

// --- inbound handlers -----------------------------------------------------

type ackBlockQueryMsg struct {
	Account   types.Account `json:"account"`
	Status    string        `json:"status"`
	Confirmed bool          `json:"confirmed"`
	Block     types.Block   `json:"block"`
}

func (w *Wallets) handleAckBlockQuery(raw json.RawMessage) {
	var m ackBlockQueryMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	switch m.Status {
	case "success", "fork":
		w.q.Enqueue(queue.Urgent, func() {
			_ = w.ProcessBlock(m.Block, m.Confirmed)
		})
		if m.Status == "fork" {
			w.q.Enqueue(queue.Urgent, func() { w.syncAccount(m.Account) })
		}
	case "miss", "pruned":
		if w.log != nil {
			w.log.WithField("account", m.Account).WithField("status", m.Status).Debug("sync: block_query miss")
		}
	}
}

type receivableWire struct {
	SourceHash    types.Hash    `json:"source_hash"`
	SourceAccount types.Account `json:"source_account"`
	Amount        types.Amount  `json:"amount"`
	Timestamp     int64         `json:"timestamp"`
}

type ackReceivablesMsg struct {
	Account     types.Account    `json:"account"`
	Receivables []receivableWire `json:"receivables"`
}

func (w *Wallets) handleAckReceivables(raw json.RawMessage) {
	var m ackReceivablesMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	for _, r := range m.Receivables {
		r := r
		w.q.Enqueue(queue.Urgent, func() {
			w.processReceivableInfo(m.Account, r)
		})
	}
}

type ackAccountInfoMsg struct {
	Account       types.Account `json:"account"`
	Head          types.Block   `json:"head"`
	ServerVersion string        `json:"server_version,omitempty"`
}

// handleAckAccountInfo dispatches process_account_info, first enforcing the
// configured minimum server version on every account_info ack that carries a
// server_version (SPEC_FULL.md §4.8): a server that fails the constraint is
// logged and further subscriptions are refused, rather than silently degrading.
func (w *Wallets) handleAckAccountInfo(raw json.RawMessage) {
	var m ackAccountInfoMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	if m.ServerVersion != "" && w.config.MinServerVersion != "" {
		ok, err := build.VersionMeets(m.ServerVersion, w.config.MinServerVersion)
		if err != nil || !ok {
			if w.log != nil {
				w.log.WithField("server_version", m.ServerVersion).
					WithField("min_server_version", w.config.MinServerVersion).
					Warn("sync: server version too old, refusing further subscriptions")
			}
			w.refuseServer()
			return
		}
	}
	w.q.Enqueue(queue.Urgent, func() {
		w.processAccountInfo(m.Account, m.Head)
	})
}

type blockNotifyMsg struct {
	Block types.Block `json:"block"`
}

func (w *Wallets) handleNotifyBlock(raw json.RawMessage, confirmed bool) {
	var m blockNotifyMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	w.q.Enqueue(queue.Urgent, func() {
		_ = w.ProcessBlock(m.Block, confirmed)
	})
}

func (w *Wallets) handleNotifyBlockRollback(raw json.RawMessage) {
	var m blockNotifyMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	w.q.Enqueue(queue.Urgent, func() {
		_ = w.ProcessBlockRollback(m.Block)
	})
}

type receivableNotifyMsg struct {
	Account types.Account `json:"account"`
	receivableWire
}

func (w *Wallets) handleNotifyReceivable(raw json.RawMessage) {
	var m receivableNotifyMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	w.q.Enqueue(queue.Urgent, func() {
		w.processReceivableInfo(m.Account, m.receivableWire)
	})
}

// processAccountInfo republishes every block this instance holds beyond the
// remote's reported head, walking forward via successor pointers (spec.md
// §4.8 process_account_info).
func (w *Wallets) processAccountInfo(account types.Account, remoteHead types.Block) {
	if !w.isMyAccount(account) {
		return
	}
	txn, err := w.store.Begin(false)
	if err != nil {
		return
	}
	defer txn.Abort()

	info, ok, err := txn.AccountInfoGet(account)
	if err != nil || !ok {
		return
	}
	if info.HeadHeight <= remoteHead.Height {
		return
	}

	hash, ok, err := txn.BlockGetByAccountHeight(account, remoteHead.Height+1)
	if err != nil || !ok {
		return
	}
	for {
		stored, ok, err := txn.BlockGet(hash)
		if err != nil || !ok {
			return
		}
		if w.ws != nil {
			_ = w.ws.Send(map[string]interface{}{"action": "block_publish", "block": stored.Block})
		}
		if stored.Successor.IsZero() {
			return
		}
		hash = stored.Successor
	}
}

// processReceivableInfo persists a newly reported receivable, dropping it
// if it is stale or already consumed (spec.md §4.8 process_receivable_info,
// §8 invariant: receive dedup).
func (w *Wallets) processReceivableInfo(account types.Account, r receivableWire) {
	if !w.isMyAccount(account) {
		return
	}
	if r.Timestamp > time.Now().Unix()+30 {
		return
	}
	if w.isReceived(r.SourceHash) {
		return
	}

	txn, err := w.store.Begin(true)
	if err != nil {
		return
	}
	if err := txn.ReceivablePut(account, r.SourceHash, ledger.ReceivableInfo{
		SourceAccount: r.SourceAccount,
		Amount:        r.Amount,
		Timestamp:     r.Timestamp,
	}); err != nil {
		txn.Abort()
		return
	}
	if err := txn.Commit(); err != nil {
		return
	}
	w.obs.Receivable.Notify(observer.ReceivableEvent{Destination: account, SourceHash: r.SourceHash})
}

// StartSyncTicker runs a periodic full resync every 300s until stop is
// closed (spec.md §4.8 "Sync cycle ... periodically every 300s").
func (w *Wallets) StartSyncTicker(stop <-chan struct{}) {
	ticker := time.NewTicker(syncCycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.q.Enqueue(queue.Normal, w.RunSyncCycle)
		}
	}
}
