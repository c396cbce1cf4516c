package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AltonMatrix/Raicoin/types"
)

func TestOnMessageReceivableNotifyPersists(t *testing.T) {
	w, account := newTestWallets(t)

	var source types.Hash
	source[0] = 0x11
	msg := receivableNotifyMsg{
		Account: account,
		receivableWire: receivableWire{
			SourceHash: source,
			Amount:     types.AmountFromUint64(42),
			Timestamp:  time.Now().Unix(),
		},
	}
	raw, err := json.Marshal(struct {
		Notify string `json:"notify"`
		receivableNotifyMsg
	}{Notify: "receivable_info", receivableNotifyMsg: msg})
	require.NoError(t, err)

	w.OnMessage(raw)

	require.Eventually(t, func() bool {
		txn, err := w.store.Begin(false)
		if err != nil {
			return false
		}
		defer txn.Abort()
		_, ok, err := txn.ReceivableGet(account, source)
		return err == nil && ok
	}, time.Second, time.Millisecond)
}

func TestProcessReceivableInfoDropsStaleAndDuplicate(t *testing.T) {
	w, account := newTestWallets(t)

	var source types.Hash
	source[0] = 0x22

	stale := receivableWire{SourceHash: source, Amount: types.AmountFromUint64(1), Timestamp: time.Now().Unix() + 3600}
	w.processReceivableInfo(account, stale)

	txn, err := w.store.Begin(false)
	require.NoError(t, err)
	_, ok, err := txn.ReceivableGet(account, source)
	require.NoError(t, err)
	require.False(t, ok, "a receivable timestamped far in the future is dropped as stale")
	require.NoError(t, txn.Abort())

	fresh := receivableWire{SourceHash: source, Amount: types.AmountFromUint64(1), Timestamp: time.Now().Unix()}
	w.processReceivableInfo(account, fresh)

	txn, err = w.store.Begin(false)
	require.NoError(t, err)
	_, ok, err = txn.ReceivableGet(account, source)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, txn.Abort())

	w.markReceived(source)
	dup := receivableWire{SourceHash: source, Amount: types.AmountFromUint64(9), Timestamp: time.Now().Unix()}
	w.processReceivableInfo(account, dup)

	txn, err = w.store.Begin(false)
	require.NoError(t, err)
	defer txn.Abort()
	info, ok, err := txn.ReceivableGet(account, source)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), info.Amount.Big().Uint64(), "an already-received source must not be overwritten")
}

func TestProcessAccountInfoRepublishesBeyondRemoteHead(t *testing.T) {
	w, account := newTestWallets(t)

	open := types.Block{Account: account, Type: types.TxBlock, Height: 0}
	require.NoError(t, w.ProcessBlock(open, true))
	openHash := blockHash(open)

	next := types.Block{Account: account, Type: types.TxBlock, Height: 1, Previous: openHash}
	require.NoError(t, w.ProcessBlock(next, true))

	// No wsclient.Runner attached; processAccountInfo must still complete
	// the successor walk without panicking when w.ws is nil.
	w.processAccountInfo(account, open)
}

func TestHandleAckAccountInfoRefusesOldServer(t *testing.T) {
	w, _ := newTestWallets(t)
	w.config.MinServerVersion = "2.0.0"

	raw, err := json.Marshal(struct {
		Ack           string `json:"ack"`
		ServerVersion string `json:"server_version"`
	}{Ack: "account_info", ServerVersion: "1.0.0"})
	require.NoError(t, err)

	w.handleAckAccountInfo(raw)
	require.True(t, w.serverIsRefused())
}

func TestHandleAckAccountInfoAcceptsNewEnoughServer(t *testing.T) {
	w, _ := newTestWallets(t)
	w.config.MinServerVersion = "1.0.0"

	raw, err := json.Marshal(struct {
		Ack           string `json:"ack"`
		ServerVersion string `json:"server_version"`
	}{Ack: "account_info", ServerVersion: "1.5.0"})
	require.NoError(t, err)

	w.handleAckAccountInfo(raw)
	require.False(t, w.serverIsRefused())
}
