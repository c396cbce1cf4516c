package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AltonMatrix/Raicoin/core"
	"github.com/AltonMatrix/Raicoin/ledger"
	"github.com/AltonMatrix/Raicoin/observer"
	"github.com/AltonMatrix/Raicoin/persist"
	"github.com/AltonMatrix/Raicoin/queue"
	"github.com/AltonMatrix/Raicoin/types"
)

func newTestWallets(t *testing.T) *core.Wallets {
	t.Helper()
	log := persist.NewLogger(io.Discard, "api-test")
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	q := queue.New(log)
	obs := observer.New(observer.GoroutineExecutor{})
	cfg := core.Config{PreconfiguredReps: []types.Account{{1}}}
	wallets, err := core.New(store, q, obs, cfg, cfg.FixedCreditPrice(), log)
	require.NoError(t, err)
	_, err = wallets.CreateWallet("alpha")
	require.NoError(t, err)
	return wallets
}

func TestHealthzHandler(t *testing.T) {
	log := persist.NewLogger(io.Discard, "api-test")
	a := New(newTestWallets(t), log)

	srv := httptest.NewServer(a)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

func TestStatusHandlerReportsWallets(t *testing.T) {
	log := persist.NewLogger(io.Discard, "api-test")
	a := New(newTestWallets(t), log)

	srv := httptest.NewServer(a)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body StatusGET
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Wallets, 1)
	require.True(t, body.Wallets[0].Unlocked)
	require.Len(t, body.Wallets[0].Accounts, 1)
}

func TestNotFoundHandlerReturnsJSONError(t *testing.T) {
	log := persist.NewLogger(io.Discard, "api-test")
	a := New(newTestWallets(t), log)

	srv := httptest.NewServer(a)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 404, resp.StatusCode)
}
