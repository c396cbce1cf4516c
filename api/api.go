// Package api is the wallet daemon's read-only HTTP control surface
// (SPEC_FULL.md §4.11): each wallet's lock state and its accounts, for local
// operational visibility. It reports neither connection status nor sync
// heights, and carries no authoring capability.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/AltonMatrix/Raicoin/core"
)

// Error is returned as the JSON body of a non-2xx response, matching the
// teacher's own api.Error shape.
type Error struct {
	Message string `json:"message"`
}

func (e Error) Error() string { return e.Message }

// API wires the Wallets core to a small set of read-only endpoints.
type API struct {
	wallets *core.Wallets
	router  *httprouter.Router
	log     *logrus.Entry
}

// New builds the router. Status and Healthz are the only routes; neither
// accepts a body nor mutates core state.
func New(wallets *core.Wallets, log *logrus.Entry) *API {
	a := &API{wallets: wallets, log: log}
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(notFoundHandler)
	router.GET("/status", a.statusHandler)
	router.GET("/healthz", a.healthzHandler)
	a.router = router
	return a
}

// ServeHTTP makes API usable directly as an http.Handler, e.g. with
// http.ListenAndServe.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func notFoundHandler(w http.ResponseWriter, req *http.Request) {
	writeError(w, Error{"404 - not found"}, http.StatusNotFound)
}

func writeError(w http.ResponseWriter, err Error, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(err)
}

func writeJSON(w http.ResponseWriter, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if json.NewEncoder(w).Encode(obj) != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// healthzHandler is a bare liveness probe: if this handler runs, the
// process is serving requests.
func (a *API) healthzHandler(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// StatusGET is the /status response body.
type StatusGET struct {
	Wallets []WalletStatus `json:"wallets"`
}

// WalletStatus is one wallet's row in StatusGET.
type WalletStatus struct {
	ID       uint32          `json:"id"`
	Unlocked bool            `json:"unlocked"`
	Accounts []AccountStatus `json:"accounts"`
}

// AccountStatus reports one account's public key and whether it is an
// ad-hoc import; it carries no sync height.
type AccountStatus struct {
	PublicKey string `json:"public_key"`
	IsAdHoc   bool   `json:"is_adhoc"`
}

func (a *API) statusHandler(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	entries := a.wallets.StatusSnapshot()
	out := make([]WalletStatus, len(entries))
	for i, e := range entries {
		accounts := make([]AccountStatus, len(e.Accounts))
		for j, acc := range e.Accounts {
			accounts[j] = AccountStatus{PublicKey: acc.PublicKey.String(), IsAdHoc: acc.IsAdHoc}
		}
		out[i] = WalletStatus{ID: e.ID, Unlocked: e.Unlocked, Accounts: accounts}
	}
	writeJSON(w, StatusGET{Wallets: out})
}
