package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/spf13/cobra"

	"github.com/AltonMatrix/Raicoin/api"
	"github.com/AltonMatrix/Raicoin/build"
	"github.com/AltonMatrix/Raicoin/core"
	"github.com/AltonMatrix/Raicoin/ledger"
	"github.com/AltonMatrix/Raicoin/observer"
	"github.com/AltonMatrix/Raicoin/persist"
	"github.com/AltonMatrix/Raicoin/queue"
	"github.com/AltonMatrix/Raicoin/wsclient"
)

// startDaemonCmd is a passthrough function for startDaemon.
func startDaemonCmd(*cobra.Command, []string) {
	if err := startDaemon(); err != nil {
		die(err)
	}
}

func loadConfig(path string) (core.Config, error) {
	var cfg core.Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = filepath.Join(globalFlags.DataDir, "wallet.db")
	}
	return cfg, nil
}

// startDaemon wires every package into a running process: ledger, queue,
// observers, core, the WebSocket runner, the sync ticker, and the status
// API server. It blocks until the API server exits.
func startDaemon() error {
	cfg, err := loadConfig(globalFlags.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", globalFlags.ConfigPath, err)
	}

	log, logCloser, err := persist.NewFileLogger(filepath.Join(globalFlags.DataDir, "walletd.log"), "walletd")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logCloser.Close()

	log.Info("starting wallet daemon v" + build.Version.String())

	store, err := ledger.Open(cfg.LedgerPath, log.WithField("subsystem", "ledger"))
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer store.Close()

	q := queue.New(log.WithField("subsystem", "queue"))
	go q.Run()
	defer q.Stop()

	obs := observer.New(observer.GoroutineExecutor{})

	wallets, err := core.New(store, q, obs, cfg, cfg.FixedCreditPrice(), log.WithField("subsystem", "core"))
	if err != nil {
		return fmt.Errorf("constructing wallets: %w", err)
	}
	if err := wallets.LoadFromLedger(); err != nil {
		return fmt.Errorf("loading ledger state: %w", err)
	}
	defer wallets.Close()

	wsURL := fmt.Sprintf("ws://%s:%d%s", cfg.Server.Host, cfg.Server.Port, cfg.Server.Path)
	runner := wsclient.New(wsURL, obs, wallets.OnConnected, wallets.OnMessage, log.WithField("subsystem", "wsclient"))
	wallets.AttachRunner(runner)
	go runner.Run()
	defer runner.Stop()

	stopSync := make(chan struct{})
	go wallets.StartSyncTicker(stopSync)
	defer close(stopSync)

	srv := &http.Server{
		Addr:    globalFlags.ListenAddr,
		Handler: api.New(wallets, log.WithField("subsystem", "api")),
	}
	servErrs := make(chan error, 1)
	go func() {
		servErrs <- srv.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, os.Kill)
	go func() {
		<-sigChan
		fmt.Println("\rCaught stop signal, quitting...")
		srv.Close()
	}()

	log.Info("finished loading, serving status API on " + globalFlags.ListenAddr)

	if err := <-servErrs; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
