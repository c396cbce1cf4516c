package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// statusResponse mirrors api.StatusGET without importing the api package,
// the way the teacher's own control CLI talks to its daemon only over the
// wire, never by importing daemon-internal packages.
type statusResponse struct {
	Wallets []struct {
		ID       uint32 `json:"id"`
		Unlocked bool   `json:"unlocked"`
		Accounts []struct {
			PublicKey string `json:"public_key"`
			IsAdHoc   bool   `json:"is_adhoc"`
		} `json:"accounts"`
	} `json:"wallets"`
}

var apiAddr string

func die(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

func fetchStatus(addr string) (statusResponse, error) {
	var out statusResponse
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/status")
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("daemon returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func statusCmd(*cobra.Command, []string) {
	status, err := fetchStatus(apiAddr)
	if err != nil {
		die("querying walletd status: ", err)
	}
	for _, wlt := range status.Wallets {
		lock := "locked"
		if wlt.Unlocked {
			lock = "unlocked"
		}
		fmt.Printf("wallet %d (%s):\n", wlt.ID, lock)
		for _, acc := range wlt.Accounts {
			adhoc := ""
			if acc.IsAdHoc {
				adhoc = " (ad-hoc)"
			}
			fmt.Printf("  %s%s\n", acc.PublicKey, adhoc)
		}
	}
}

func healthzCmd(*cobra.Command, []string) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + apiAddr + "/healthz")
	if err != nil {
		die("querying walletd health: ", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		die("walletd unhealthy: ", resp.Status)
	}
	fmt.Println("ok")
}

func main() {
	root := &cobra.Command{
		Use:   os.Args[0],
		Short: "control CLI for the Raicoin wallet daemon",
	}
	root.PersistentFlags().StringVarP(&apiAddr, "api-addr", "", "localhost:23190", "host:port of the running walletd's status API")

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "print every loaded wallet's lock state and accounts",
		Run:   statusCmd,
	})
	root.AddCommand(&cobra.Command{
		Use:   "healthz",
		Short: "check that the daemon is alive",
		Run:   healthzCmd,
	})

	if err := root.Execute(); err != nil {
		os.Exit(64)
	}
}
