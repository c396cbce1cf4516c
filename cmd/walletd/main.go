package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AltonMatrix/Raicoin/build"
)

// exit codes, inspired by sysexits.h, matching the teacher's own rivined.
const (
	exitCodeGeneral = 1
	exitCodeUsage   = 64
)

var globalFlags struct {
	ConfigPath string
	DataDir    string
	ListenAddr string
}

func die(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(exitCodeGeneral)
}

func versionCmd(*cobra.Command, []string) {
	fmt.Println("Raicoin Wallet Daemon v" + build.Version.String())
}

func main() {
	root := &cobra.Command{
		Use:   os.Args[0],
		Short: "Raicoin wallet daemon",
		Long:  "Raicoin wallet daemon v" + build.Version.String(),
		Run:   startDaemonCmd,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   versionCmd,
	})

	root.Flags().StringVarP(&globalFlags.ConfigPath, "config", "c", "walletd.toml", "path to the daemon's TOML config file")
	root.Flags().StringVarP(&globalFlags.DataDir, "data-directory", "d", ".", "directory holding the ledger database")
	root.Flags().StringVarP(&globalFlags.ListenAddr, "api-addr", "", "localhost:23190", "host:port the status API listens on")

	if err := root.Execute(); err != nil {
		os.Exit(exitCodeUsage)
	}
}
