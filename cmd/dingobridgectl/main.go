package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// operatorConfig is the shared set of flags every subcommand needs:
// which node to talk to, and (for authority-only commands) the
// operator's own signing key plus a daemon RPC endpoint to read the
// chain tip from for envelope sealing.
type operatorConfig struct {
	baseURL    string
	adminURL   string
	privKeyHex string
	rpcHost    string
	rpcPort    int
	rpcUser    string
	rpcPass    string
}

// dingobridgectl is thin HTTP glue over a running authority node's
// authority-only/coordinator-only/loopback endpoints (SPEC_FULL.md
// §4.11). It is the only caller of several of those endpoints, so it
// carries its own envelope-signing key rather than assuming a running
// node is reachable unauthenticated.
func main() {
	cfg := &operatorConfig{}

	rootCmd := &cobra.Command{
		Use:   "dingobridgectl",
		Short: "Operate a running dingo-bridge-node authority",
	}
	rootCmd.PersistentFlags().StringVar(&cfg.baseURL, "node", "https://127.0.0.1:8443", "Base URL of the node's public API")
	rootCmd.PersistentFlags().StringVar(&cfg.adminURL, "admin", "https://127.0.0.1:8444", "Base URL of the node's loopback admin API")
	rootCmd.PersistentFlags().StringVar(&cfg.privKeyHex, "key", os.Getenv("DINGOBRIDGECTL_KEY"), "Hex-encoded wallet private key to sign authority-only requests with")
	rootCmd.PersistentFlags().StringVar(&cfg.rpcHost, "rpc-host", "localhost", "UTXO daemon RPC host, for reading the chain tip to seal requests")
	rootCmd.PersistentFlags().IntVar(&cfg.rpcPort, "rpc-port", 44555, "UTXO daemon RPC port")
	rootCmd.PersistentFlags().StringVar(&cfg.rpcUser, "rpc-user", "", "UTXO daemon RPC user")
	rootCmd.PersistentFlags().StringVar(&cfg.rpcPass, "rpc-pass", "", "UTXO daemon RPC password")

	rootCmd.AddCommand(newPingCmd(cfg))
	rootCmd.AddCommand(newStatsCmd(cfg))
	rootCmd.AddCommand(newDumpCmd(cfg))
	rootCmd.AddCommand(newRestoreCmd(cfg))
	rootCmd.AddCommand(newHarakiriCmd(cfg))
	rootCmd.AddCommand(newExecutePayoutsCmd(cfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
