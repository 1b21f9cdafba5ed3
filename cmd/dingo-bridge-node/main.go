package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dingo-bridge/dingo-bridge-node/internal/app"
)

func main() {
	var configPath string
	var envPath string

	rootCmd := &cobra.Command{
		Use: "dingo-bridge-node",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
			os.Exit(0)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the node's YAML config file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "Path to an optional .env file holding wallet/EVM private keys")

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Run this authority node",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := app.LoadConfig(configPath, envPath)
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			if err := app.InitLogger(cfg.LogLevel, cfg.AuditLogPath); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			Server(cfg)
		},
	}

	showConfCmd := &cobra.Command{
		Use:   "showconf",
		Short: "Load the config, redact secrets, and print it",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := app.LoadConfig(configPath, envPath)
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			cfg.WalletPrivateKey = ""
			cfg.EVMPrivateKey = ""
			o, _ := json.MarshalIndent(cfg, "", "  ")
			fmt.Println(string(o))
		},
	}

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(showConfCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
