package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newPingCmd(cfg *operatorConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the node's public API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Timestamp int64 `json:"timestamp"`
			}
			if err := postJSON(cfg.baseURL+"/ping", map[string]any{}, &out); err != nil {
				return err
			}
			fmt.Printf("ok, node time: %d\n", out.Timestamp)
			return nil
		},
	}
}

// statsSnapshot mirrors internal/stats.Snapshot loosely enough for the
// CLI's own tabulation - it only needs the columns operators actually
// compare across nodes.
type statsSnapshot struct {
	NodeVersion    string `json:"NodeVersion"`
	PublicSettings struct {
		AuthorityThreshold int   `json:"AuthorityThreshold"`
		AuthorityCount     int   `json:"AuthorityCount"`
		SyncDelay          int64 `json:"SyncDelay"`
	} `json:"PublicSettings"`
	AggregateConfirmed       int64 `json:"AggregateConfirmed"`
	AggregateUnconfirmed     int64 `json:"AggregateUnconfirmed"`
	AggregateApprovableTax   int64 `json:"AggregateApprovableTax"`
	AggregateWithdrawalValue int64 `json:"AggregateWithdrawalValue"`
	ChangeBalanceConfirmed   int64 `json:"ChangeBalanceConfirmed"`
	GeneratedAt              int64 `json:"GeneratedAt"`
}

func newStatsCmd(cfg *operatorConfig) *cobra.Command {
	var nodes []string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Fetch /stats from one or more nodes and flag disagreeing columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes = append([]string{cfg.baseURL}, nodes...)
			snapshots := make([]statsSnapshot, len(nodes))
			for i, node := range nodes {
				var snap statsSnapshot
				if err := postJSON(node+"/stats", map[string]any{}, &snap); err != nil {
					return fmt.Errorf("%s: %w", node, err)
				}
				snapshots[i] = snap
			}
			printStatsTable(nodes, snapshots)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&nodes, "peer", nil, "Additional peer base URLs to compare against --node (repeatable)")
	return cmd
}

// printStatsTable renders one row per column, one column per node, and
// marks every cell of a row with NO when any node's value in that row
// differs from the first node's (spec.md §4.11's cross-authority sanity
// check).
func printStatsTable(nodes []string, snapshots []statsSnapshot) {
	rows := []struct {
		label  string
		values func(statsSnapshot) string
	}{
		{"NodeVersion", func(s statsSnapshot) string { return s.NodeVersion }},
		{"AuthorityThreshold", func(s statsSnapshot) string { return fmt.Sprint(s.PublicSettings.AuthorityThreshold) }},
		{"AuthorityCount", func(s statsSnapshot) string { return fmt.Sprint(s.PublicSettings.AuthorityCount) }},
		{"SyncDelay", func(s statsSnapshot) string { return fmt.Sprint(s.PublicSettings.SyncDelay) }},
		{"AggregateConfirmed", func(s statsSnapshot) string { return fmt.Sprint(s.AggregateConfirmed) }},
		{"AggregateUnconfirmed", func(s statsSnapshot) string { return fmt.Sprint(s.AggregateUnconfirmed) }},
		{"AggregateApprovableTax", func(s statsSnapshot) string { return fmt.Sprint(s.AggregateApprovableTax) }},
		{"AggregateWithdrawalValue", func(s statsSnapshot) string { return fmt.Sprint(s.AggregateWithdrawalValue) }},
		{"ChangeBalanceConfirmed", func(s statsSnapshot) string { return fmt.Sprint(s.ChangeBalanceConfirmed) }},
	}

	fmt.Printf("%-26s", "")
	for _, n := range nodes {
		fmt.Printf(" %-20s", n)
	}
	fmt.Println()

	for _, row := range rows {
		values := make([]string, len(snapshots))
		agree := true
		for i, snap := range snapshots {
			values[i] = row.values(snap)
			if i > 0 && values[i] != values[0] {
				agree = false
			}
		}
		fmt.Printf("%-26s", row.label)
		for _, v := range values {
			cell := v
			if !agree {
				cell = v + " NO"
			}
			fmt.Printf(" %-20s", cell)
		}
		fmt.Println()
	}
}

func newDumpCmd(cfg *operatorConfig) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Fetch a complete state dump from a node and write it to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				SQL json.RawMessage `json:"sql"`
			}
			if err := postSigned(cfg.baseURL+"/dumpDatabase", map[string]any{}, cfg, &out); err != nil {
				return err
			}
			if outPath == "" {
				fmt.Println(string(out.SQL))
				return nil
			}
			return os.WriteFile(outPath, out.SQL, 0600)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "File to write the dump to (defaults to stdout)")
	return cmd
}

func newRestoreCmd(cfg *operatorConfig) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace a node's local state with a previously captured dump",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("reading %s: %w", inPath, err)
			}
			var dump json.RawMessage = raw
			return postSigned(cfg.baseURL+"/resetDatabase", map[string]any{"sql": dump}, cfg, nil)
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "File containing a dump previously written by 'dump'")
	cmd.MarkFlagRequired("in")
	return cmd
}

func newHarakiriCmd(cfg *operatorConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "harakiri",
		Short: "Terminate the node's process immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postSigned(cfg.baseURL+"/dingoDoesAHarakiri", map[string]any{}, cfg, nil)
		},
	}
}

func newExecutePayoutsCmd(cfg *operatorConfig) *cobra.Command {
	var deposits, withdrawals, test bool
	cmd := &cobra.Command{
		Use:   "execute-payouts",
		Short: "Trigger a payout round on the coordinator node (loopback-only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Result string `json:"result"`
			}
			body := map[string]any{
				"processDeposits":    deposits,
				"processWithdrawals": withdrawals,
				"testMode":           test,
			}
			if err := postJSON(cfg.adminURL+"/executePayouts", body, &out); err != nil {
				return err
			}
			fmt.Println(out.Result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&deposits, "deposits", false, "Include pending deposit-tax payouts in this round")
	cmd.Flags().BoolVar(&withdrawals, "withdrawals", false, "Include pending withdrawals in this round")
	cmd.Flags().BoolVar(&test, "test", false, "Run in test mode (build and validate but don't broadcast)")
	return cmd
}
