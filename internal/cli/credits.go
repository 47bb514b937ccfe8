package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(creditsCmd)
	creditsCmd.AddCommand(creditsStakeCmd)
	creditsCmd.AddCommand(creditsUnstakeCmd)
	creditsCmd.AddCommand(creditsBalanceCmd)
	creditsCmd.AddCommand(creditsLedgerCmd)

	creditsUnstakeCmd.Flags().Int64("amount", 0, "Collateral to withdraw (0 withdraws everything)")
	creditsLedgerCmd.Flags().Int("limit", 50, "Maximum number of entries")
}

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Stake collateral and inspect credit balances",
}

// ─── credits stake ──────────────────────────────────────────────────────────

var creditsStakeCmd = &cobra.Command{
	Use:   "stake USER TOKEN AMOUNT",
	Short: "Stake token collateral for credits",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[2])
		}
		body := map[string]interface{}{
			"user":   args[0],
			"token":  args[1],
			"amount": amount,
		}
		var resp map[string]interface{}
		if err := postJSON("/api/credits/stake", body, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── credits unstake ────────────────────────────────────────────────────────

var creditsUnstakeCmd = &cobra.Command{
	Use:   "unstake USER TOKEN",
	Short: "Withdraw staked collateral, burning the matching credits",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, _ := cmd.Flags().GetInt64("amount")
		body := map[string]interface{}{
			"user":   args[0],
			"token":  args[1],
			"amount": amount,
		}
		var resp map[string]interface{}
		if err := postJSON("/api/credits/unstake", body, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── credits balance ────────────────────────────────────────────────────────

var creditsBalanceCmd = &cobra.Command{
	Use:   "balance USER",
	Short: "Show a user's credit balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]interface{}
		if err := getJSON("/api/credits/"+args[0]+"/balance", &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── credits ledger ─────────────────────────────────────────────────────────

var creditsLedgerCmd = &cobra.Command{
	Use:   "ledger USER",
	Short: "Show a user's credit ledger history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		var resp map[string]interface{}
		path := fmt.Sprintf("/api/credits/%s/ledger?limit=%d", args[0], limit)
		if err := getJSON(path, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}
