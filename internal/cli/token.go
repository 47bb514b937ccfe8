package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenListCmd)
	tokenCmd.AddCommand(tokenWhitelistCmd)
	tokenCmd.AddCommand(tokenMintCmd)
	tokenCmd.AddCommand(tokenBalanceCmd)

	tokenWhitelistCmd.Flags().String("caller", "admin", "Account performing the change")
	tokenWhitelistCmd.Flags().Bool("remove", false, "Remove the token from the whitelist")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage tokens and balances",
}

// ─── token list ─────────────────────────────────────────────────────────────

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List whitelisted tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Tokens []string `json:"tokens"`
		}
		if err := getJSON("/api/tokens", &resp); err != nil {
			return err
		}
		if len(resp.Tokens) == 0 {
			fmt.Fprintln(os.Stdout, "No tokens whitelisted.")
			return nil
		}
		for _, t := range resp.Tokens {
			fmt.Fprintln(os.Stdout, t)
		}
		return nil
	},
}

// ─── token whitelist ────────────────────────────────────────────────────────

var tokenWhitelistCmd = &cobra.Command{
	Use:   "whitelist TOKEN",
	Short: "Whitelist a token for staking and purses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, _ := cmd.Flags().GetString("caller")
		remove, _ := cmd.Flags().GetBool("remove")
		body := map[string]interface{}{
			"caller":  caller,
			"token":   args[0],
			"allowed": !remove,
		}
		var resp map[string]interface{}
		if err := postJSON("/api/tokens/whitelist", body, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── token mint ─────────────────────────────────────────────────────────────

var tokenMintCmd = &cobra.Command{
	Use:   "mint TOKEN ACCOUNT AMOUNT",
	Short: "Mint token balance to an account",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[2])
		}
		body := map[string]interface{}{
			"token":   args[0],
			"account": args[1],
			"amount":  amount,
		}
		var resp map[string]interface{}
		if err := postJSON("/api/tokens/mint", body, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── token balance ──────────────────────────────────────────────────────────

var tokenBalanceCmd = &cobra.Command{
	Use:   "balance TOKEN ACCOUNT",
	Short: "Show an account's token balance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]interface{}
		if err := getJSON("/api/tokens/"+args[0]+"/balance/"+args[1], &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}
