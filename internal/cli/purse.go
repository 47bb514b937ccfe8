package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(purseCmd)
	purseCmd.AddCommand(purseListCmd)
	purseCmd.AddCommand(purseCreateCmd)
	purseCmd.AddCommand(purseShowCmd)
	purseCmd.AddCommand(purseJoinCmd)
	purseCmd.AddCommand(purseContributeCmd)
	purseCmd.AddCommand(purseResolveCmd)
	purseCmd.AddCommand(purseTerminateCmd)

	purseCreateCmd.Flags().Int64("round-interval", 604800, "Round interval in seconds")
	purseCreateCmd.Flags().Int64("max-delay", 86400, "Grace period in seconds before a round can be force-resolved")
	purseJoinCmd.Flags().String("validator", "", "Backing validator id (required)")
	purseTerminateCmd.Flags().String("caller", "admin", "Account performing the termination")
}

var purseCmd = &cobra.Command{
	Use:   "purse",
	Short: "Create and run rotating-savings purses",
}

// ─── purse list ─────────────────────────────────────────────────────────────

var purseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List purses",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]interface{}
		if err := getJSON("/api/purses", &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── purse create ───────────────────────────────────────────────────────────

var purseCreateCmd = &cobra.Command{
	Use:   "create TOKEN CONTRIBUTION_AMOUNT MAX_MEMBERS",
	Short: "Create a purse",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		contribution, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid contribution amount %q", args[1])
		}
		maxMembers, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid member count %q", args[2])
		}
		interval, _ := cmd.Flags().GetInt64("round-interval")
		maxDelay, _ := cmd.Flags().GetInt64("max-delay")
		body := map[string]interface{}{
			"token":               args[0],
			"contribution_amount": contribution,
			"max_members":         maxMembers,
			"round_interval_secs": interval,
			"max_delay_secs":      maxDelay,
		}
		var resp map[string]interface{}
		if err := postJSON("/api/purses", body, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── purse show ─────────────────────────────────────────────────────────────

var purseShowCmd = &cobra.Command{
	Use:   "show PURSE_ID",
	Short: "Show a purse and its members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]interface{}
		if err := getJSON("/api/purses/"+args[0], &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── purse join ─────────────────────────────────────────────────────────────

var purseJoinCmd = &cobra.Command{
	Use:   "join PURSE_ID USER POSITION",
	Short: "Join a purse at a payout position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		position, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid position %q", args[2])
		}
		validatorID, _ := cmd.Flags().GetString("validator")
		body := map[string]interface{}{
			"user":      args[1],
			"position":  position,
			"validator": validatorID,
		}
		var resp map[string]interface{}
		if err := postJSON("/api/purses/"+args[0]+"/join", body, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── purse contribute ───────────────────────────────────────────────────────

var purseContributeCmd = &cobra.Command{
	Use:   "contribute PURSE_ID USER",
	Short: "Contribute to the current round",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]interface{}{"user": args[1]}
		var resp map[string]interface{}
		if err := postJSON("/api/purses/"+args[0]+"/contribute", body, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── purse resolve ──────────────────────────────────────────────────────────

var purseResolveCmd = &cobra.Command{
	Use:   "resolve PURSE_ID",
	Short: "Force-resolve an overdue round, defaulting non-contributors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]interface{}
		if err := postJSON("/api/purses/"+args[0]+"/resolve", nil, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── purse terminate ────────────────────────────────────────────────────────

var purseTerminateCmd = &cobra.Command{
	Use:   "terminate PURSE_ID",
	Short: "Terminate a purse, refunding the current round",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, _ := cmd.Flags().GetString("caller")
		body := map[string]interface{}{"caller": caller}
		var resp map[string]interface{}
		if err := postJSON("/api/purses/"+args[0]+"/terminate", body, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}
