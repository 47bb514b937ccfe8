package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validatorCmd)
	validatorCmd.AddCommand(validatorListCmd)
	validatorCmd.AddCommand(validatorCreateCmd)
	validatorCmd.AddCommand(validatorShowCmd)
	validatorCmd.AddCommand(validatorVouchCmd)
	validatorCmd.AddCommand(validatorInvalidateCmd)
	validatorCmd.AddCommand(validatorDefaultsCmd)
	validatorCmd.AddCommand(validatorReputationCmd)

	validatorVouchCmd.Flags().String("caller", "", "Validator owner account (defaults to USER's validator owner)")
	validatorInvalidateCmd.Flags().String("caller", "", "Validator owner account")
}

var validatorCmd = &cobra.Command{
	Use:   "validator",
	Short: "Operate validators that vouch credits to users",
}

// ─── validator list ─────────────────────────────────────────────────────────

var validatorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active validators",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]interface{}
		if err := getJSON("/api/validators", &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── validator create ───────────────────────────────────────────────────────

var validatorCreateCmd = &cobra.Command{
	Use:   "create OPERATOR FEE_BPS TOKEN STAKE_AMOUNT",
	Short: "Create a validator backed by staked collateral",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		feeBps, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid fee bps %q", args[1])
		}
		stake, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid stake amount %q", args[3])
		}
		body := map[string]interface{}{
			"operator":     args[0],
			"fee_bps":      feeBps,
			"token":        args[2],
			"stake_amount": stake,
		}
		var resp map[string]interface{}
		if err := postJSON("/api/validators", body, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── validator show ─────────────────────────────────────────────────────────

var validatorShowCmd = &cobra.Command{
	Use:   "show VALIDATOR_ID",
	Short: "Show a validator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]interface{}
		if err := getJSON("/api/validators/"+args[0], &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── validator vouch ────────────────────────────────────────────────────────

var validatorVouchCmd = &cobra.Command{
	Use:   "vouch VALIDATOR_ID USER AMOUNT",
	Short: "Vouch credits from a validator to a user",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[2])
		}
		caller, _ := cmd.Flags().GetString("caller")
		body := map[string]interface{}{
			"caller": caller,
			"user":   args[1],
			"amount": amount,
		}
		var resp map[string]interface{}
		if err := postJSON("/api/validators/"+args[0]+"/vouch", body, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── validator invalidate ───────────────────────────────────────────────────

var validatorInvalidateCmd = &cobra.Command{
	Use:   "invalidate VALIDATOR_ID USER",
	Short: "Withdraw a validator's vouch and reclaim credits",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, _ := cmd.Flags().GetString("caller")
		body := map[string]interface{}{
			"caller": caller,
			"user":   args[1],
		}
		var resp map[string]interface{}
		if err := postJSON("/api/validators/"+args[0]+"/invalidate", body, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── validator defaults ─────────────────────────────────────────────────────

var validatorDefaultsCmd = &cobra.Command{
	Use:   "defaults VALIDATOR_ID",
	Short: "Show defaults recorded against a validator's vouched users",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]interface{}
		if err := getJSON("/api/validators/"+args[0]+"/defaults", &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// ─── validator reputation ───────────────────────────────────────────────────

var validatorReputationCmd = &cobra.Command{
	Use:   "reputation VALIDATOR_ID",
	Short: "Show a validator's trust score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]interface{}
		if err := getJSON("/api/validators/"+args[0]+"/reputation", &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}
