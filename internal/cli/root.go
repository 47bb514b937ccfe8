// Package cli implements the ajofi command-line interface.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	apiURL     string
)

var rootCmd = &cobra.Command{
	Use:   "ajofi",
	Short: "Credit-backed rotating savings protocol",
	Long: `ajofi runs and operates a credit-backed rotating savings (Ajo) protocol.
Users stake whitelisted tokens for credits, validators vouch credits to
members, and purses rotate pooled contributions round by round.

Run a node with 'ajofi serve'. The other commands are thin clients that
talk to a running node over its HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "ajofi.toml", "Path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://127.0.0.1:8790", "Base URL of a running node")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// ─── HTTP client helpers ────────────────────────────────────────────────────

// apiError is the error envelope the node returns for failed requests.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func getJSON(path string, out interface{}) error {
	resp, err := http.Get(apiURL + path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func postJSON(path string, body, out interface{}) error {
	buf := new(bytes.Buffer)
	if body != nil {
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return err
		}
	}
	resp, err := http.Post(apiURL+path, "application/json", buf)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Error.Message != "" {
			return fmt.Errorf("%s", ae.Error.Message)
		}
		return fmt.Errorf("node returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// printJSON pretty-prints an API response.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
