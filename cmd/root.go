package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "safe-swap",
	Short: "Batch transfers and swaps through a Safe multisig",
	Long: `safe-swap turns send, buy and sell intents into transactions, batches them
into a single Safe MultiSend transaction and either executes it directly or
proposes it to the Safe transaction service for the other owners to sign.

Examples:
  safe-swap send 10 USDC to alice.eth
  safe-swap buy 0.01 WBTC with USDC
  safe-swap sell 500 DAI for WBTC
  safe-swap batch payroll.yaml
  safe-swap account
  safe-swap list-tokens
  safe-swap status <tx-hash>`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Skip the approval prompt")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
