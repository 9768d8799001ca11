package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"safe-swap/pkg/dispatch"
	"safe-swap/pkg/engine"
	"safe-swap/pkg/intent"
	"safe-swap/pkg/parser"
)

var nonceOverride int64

var sendCmd = &cobra.Command{
	Use:   "send <amount> <token> to <receiver>",
	Short: "Send tokens from the Safe",
	Long: `Transfer native currency or an ERC-20 token from the Safe.

The receiver may be a hex address, an ENS name or an address book entry.

Examples:
  safe-swap send 10 USDC to alice.eth
  safe-swap send 0.5 ETH to 0x5A0b54D5dc17e0AadC383d2db43B0a0D3E029c4c`,
	Args: cobra.MinimumNArgs(4),
	Run:  runCommand(parser.ParseSendCommand),
}

var buyCmd = &cobra.Command{
	Use:   "buy <amount> <token> with <token>",
	Short: "Buy an exact amount of a token",
	Long: `Buy an exact amount of a token, paying with another token held by the Safe.

Examples:
  safe-swap buy 0.01 WBTC with USDC
  safe-swap buy 100 DAI with ETH`,
	Args: cobra.MinimumNArgs(4),
	Run:  runCommand(parser.ParseBuyCommand),
}

var sellCmd = &cobra.Command{
	Use:   "sell <amount> <token> for <token>",
	Short: "Sell an exact amount of a token",
	Long: `Sell an exact amount of a token held by the Safe for another token.

Examples:
  safe-swap sell 500 DAI for WBTC
  safe-swap sell 1 ETH for USDC`,
	Args: cobra.MinimumNArgs(4),
	Run:  runCommand(parser.ParseSellCommand),
}

func init() {
	for _, c := range []*cobra.Command{sendCmd, buyCmd, sellCmd} {
		c.Flags().Int64Var(&nonceOverride, "nonce", -1, "Use this Safe nonce instead of the next one")
		rootCmd.AddCommand(c)
	}
}

func runCommand(parse func(string) (intent.Intent, error)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		in, err := parse(strings.Join(append([]string{cmd.Name()}, args...), " "))
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if err := runIntents(cmd, in); err != nil {
			printError(err)
			os.Exit(1)
		}
	}
}

func runIntents(cmd *cobra.Command, in intent.Intent) error {
	ctx := commandContext(cmd)
	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	eng, err := rt.newEngine(cmd)
	if err != nil {
		return err
	}

	var opts []dispatch.DispatchOption
	if nonceOverride >= 0 {
		opts = append(opts, dispatch.WithNonce(uint64(nonceOverride)))
	}

	report, err := eng.Run(ctx, rt.session, []intent.Intent{in}, opts...)
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	printReport(report, "", jsonOutput)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

type reportOutput struct {
	Name         string   `json:"name,omitempty"`
	BatchID      string   `json:"batch_id"`
	Outcome      string   `json:"outcome"`
	Mode         string   `json:"mode,omitempty"`
	Nonce        *uint64  `json:"nonce,omitempty"`
	SafeTxHash   string   `json:"safe_tx_hash,omitempty"`
	TxHash       string   `json:"tx_hash,omitempty"`
	Feedback     string   `json:"feedback,omitempty"`
	Transactions []string `json:"transactions"`
}

func newReportOutput(report engine.Report, name string) reportOutput {
	out := reportOutput{
		Name:         name,
		BatchID:      report.BatchID.String(),
		Outcome:      string(report.Outcome),
		Mode:         string(report.Result.Mode),
		Feedback:     report.Feedback,
		Transactions: report.Summaries(),
	}
	if report.Outcome != engine.OutcomeEmpty {
		n := report.Result.Nonce
		out.Nonce = &n
		out.SafeTxHash = report.Result.SafeTxHash.Hex()
	}
	if report.Outcome == engine.OutcomeSent {
		out.TxHash = report.Result.TxHash.Hex()
	}
	return out
}

func printReport(report engine.Report, name string, jsonOutput bool) {
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(newReportOutput(report, name), "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayReport(report, name)
}

func displayReport(report engine.Report, name string) {
	title := "BATCH"
	if name != "" {
		title = "BATCH " + strings.ToUpper(name)
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        %s", title)
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Batch ID:        %s\n", color.HiBlackString(report.BatchID.String()))
	for i, summary := range report.Summaries() {
		fmt.Printf("  %2d. %s\n", i+1, summary)
	}

	switch report.Outcome {
	case engine.OutcomeEmpty:
		fmt.Println("\n  Nothing to execute.")
	case engine.OutcomeDeclined:
		color.Yellow("\n  Transactions not executed (declined).")
		if report.Feedback != "" {
			fmt.Printf("  Feedback:        %s\n", report.Feedback)
		}
	case engine.OutcomeSent:
		fmt.Printf("\n  Status:          %s\n", color.GreenString("EXECUTED"))
		fmt.Printf("  Nonce:           %d\n", report.Result.Nonce)
		fmt.Printf("  Safe Tx Hash:    %s\n", color.CyanString(report.Result.SafeTxHash.Hex()))
		fmt.Printf("  Tx Hash:         %s\n", color.CyanString(report.Result.TxHash.Hex()))
	case engine.OutcomeRelayed:
		fmt.Printf("\n  Status:          %s\n", color.YellowString("PROPOSED"))
		fmt.Printf("  Nonce:           %d\n", report.Result.Nonce)
		fmt.Printf("  Safe Tx Hash:    %s\n", color.CyanString(report.Result.SafeTxHash.Hex()))
		fmt.Println("\nThe other owners can confirm it in the Safe app. Track it with:")
		color.Cyan("  safe-swap status %s --relay\n", report.Result.SafeTxHash.Hex())
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
