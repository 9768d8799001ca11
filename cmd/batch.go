package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/intent"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file.yaml>",
	Short: "Run batches of intents from a file",
	Long: `Run one or more named batches from a YAML file. Each batch becomes a single
Safe transaction; batches run in order and take consecutive nonces.

File format:
  - name: payroll
    intents:
      - kind: send
        token: USDC
        amount: "1500"
        to: alice.eth
      - kind: sell
        token: DAI
        amount: "500"
        for: WBTC

Examples:
  safe-swap batch payroll.yaml
  safe-swap batch payroll.yaml --yes --json`,
	Args: cobra.ExactArgs(1),
	Run:  runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) {
	if err := runBatchFile(cmd, args[0]); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func runBatchFile(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "open batch file")
	}
	batches, err := intent.LoadBatches(f)
	f.Close()
	if err != nil {
		return err
	}

	// Every batch is parsed before the first one is dispatched.
	parsed := make([][]intent.Intent, len(batches))
	for i, b := range batches {
		if parsed[i], err = b.Parse(); err != nil {
			return fmt.Errorf("batch %s: %w", b.Name, err)
		}
	}

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

	jsonOutput, _ := cmd.Flags().GetBool("json")
	var outputs []reportOutput
	for i, b := range batches {
		report, err := eng.Run(ctx, rt.session, parsed[i])
		if err != nil {
			return fmt.Errorf("batch %s: %w", b.Name, err)
		}
		if jsonOutput {
			outputs = append(outputs, newReportOutput(report, b.Name))
			continue
		}
		displayReport(report, b.Name)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(outputs, "", "  ")
		fmt.Println(string(jsonData))
	}
	return nil
}
