package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"safe-swap/config"
	"safe-swap/pkg/chain"
	"safe-swap/pkg/client"
	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/network"
	"safe-swap/pkg/relay"
)

var (
	watchStatus    bool
	watchInterval  int
	relayStatus    bool
	oneClickStatus bool
)

var statusCmd = &cobra.Command{
	Use:   "status <hash>",
	Short: "Check the status of a batch",
	Long: `Check the status of a batch by its hash.

By default the argument is an on-chain transaction hash and its receipt is shown.
With --relay the argument is a Safe transaction hash proposed to the transaction
service. With --oneclick the argument is a 1Click deposit address.

Examples:
  safe-swap status 0x1234...abcd
  safe-swap status 0x1234...abcd --relay
  safe-swap status 0x1234...abcd --oneclick --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously (with --oneclick)")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
	statusCmd.Flags().BoolVar(&relayStatus, "relay", false, "Look up a Safe transaction hash on the transaction service")
	statusCmd.Flags().BoolVar(&oneClickStatus, "oneclick", false, "Look up a 1Click deposit address")
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := commandContext(cmd)

	var err error
	switch {
	case oneClickStatus:
		err = runOneClickStatus(cmd, args[0], jsonOutput)
	case relayStatus:
		err = runRelayStatus(cmd, args[0], jsonOutput)
	default:
		err = runReceiptStatus(ctx, cmd, args[0], jsonOutput)
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, xerrors.Newf(xerrors.CodeInvalidArgument, "%q is not a transaction hash", s)
	}
	return common.BytesToHash(b), nil
}

type receiptOutput struct {
	TxHash      string `json:"tx_hash"`
	Status      string `json:"status"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	GasUsed     uint64 `json:"gas_used,omitempty"`
}

func runReceiptStatus(ctx context.Context, cmd *cobra.Command, arg string, jsonOutput bool) error {
	hash, err := parseHash(arg)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	eth, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return err
	}
	defer eth.Close()

	out := receiptOutput{TxHash: hash.Hex(), Status: "PENDING"}
	receipt, err := eth.TransactionReceipt(ctx, hash)
	switch {
	case errors.Is(err, ethereum.NotFound):
	case err != nil:
		return xerrors.Wrap(xerrors.CodeChainFailure, err, "failed to get receipt")
	default:
		out.Status = "SUCCESS"
		if receipt.Status != ethtypes.ReceiptStatusSuccessful {
			out.Status = "FAILED"
		}
		out.BlockNumber = receipt.BlockNumber.Uint64()
		out.GasUsed = receipt.GasUsed
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
		return nil
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("\n  Tx Hash:         %s\n", color.CyanString(out.TxHash))
	fmt.Printf("  Status:          %s\n", getColoredStatus(out.Status))
	if out.BlockNumber > 0 {
		fmt.Printf("  Block:           %d\n", out.BlockNumber)
		fmt.Printf("  Gas Used:        %d\n", out.GasUsed)
	}
	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
	return nil
}

func runRelayStatus(cmd *cobra.Command, arg string, jsonOutput bool) error {
	hash, err := parseHash(arg)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	serviceURL, err := txServiceURL(commandContext(cmd), cfg)
	if err != nil {
		return err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking transaction service..."
		s.Start()
	}
	status, err := relay.NewClient(serviceURL, 0).Status(commandContext(cmd), hash)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(jsonData))
		return nil
	}
	displayRelayStatus(status)
	return nil
}

// txServiceURL falls back to the service listed for the connected network.
func txServiceURL(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.TxServiceURL != "" {
		return cfg.TxServiceURL, nil
	}
	eth, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return "", err
	}
	defer eth.Close()
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeChainFailure, err, "failed to get chain id")
	}
	reg, err := network.LoadFile(cfg.NetworksFile)
	if err != nil {
		return "", err
	}
	net, err := reg.Lookup(chainID.Uint64())
	if err != nil {
		return "", err
	}
	if net.TxServiceURL == "" {
		return "", xerrors.Newf(xerrors.CodeConfiguration,
			"no transaction service known for %s. Please set SAFE_SWAP_TX_SERVICE_URL", net.Name)
	}
	return net.TxServiceURL, nil
}

func relayState(status *relay.TransactionStatus) string {
	switch {
	case !status.IsExecuted:
		return "PENDING"
	case status.IsSuccessful != nil && !*status.IsSuccessful:
		return "FAILED"
	default:
		return "SUCCESS"
	}
}

func displayRelayStatus(status *relay.TransactionStatus) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     SAFE TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Safe Tx Hash:    %s\n", color.CyanString(status.SafeTxHash))
	fmt.Printf("  Safe:            %s\n", status.Safe)
	fmt.Printf("  Nonce:           %d\n", status.Nonce)
	fmt.Printf("  Status:          %s\n", getColoredStatus(relayState(status)))
	fmt.Printf("  Confirmations:   %d of %d\n", len(status.Confirmations), status.ConfirmationsRequired)
	for _, c := range status.Confirmations {
		fmt.Printf("    %s\n", color.HiBlackString(c.Owner))
	}
	if status.TransactionHash != "" {
		fmt.Printf("  Tx Hash:         %s\n", color.HiBlackString(status.TransactionHash))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func runOneClickStatus(cmd *cobra.Command, depositAddress string, jsonOutput bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JWTToken == "" {
		return xerrors.New(xerrors.CodeConfiguration, "JWT token not found. Please set SAFE_SWAP_JWT_TOKEN")
	}

	// Create client
	apiClient := client.NewOneClickClient(cfg.OneClickBaseURL, cfg.JWTToken)
	ctx := commandContext(cmd)

	if watchStatus {
		watchSwapStatus(ctx, apiClient, depositAddress, jsonOutput)
	} else {
		checkSwapStatus(ctx, apiClient, depositAddress, jsonOutput)
	}
	return nil
}

func checkSwapStatus(ctx context.Context, apiClient *client.OneClickClient, depositAddress string, jsonOutput bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking swap status..."
		s.Start()
	}

	status, err := apiClient.GetSwapStatus(ctx, depositAddress)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayStatus(status, depositAddress)
	}
}

func watchSwapStatus(ctx context.Context, apiClient *client.OneClickClient, depositAddress string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching swap status (Deposit Address: %s)\n", color.CyanString(depositAddress))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	checkAndDisplayStatus(ctx, apiClient, depositAddress)

	// Then check periodically
	for range ticker.C {
		checkAndDisplayStatus(ctx, apiClient, depositAddress)
	}
}

func checkAndDisplayStatus(ctx context.Context, apiClient *client.OneClickClient, depositAddress string) {
	status, err := apiClient.GetSwapStatus(ctx, depositAddress)
	if err != nil {
		color.Red("Error: %v", err)
		return
	}

	displayStatus(status, depositAddress)
}

func displayStatus(status *oneclick.GetExecutionStatusResponse, depositAddress string) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        SWAP STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Deposit Address: %s\n", color.CyanString(depositAddress))
	fmt.Printf("  Status:          %s\n", getColoredStatus(status.GetStatus()))
	fmt.Printf("  Last Updated:    %s\n", status.GetUpdatedAt().Format("2006-01-02 15:04:05"))

	// Display swap details if available
	swapDetails := status.GetSwapDetails()

	// Display origin chain transactions (deposits)
	originTxs := swapDetails.GetOriginChainTxHashes()
	if len(originTxs) > 0 {
		for _, tx := range originTxs {
			hash := tx.GetHash()
			if hash != "" {
				fmt.Printf("  Deposit Tx:      %s\n", color.HiBlackString(hash))
			}
		}
	}

	// Display destination chain transactions (withdrawals)
	destTxs := swapDetails.GetDestinationChainTxHashes()
	if len(destTxs) > 0 {
		for _, tx := range destTxs {
			hash := tx.GetHash()
			if hash != "" {
				fmt.Printf("  Withdrawal Tx:   %s\n", color.HiBlackString(hash))
			}
		}
	}

	// Display amounts if available
	if swapDetails.HasAmountInFormatted() {
		fmt.Printf("  Amount In:       %s\n", swapDetails.GetAmountInFormatted())
	}
	if swapDetails.HasAmountOutFormatted() {
		fmt.Printf("  Amount Out:      %s\n", swapDetails.GetAmountOutFormatted())
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch status {
	case "SUCCESS", "COMPLETED":
		return color.GreenString(status)
	case "PENDING_DEPOSIT", "PENDING", "PROCESSING":
		return color.YellowString(status)
	case "FAILED", "REFUNDED":
		return color.RedString(status)
	case "INCOMPLETE_DEPOSIT":
		return color.MagentaString(status)
	default:
		return status
	}
}
