package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"safe-swap/config"
	"safe-swap/pkg/client"
	"safe-swap/pkg/network"
)

var (
	filterChain  string
	filterSymbol string
	listOneClick bool
)

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List all supported tokens",
	Long: `List the tokens safe-swap can resolve by symbol on each network.

With --oneclick the tokens supported by the 1Click API are listed instead.
You can filter tokens by network or symbol.

Examples:
  safe-swap list-tokens
  safe-swap list-tokens --chain base
  safe-swap list-tokens --symbol USDC
  safe-swap list-tokens --oneclick --chain eth`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by network")
	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
	tokensCmd.Flags().BoolVar(&listOneClick, "oneclick", false, "List tokens supported by the 1Click API")
}

type tokenOutput struct {
	Network string `json:"network"`
	ChainID uint64 `json:"chain_id"`
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := loadConfig(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if listOneClick {
		listOneClickTokens(cmd, cfg, jsonOutput)
		return
	}

	reg, err := network.LoadFile(cfg.NetworksFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	var tokens []tokenOutput
	for _, n := range reg.All() {
		if filterChain != "" && !strings.EqualFold(n.Name, filterChain) {
			continue
		}
		symbols := append([]string{n.NativeSymbol}, n.Symbols()...)
		for _, symbol := range symbols {
			if filterSymbol != "" && !strings.Contains(symbol, strings.ToUpper(filterSymbol)) {
				continue
			}
			address := "native"
			if addr, ok := n.TokenAddress(symbol); ok {
				address = addr.Hex()
			}
			tokens = append(tokens, tokenOutput{Network: n.Name, ChainID: n.ChainID, Symbol: symbol, Address: address})
		}
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(tokens, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayNetworkTokens(tokens)
	}
}

func listOneClickTokens(cmd *cobra.Command, cfg *config.Config, jsonOutput bool) {
	apiClient := client.NewOneClickClient(cfg.OneClickBaseURL, cfg.JWTToken)

	// Get tokens with spinner
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching supported tokens..."
		s.Start()
	}

	tokens, err := apiClient.GetSupportedTokens(commandContext(cmd))
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Apply filters
	filtered := tokens
	if filterChain != "" {
		var temp []oneclick.TokenResponse
		for _, token := range filtered {
			if strings.EqualFold(token.GetBlockchain(), filterChain) {
				temp = append(temp, token)
			}
		}
		filtered = temp
	}

	if filterSymbol != "" {
		var temp []oneclick.TokenResponse
		for _, token := range filtered {
			if strings.Contains(strings.ToUpper(token.GetSymbol()), strings.ToUpper(filterSymbol)) {
				temp = append(temp, token)
			}
		}
		filtered = temp
	}

	// Output
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(filtered, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayTokens(filtered)
	}
}

func displayNetworkTokens(tokens []tokenOutput) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	networks := 0
	current := ""
	for _, t := range tokens {
		if t.Network != current {
			current = t.Network
			networks++
			color.Cyan("\n%s (%d)", strings.ToUpper(t.Network), t.ChainID)
			fmt.Println(strings.Repeat("-", 90))
		}
		fmt.Printf("  %-10s  %s\n", color.YellowString(t.Symbol), color.HiBlackString(t.Address))
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens across %d networks\n\n", len(tokens), networks)
}

func displayTokens(tokens []oneclick.TokenResponse) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	// Group tokens by blockchain
	tokensByChain := make(map[string][]oneclick.TokenResponse)
	for _, token := range tokens {
		chain := token.GetBlockchain()
		tokensByChain[chain] = append(tokensByChain[chain], token)
	}

	// Sort chains alphabetically
	chains := make([]string, 0, len(tokensByChain))
	for chain := range tokensByChain {
		chains = append(chains, chain)
	}
	sort.Strings(chains)

	// Display tokens grouped by chain
	for _, chain := range chains {
		color.Cyan("\n%s", strings.ToUpper(chain))
		fmt.Println(strings.Repeat("-", 90))

		chainTokens := tokensByChain[chain]
		for _, token := range chainTokens {
			symbol := token.GetSymbol()
			decimals := token.GetDecimals()
			address := token.GetContractAddress()

			// Truncate address if too long
			if len(address) > 40 {
				address = address[:37] + "..."
			}

			fmt.Printf("  %-10s  %2.0f decimals  %s\n",
				color.YellowString(symbol),
				decimals,
				color.HiBlackString(address))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens across %d blockchains\n\n", len(tokens), len(chains))
}
