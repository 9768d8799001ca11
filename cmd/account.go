package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"safe-swap/pkg/safe"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show the configured Safe",
	Long: `Show the owners, threshold and current nonce of the configured Safe and
whether the agent key can execute directly or has to go through the relay.

Examples:
  safe-swap account
  safe-swap account --json`,
	Args: cobra.NoArgs,
	Run:  runAccount,
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

type accountOutput struct {
	Safe      string   `json:"safe"`
	Network   string   `json:"network"`
	ChainID   uint64   `json:"chain_id"`
	Owners    []string `json:"owners"`
	Threshold uint64   `json:"threshold"`
	Nonce     uint64   `json:"nonce"`
	Agent     string   `json:"agent"`
	IsOwner   bool     `json:"agent_is_owner"`
	Mode      string   `json:"mode"`
}

func runAccount(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := commandContext(cmd)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Reading Safe..."
		s.Start()
	}

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		s.Stop()
		printError(err)
		os.Exit(1)
	}
	defer rt.close()

	nonce, err := safe.NewReader(rt.eth).Nonce(ctx, rt.account.Address)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	out := accountOutput{
		Safe:      rt.account.Address.Hex(),
		Network:   rt.network.Name,
		ChainID:   rt.network.ChainID,
		Threshold: rt.account.Threshold,
		Nonce:     nonce,
		Agent:     rt.agent.Hex(),
		IsOwner:   rt.account.IsOwner(rt.agent),
		Mode:      string(rt.mode),
	}
	for _, o := range rt.account.Owners {
		out.Owners = append(out.Owners, o.Hex())
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayAccount(out)
}

func displayAccount(a accountOutput) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        SAFE ACCOUNT")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Safe:            %s\n", color.CyanString(a.Safe))
	fmt.Printf("  Network:         %s (%d)\n", a.Network, a.ChainID)
	fmt.Printf("  Threshold:       %d of %d\n", a.Threshold, len(a.Owners))
	fmt.Printf("  Nonce:           %d\n", a.Nonce)
	fmt.Printf("  Mode:            %s\n", a.Mode)

	agent := color.YellowString(a.Agent)
	if a.IsOwner {
		agent = color.GreenString(a.Agent) + " (owner)"
	}
	fmt.Printf("  Agent:           %s\n", agent)

	fmt.Println("\n  Owners:")
	for _, o := range a.Owners {
		fmt.Printf("    %s\n", color.HiBlackString(o))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
