package parser

import (
	"regexp"
	"strings"

	"safe-swap/pkg/amount"
	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/intent"
)

var (
	sendPattern = regexp.MustCompile(`^(?i)(?:send\s+)?(\d+\.?\d*)\s+([a-z0-9]+)\s+to\s+(\S+)$`)
	buyPattern  = regexp.MustCompile(`^(?i)(?:buy\s+)?(\d+\.?\d*)\s+([a-z0-9]+)\s+with\s+([a-z0-9]+)$`)
	sellPattern = regexp.MustCompile(`^(?i)(?:sell\s+)?(\d+\.?\d*)\s+([a-z0-9]+)\s+for\s+([a-z0-9]+)$`)
)

// ParseSendCommand parses a transfer command
// Examples:
//   - "send 10 USDC to alice.eth"
//   - "0.5 ETH to 0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
func ParseSendCommand(command string) (intent.Intent, error) {
	m := sendPattern.FindStringSubmatch(strings.TrimSpace(command))
	if m == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument,
			"invalid send command format. Expected: 'send <amount> <token> to <receiver>' (e.g., 'send 10 USDC to alice.eth')")
	}
	amt, err := amount.Parse(m[1])
	if err != nil {
		return nil, err
	}
	return intent.Send{Token: NormalizeTokenSymbol(m[2]), Amount: amt, Receiver: m[3]}, nil
}

// ParseBuyCommand parses an exact-output swap
// Examples:
//   - "buy 0.01 WBTC with USDC"
func ParseBuyCommand(command string) (intent.Intent, error) {
	m := buyPattern.FindStringSubmatch(strings.TrimSpace(command))
	if m == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument,
			"invalid buy command format. Expected: 'buy <amount> <token> with <token>' (e.g., 'buy 0.01 WBTC with USDC')")
	}
	amt, err := amount.Parse(m[1])
	if err != nil {
		return nil, err
	}
	return intent.Buy{From: NormalizeTokenSymbol(m[3]), To: NormalizeTokenSymbol(m[2]), Amount: amt}, nil
}

// ParseSellCommand parses an exact-input swap
// Examples:
//   - "sell 500 DAI for WBTC"
func ParseSellCommand(command string) (intent.Intent, error) {
	m := sellPattern.FindStringSubmatch(strings.TrimSpace(command))
	if m == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument,
			"invalid sell command format. Expected: 'sell <amount> <token> for <token>' (e.g., 'sell 500 DAI for WBTC')")
	}
	amt, err := amount.Parse(m[1])
	if err != nil {
		return nil, err
	}
	return intent.Sell{From: NormalizeTokenSymbol(m[2]), To: NormalizeTokenSymbol(m[3]), Amount: amt}, nil
}

// ParseCommand dispatches on the leading verb.
func ParseCommand(command string) (intent.Intent, error) {
	command = strings.TrimSpace(command)
	verb, _, _ := strings.Cut(command, " ")
	switch strings.ToLower(verb) {
	case "send":
		return ParseSendCommand(command)
	case "buy":
		return ParseBuyCommand(command)
	case "sell":
		return ParseSellCommand(command)
	default:
		return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "unknown command %q, expected send, buy or sell", verb)
	}
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}
