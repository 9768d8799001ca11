package quote

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"safe-swap/pkg/client"
	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/types"
)

// LiFiQuoter is implemented by *client.LiFiClient.
type LiFiQuoter interface {
	GetQuote(ctx context.Context, p client.LiFiQuoteParams) (*client.LiFiQuote, error)
}

// LiFiSource prices swaps through the Li.Fi aggregator. Its call data is
// used verbatim.
type LiFiSource struct {
	client LiFiQuoter
}

func NewLiFiSource(c LiFiQuoter) *LiFiSource {
	return &LiFiSource{client: c}
}

func (s *LiFiSource) Name() string { return "lifi" }

func (s *LiFiSource) Quote(ctx context.Context, req Request) (*types.SwapQuote, error) {
	lq, err := s.client.GetQuote(ctx, client.LiFiQuoteParams{
		ChainID:     req.ChainID,
		FromToken:   req.TokenIn.Address,
		ToToken:     req.TokenOut.Address,
		Amount:      req.Amount,
		FromAddress: req.Trader,
		Slippage:    req.Slippage,
		ExactOutput: !req.ExactInput,
	})
	if err != nil {
		return nil, err
	}

	amountIn, ok := new(big.Int).SetString(lq.Estimate.FromAmount, 10)
	if !ok {
		return nil, malformed("estimate.fromAmount", lq.Estimate.FromAmount)
	}
	amountOut, ok := new(big.Int).SetString(lq.Estimate.ToAmount, 10)
	if !ok {
		return nil, malformed("estimate.toAmount", lq.Estimate.ToAmount)
	}
	if !common.IsHexAddress(lq.TransactionRequest.To) {
		return nil, malformed("transactionRequest.to", lq.TransactionRequest.To)
	}
	data, err := hexutil.Decode(lq.TransactionRequest.Data)
	if err != nil {
		return nil, malformed("transactionRequest.data", lq.TransactionRequest.Data)
	}
	value, ok := parseQuantity(lq.TransactionRequest.Value)
	if !ok {
		return nil, malformed("transactionRequest.value", lq.TransactionRequest.Value)
	}
	var gas uint64
	if g, ok := parseQuantity(lq.TransactionRequest.GasLimit); ok {
		gas = g.Uint64()
	}
	gasPrice, ok := parseQuantity(lq.TransactionRequest.GasPrice)
	if !ok || gasPrice.Sign() == 0 {
		gasPrice = nil
	}

	var approval common.Address
	if common.IsHexAddress(lq.Estimate.ApprovalAddress) {
		approval = common.HexToAddress(lq.Estimate.ApprovalAddress)
	}

	route := lq.ToolDetails.Name
	if route == "" {
		route = lq.Tool
	}

	return &types.SwapQuote{
		Source:         s.Name(),
		Route:          route,
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		Price:          Price(amountIn, req.TokenIn.Decimals, amountOut, req.TokenOut.Decimals),
		ApprovalTarget: approval,
		Call: types.SwapCall{
			To:       common.HexToAddress(lq.TransactionRequest.To),
			Data:     data,
			Value:    value,
			Gas:      gas,
			GasPrice: gasPrice,
		},
	}, nil
}

// parseQuantity accepts 0x-prefixed hex (leading zeros allowed) or decimal.
func parseQuantity(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), true
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2 {
			return new(big.Int), true
		}
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}

func malformed(field, value string) error {
	return xerrors.New(xerrors.CodeQuoteUnavailable, "malformed quote field "+field,
		xerrors.WithMetadata("field", field), xerrors.WithMetadata("value", value))
}
