package quote

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"safe-swap/pkg/client"
	"safe-swap/pkg/erc20"
	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/network"
	"safe-swap/pkg/types"
)

// OneClickQuoter is implemented by *client.OneClickClient.
type OneClickQuoter interface {
	GetQuote(ctx context.Context, p client.OneClickQuoteParams) (*client.OneClickQuote, error)
}

// OneClickSource prices swaps through NEAR Intents 1Click. The swap leg is a
// plain deposit into the quote's deposit address, so no approval is needed.
type OneClickSource struct {
	client OneClickQuoter
	chain  string
}

func NewOneClickSource(c OneClickQuoter, net *network.Network) (*OneClickSource, error) {
	if net.OneClickChain == "" {
		return nil, xerrors.Newf(xerrors.CodeConfiguration, "1click does not serve %s", net.Name)
	}
	return &OneClickSource{client: c, chain: net.OneClickChain}, nil
}

func (s *OneClickSource) Name() string { return "oneclick" }

func (s *OneClickSource) Quote(ctx context.Context, req Request) (*types.SwapQuote, error) {
	if !req.ExactInput {
		return nil, xerrors.New(xerrors.CodeNoRoute, "1click only quotes exact input swaps")
	}

	q, err := s.client.GetQuote(ctx, client.OneClickQuoteParams{
		Chain:     s.chain,
		FromToken: req.TokenIn.Address,
		ToToken:   req.TokenOut.Address,
		Amount:    req.Amount,
		Recipient: req.Trader,
		RefundTo:  req.Trader,
	})
	if err != nil {
		return nil, err
	}

	if !common.IsHexAddress(q.DepositAddress) {
		return nil, malformed("depositAddress", q.DepositAddress)
	}
	deposit := common.HexToAddress(q.DepositAddress)

	amountOut, ok := new(big.Int).SetString(q.AmountOut, 10)
	if !ok {
		return nil, malformed("amountOut", q.AmountOut)
	}
	amountIn := new(big.Int).Set(req.Amount)
	if parsed, ok := new(big.Int).SetString(q.AmountIn, 10); ok {
		amountIn = parsed
	}

	call := types.SwapCall{To: deposit, Value: new(big.Int)}
	if req.TokenIn.IsNative() {
		call.Value = new(big.Int).Set(req.Amount)
	} else {
		data, err := erc20.PackTransfer(deposit, req.Amount)
		if err != nil {
			return nil, err
		}
		call.To = req.TokenIn.Address
		call.Data = data
	}

	return &types.SwapQuote{
		Source:    s.Name(),
		Route:     "1click " + deposit.Hex(),
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Price:     Price(amountIn, req.TokenIn.Decimals, amountOut, req.TokenOut.Decimals),
		Call:      call,
	}, nil
}
