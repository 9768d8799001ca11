package quote

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"safe-swap/pkg/amount"
	"safe-swap/pkg/types"
)

// DefaultSlippage is the tolerated price movement between quote and execution.
const DefaultSlippage = 0.05

// Request asks a source to price a same-chain swap.
type Request struct {
	ChainID  uint64
	TokenIn  types.Token
	TokenOut types.Token
	// Amount is in base units of TokenIn for exact input, of TokenOut otherwise.
	Amount     *big.Int
	ExactInput bool
	Trader     common.Address
	Slippage   float64
}

// Source prices swaps and returns the call that executes them.
type Source interface {
	Name() string
	Quote(ctx context.Context, req Request) (*types.SwapQuote, error)
}

// MinOutput returns out*(1-slippage), rounded down.
func MinOutput(out *big.Int, slippage float64) *big.Int {
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(slippage))
	return decimal.NewFromBigInt(out, 0).Mul(factor).Floor().BigInt()
}

// MaxInput returns in*(1+slippage), rounded up.
func MaxInput(in *big.Int, slippage float64) *big.Int {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(slippage))
	return decimal.NewFromBigInt(in, 0).Mul(factor).Ceil().BigInt()
}

// Price is the output amount per unit of input in human units.
func Price(in *big.Int, inDecimals uint8, out *big.Int, outDecimals uint8) decimal.Decimal {
	if in == nil || in.Sign() == 0 || out == nil {
		return decimal.Zero
	}
	return amount.ToDecimal(out, outDecimals).DivRound(amount.ToDecimal(in, inDecimals), 18)
}
