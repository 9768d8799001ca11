package quote

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"safe-swap/pkg/chain"
	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/logger"
	"safe-swap/pkg/network"
	"safe-swap/pkg/types"
)

// FeeTiers are the Uniswap V3 pool fees tried for every quote, in hundredths of a bip.
var FeeTiers = []int64{100, 500, 3000, 10000}

const quoterABI = `[
{"inputs":[{"components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"fee","type":"uint24"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"name":"params","type":"tuple"}],"name":"quoteExactInputSingle","outputs":[{"name":"amountOut","type":"uint256"},{"name":"sqrtPriceX96After","type":"uint160"},{"name":"initializedTicksCrossed","type":"uint32"},{"name":"gasEstimate","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amount","type":"uint256"},{"name":"fee","type":"uint24"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"name":"params","type":"tuple"}],"name":"quoteExactOutputSingle","outputs":[{"name":"amountIn","type":"uint256"},{"name":"sqrtPriceX96After","type":"uint160"},{"name":"initializedTicksCrossed","type":"uint32"},{"name":"gasEstimate","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}
]`

const routerABI = `[
{"inputs":[{"components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"recipient","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"amountOutMinimum","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"name":"params","type":"tuple"}],"name":"exactInputSingle","outputs":[{"name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"},
{"inputs":[{"components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"recipient","type":"address"},{"name":"amountOut","type":"uint256"},{"name":"amountInMaximum","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"name":"params","type":"tuple"}],"name":"exactOutputSingle","outputs":[{"name":"amountIn","type":"uint256"}],"stateMutability":"payable","type":"function"},
{"inputs":[{"name":"data","type":"bytes[]"}],"name":"multicall","outputs":[{"name":"results","type":"bytes[]"}],"stateMutability":"payable","type":"function"},
{"inputs":[],"name":"refundETH","outputs":[],"stateMutability":"payable","type":"function"}
]`

var (
	quoterContract abi.ABI
	routerContract abi.ABI
)

func init() {
	var err error
	if quoterContract, err = abi.JSON(strings.NewReader(quoterABI)); err != nil {
		panic(err)
	}
	if routerContract, err = abi.JSON(strings.NewReader(routerABI)); err != nil {
		panic(err)
	}
}

type quoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type quoteExactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Amount            *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountOut         *big.Int
	AmountInMaximum   *big.Int
	SqrtPriceLimitX96 *big.Int
}

// UniswapSource quotes single-pool Uniswap V3 routes on chain. Native
// currency is routed through the wrapped native token.
type UniswapSource struct {
	log    *logrus.Entry
	caller ethereum.ContractCaller
	quoter common.Address
	router common.Address
	weth   common.Address
}

func NewUniswapSource(caller ethereum.ContractCaller, net *network.Network) (*UniswapSource, error) {
	if net.Uniswap == nil {
		return nil, xerrors.Newf(xerrors.CodeConfiguration, "uniswap is not deployed on %s", net.Name)
	}
	weth, ok := net.WrappedNativeAddress()
	if !ok {
		return nil, xerrors.Newf(xerrors.CodeConfiguration, "%s has no wrapped native token", net.Name)
	}
	return &UniswapSource{
		log:    logger.NewSublogger("uniswap"),
		caller: caller,
		quoter: common.HexToAddress(net.Uniswap.Quoter),
		router: common.HexToAddress(net.Uniswap.Router),
		weth:   weth,
	}, nil
}

func (s *UniswapSource) Name() string { return "uniswap" }

func (s *UniswapSource) Quote(ctx context.Context, req Request) (*types.SwapQuote, error) {
	tokenIn := s.poolToken(req.TokenIn)
	tokenOut := s.poolToken(req.TokenOut)
	if tokenIn == tokenOut {
		return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "%s and %s share a pool token", req.TokenIn.Symbol, req.TokenOut.Symbol)
	}

	var bestFee int64
	var best *big.Int
	for _, fee := range FeeTiers {
		quoted, err := s.quoteSingle(ctx, tokenIn, tokenOut, fee, req.Amount, req.ExactInput)
		if err != nil {
			if chain.IsRevert(err) {
				s.log.WithField("fee", fee).Debug("No pool for fee tier")
				continue
			}
			return nil, xerrors.Wrap(xerrors.CodeQuoteUnavailable, err, "uniswap quoter call failed")
		}
		if best == nil || (req.ExactInput && quoted.Cmp(best) > 0) || (!req.ExactInput && quoted.Cmp(best) < 0) {
			best, bestFee = quoted, fee
		}
	}
	if best == nil {
		return nil, xerrors.Newf(xerrors.CodeNoRoute, "no uniswap pool for %s/%s", req.TokenIn.Symbol, req.TokenOut.Symbol)
	}

	fee := big.NewInt(bestFee)
	var amountIn, amountOut *big.Int
	var data []byte
	var err error
	if req.ExactInput {
		amountIn, amountOut = req.Amount, best
		data, err = routerContract.Pack("exactInputSingle", exactInputSingleParams{
			TokenIn:           tokenIn,
			TokenOut:          tokenOut,
			Fee:               fee,
			Recipient:         req.Trader,
			AmountIn:          req.Amount,
			AmountOutMinimum:  MinOutput(best, req.Slippage),
			SqrtPriceLimitX96: new(big.Int),
		})
	} else {
		amountIn, amountOut = best, req.Amount
		data, err = routerContract.Pack("exactOutputSingle", exactOutputSingleParams{
			TokenIn:           tokenIn,
			TokenOut:          tokenOut,
			Fee:               fee,
			Recipient:         req.Trader,
			AmountOut:         req.Amount,
			AmountInMaximum:   MaxInput(best, req.Slippage),
			SqrtPriceLimitX96: new(big.Int),
		})
		// Unspent native input stays in the router unless refunded.
		if err == nil && req.TokenIn.IsNative() {
			data, err = s.withRefund(data)
		}
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeQuoteUnavailable, err, "failed to pack uniswap swap")
	}

	var approval common.Address
	if !req.TokenIn.IsNative() {
		approval = s.router
	}

	return &types.SwapQuote{
		Source:         s.Name(),
		Route:          fmt.Sprintf("uniswap-v3 %s%%", big.NewRat(bestFee, 10000).FloatString(2)),
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		Price:          Price(amountIn, req.TokenIn.Decimals, amountOut, req.TokenOut.Decimals),
		ApprovalTarget: approval,
		Call:           types.SwapCall{To: s.router, Data: data},
		OutputWrapped:  req.TokenOut.IsNative(),
	}, nil
}

func (s *UniswapSource) poolToken(t types.Token) common.Address {
	if t.IsNative() {
		return s.weth
	}
	return t.Address
}

func (s *UniswapSource) quoteSingle(ctx context.Context, tokenIn, tokenOut common.Address, fee int64, amt *big.Int, exactInput bool) (*big.Int, error) {
	var (
		method string
		data   []byte
		err    error
	)
	if exactInput {
		method = "quoteExactInputSingle"
		data, err = quoterContract.Pack(method, quoteExactInputSingleParams{
			TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amt, Fee: big.NewInt(fee), SqrtPriceLimitX96: new(big.Int),
		})
	} else {
		method = "quoteExactOutputSingle"
		data, err = quoterContract.Pack(method, quoteExactOutputSingleParams{
			TokenIn: tokenIn, TokenOut: tokenOut, Amount: amt, Fee: big.NewInt(fee), SqrtPriceLimitX96: new(big.Int),
		})
	}
	if err != nil {
		return nil, err
	}

	result, err := s.caller.CallContract(ctx, ethereum.CallMsg{To: &s.quoter, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	out, err := quoterContract.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("decode %s: empty result", method)
	}
	return out[0].(*big.Int), nil
}

func (s *UniswapSource) withRefund(swap []byte) ([]byte, error) {
	refund, err := routerContract.Pack("refundETH")
	if err != nil {
		return nil, err
	}
	return routerContract.Pack("multicall", [][]byte{swap, refund})
}
