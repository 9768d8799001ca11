package quote

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safe-swap/pkg/erc20"
	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/metrics"
	"safe-swap/pkg/network"
	"safe-swap/pkg/types"
)

var (
	trader = common.HexToAddress("0x5afe00000000000000000000000000000000cafe")
	router = common.HexToAddress("0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE")

	eth  = types.Token{Symbol: "ETH", Address: types.NativeTokenAddress, Decimals: 18}
	weth = types.Token{Symbol: "WETH", Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), Decimals: 18}
	dai  = types.Token{Symbol: "DAI", Address: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Decimals: 18}
	usdc = types.Token{Symbol: "USDC", Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Decimals: 6}
	wbtc = types.Token{Symbol: "WBTC", Address: common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"), Decimals: 8}
)

type fakeSource struct {
	quote *types.SwapQuote
	err   error
	reqs  []Request
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Quote(_ context.Context, req Request) (*types.SwapQuote, error) {
	f.reqs = append(f.reqs, req)
	return f.quote, f.err
}

type fakeApprovals struct {
	allowance *big.Int
	calls     int
	spender   common.Address
}

func (f *fakeApprovals) NeedsApproval(_ context.Context, _ types.Token, _ common.Address, spender common.Address, amount *big.Int) (bool, error) {
	f.calls++
	f.spender = spender
	return f.allowance.Cmp(amount) < 0, nil
}

func mainnet(t *testing.T) *network.Network {
	n, err := network.Default().Lookup(1)
	require.NoError(t, err)
	return n
}

func swapQuote(in, out int64) *types.SwapQuote {
	return &types.SwapQuote{
		Source:         "fake",
		Route:          "Uniswap V3",
		AmountIn:       big.NewInt(in),
		AmountOut:      big.NewInt(out),
		ApprovalTarget: router,
		Call:           types.SwapCall{To: router, Data: []byte{0xde, 0xad, 0xbe, 0xef}},
	}
}

func TestSlippageBounds(t *testing.T) {
	assert.Equal(t, int64(949), MinOutput(big.NewInt(999), 0.05).Int64())
	assert.Equal(t, int64(1049), MaxInput(big.NewInt(999), 0.05).Int64())
	assert.Equal(t, int64(950), MinOutput(big.NewInt(1000), DefaultSlippage).Int64())
	assert.Equal(t, int64(1050), MaxInput(big.NewInt(1000), DefaultSlippage).Int64())
}

func TestSellWithApproval(t *testing.T) {
	src := &fakeSource{quote: swapQuote(0, 750000)}
	src.quote.AmountIn, _ = new(big.Int).SetString("500000000000000000000", 10)
	approvals := &fakeApprovals{allowance: big.NewInt(0)}
	m := metrics.New()
	b := NewBuilder(src, approvals, mainnet(t), WithMetrics(m))

	txs, err := b.BuildSwap(context.Background(), dai, wbtc, decimal.RequireFromString("500"), true, trader)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	approve := txs[0]
	assert.Equal(t, types.TxApprove, approve.Type)
	assert.Equal(t, dai.Address, approve.To)
	assert.Equal(t, "Approve 500 DAI to Uniswap V3 ("+router.Hex()+")", approve.Summary)
	args, err := erc20.ABI.Methods["approve"].Inputs.Unpack(approve.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, router, args[0])
	assert.Equal(t, "500000000000000000000", args[1].(*big.Int).String())

	swap := txs[1]
	assert.Equal(t, types.TxSwap, swap.Type)
	assert.Equal(t, "Swap 500 DAI for at least 0.007125 WBTC", swap.Summary)
	assert.Equal(t, router, swap.To)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, swap.Data)
	assert.Equal(t, int64(0), swap.Value.Int64())

	require.Len(t, src.reqs, 1)
	assert.True(t, src.reqs[0].ExactInput)
	assert.Equal(t, DefaultSlippage, src.reqs[0].Slippage)
	assert.Equal(t, router, approvals.spender)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Quotes.WithLabelValues("fake", "ok")))
}

func TestBuyApprovesMaxSpend(t *testing.T) {
	src := &fakeSource{quote: swapQuote(600_000000, 1_000000)}
	approvals := &fakeApprovals{allowance: big.NewInt(600_000000)}
	b := NewBuilder(src, approvals, mainnet(t))

	txs, err := b.BuildSwap(context.Background(), usdc, wbtc, decimal.RequireFromString("0.01"), false, trader)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	args, err := erc20.ABI.Methods["approve"].Inputs.Unpack(txs[0].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, int64(630_000000), args[1].(*big.Int).Int64())
	assert.Equal(t, "Approve 630 USDC to Uniswap V3 ("+router.Hex()+")", txs[0].Summary)
	assert.Contains(t, txs[0].Summary, router.Hex())
	assert.Equal(t, "Swap at most 630 USDC for 0.01 WBTC", txs[1].Summary)

	assert.False(t, src.reqs[0].ExactInput)
	assert.Equal(t, int64(1_000000), src.reqs[0].Amount.Int64())
}

func TestSufficientAllowanceSkipsApprove(t *testing.T) {
	src := &fakeSource{quote: swapQuote(100_000000, 99_000000)}
	approvals := &fakeApprovals{allowance: big.NewInt(1_000_000_000)}
	b := NewBuilder(src, approvals, mainnet(t))

	txs, err := b.BuildSwap(context.Background(), usdc, dai, decimal.RequireFromString("100"), true, trader)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, types.TxSwap, txs[0].Type)
}

func TestNativeInputCarriesValue(t *testing.T) {
	src := &fakeSource{quote: swapQuote(0, 3000_000000)}
	src.quote.AmountIn, _ = new(big.Int).SetString("1000000000000000000", 10)
	approvals := &fakeApprovals{allowance: big.NewInt(0)}
	b := NewBuilder(src, approvals, mainnet(t))

	txs, err := b.BuildSwap(context.Background(), eth, usdc, decimal.RequireFromString("1"), true, trader)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "1000000000000000000", txs[0].Value.String())
	assert.Equal(t, "Swap 1 ETH for at least 2850 USDC", txs[0].Summary)
	assert.Zero(t, approvals.calls)
}

func TestWrappedOutputAppendsUnwrap(t *testing.T) {
	src := &fakeSource{quote: swapQuote(3000_000000, 1_000000000000000000)}
	src.quote.OutputWrapped = true
	approvals := &fakeApprovals{allowance: big.NewInt(1 << 62)}
	b := NewBuilder(src, approvals, mainnet(t))

	txs, err := b.BuildSwap(context.Background(), usdc, eth, decimal.RequireFromString("3000"), true, trader)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	unwrap := txs[1]
	assert.Equal(t, types.TxUnwrap, unwrap.Type)
	assert.Equal(t, weth.Address, unwrap.To)
	assert.Equal(t, "Unwrap 0.95 WETH to ETH", unwrap.Summary)
	args, err := erc20.ABI.Methods["withdraw"].Inputs.Unpack(unwrap.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, "950000000000000000", args[0].(*big.Int).String())
}

func TestWrapAndUnwrapNeedNoQuote(t *testing.T) {
	src := &fakeSource{err: xerrors.New(xerrors.CodeQuoteUnavailable, "")}
	b := NewBuilder(src, &fakeApprovals{allowance: big.NewInt(0)}, mainnet(t))

	txs, err := b.BuildSwap(context.Background(), eth, weth, decimal.RequireFromString("1.5"), true, trader)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, types.TxWrap, txs[0].Type)
	assert.Equal(t, weth.Address, txs[0].To)
	assert.Equal(t, "1500000000000000000", txs[0].Value.String())
	assert.Equal(t, erc20.PackDeposit(), txs[0].Data)
	assert.Equal(t, "Wrap 1.5 ETH to WETH", txs[0].Summary)

	txs, err = b.BuildSwap(context.Background(), weth, eth, decimal.RequireFromString("2"), false, trader)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, types.TxUnwrap, txs[0].Type)
	assert.Equal(t, int64(0), txs[0].Value.Int64())
	assert.Equal(t, "Unwrap 2 WETH to ETH", txs[0].Summary)

	assert.Empty(t, src.reqs)
}

func TestValidationBeforeQuote(t *testing.T) {
	src := &fakeSource{quote: swapQuote(1, 1)}
	b := NewBuilder(src, &fakeApprovals{allowance: big.NewInt(0)}, mainnet(t))

	_, err := b.BuildSwap(context.Background(), usdc, dai, decimal.RequireFromString("0.0000001"), true, trader)
	assert.ErrorIs(t, err, xerrors.ErrPrecision)

	_, err = b.BuildSwap(context.Background(), usdc, usdc, decimal.RequireFromString("1"), true, trader)
	assert.ErrorIs(t, err, xerrors.ErrInvalidArgument)

	assert.Empty(t, src.reqs)
}

func TestSourceErrorsPropagate(t *testing.T) {
	src := &fakeSource{err: xerrors.New(xerrors.CodeNoRoute, "no route")}
	m := metrics.New()
	b := NewBuilder(src, &fakeApprovals{allowance: big.NewInt(0)}, mainnet(t), WithMetrics(m), WithSlippage(0.01))

	_, err := b.BuildSwap(context.Background(), dai, wbtc, decimal.RequireFromString("1"), true, trader)
	assert.ErrorIs(t, err, xerrors.ErrNoRoute)
	assert.Equal(t, 0.01, src.reqs[0].Slippage)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Quotes.WithLabelValues("fake", "no_route")))
}

func TestApprovalSkippedWithoutTarget(t *testing.T) {
	q := swapQuote(100_000000, 99_000000)
	q.ApprovalTarget = common.Address{}
	approvals := &fakeApprovals{allowance: big.NewInt(0)}
	b := NewBuilder(&fakeSource{quote: q}, approvals, mainnet(t))

	txs, err := b.BuildSwap(context.Background(), usdc, dai, decimal.RequireFromString("100"), true, trader)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Zero(t, approvals.calls)
}
