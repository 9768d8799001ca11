package quote

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safe-swap/pkg/chain/chaintest"
	"safe-swap/pkg/client"
	"safe-swap/pkg/erc20"
	xerrors "safe-swap/pkg/errors"
)

func uniswapBackend(t *testing.T, quotes map[int64]int64) (*chaintest.Backend, *UniswapSource) {
	net := mainnet(t)
	backend := chaintest.NewBackend(1)
	quoter := common.HexToAddress(net.Uniswap.Quoter)

	handler := func(method string) chaintest.CallFunc {
		return func(data []byte) ([]byte, error) {
			args, err := quoterContract.Methods[method].Inputs.Unpack(data[4:])
			if err != nil {
				return nil, err
			}
			params := abi.ConvertType(args[0], quoteExactInputSingleParams{}).(quoteExactInputSingleParams)
			out, ok := quotes[params.Fee.Int64()]
			if !ok {
				return nil, &chaintest.RevertError{Reason: "no pool"}
			}
			return quoterContract.Methods[method].Outputs.Pack(big.NewInt(out), new(big.Int), uint32(1), big.NewInt(90000))
		}
	}
	backend.Handle(quoter, quoterContract.Methods["quoteExactInputSingle"].ID, handler("quoteExactInputSingle"))

	src, err := NewUniswapSource(backend, net)
	require.NoError(t, err)
	return backend, src
}

func TestUniswapPicksBestTier(t *testing.T) {
	_, src := uniswapBackend(t, map[int64]int64{500: 740000, 3000: 750000})

	q, err := src.Quote(context.Background(), Request{
		ChainID: 1, TokenIn: dai, TokenOut: wbtc,
		Amount: big.NewInt(1000), ExactInput: true, Trader: trader, Slippage: 0.05,
	})
	require.NoError(t, err)

	net := mainnet(t)
	assert.Equal(t, "uniswap-v3 0.30%", q.Route)
	assert.Equal(t, int64(750000), q.AmountOut.Int64())
	assert.Equal(t, common.HexToAddress(net.Uniswap.Router), q.ApprovalTarget)
	assert.Equal(t, common.HexToAddress(net.Uniswap.Router), q.Call.To)
	assert.False(t, q.OutputWrapped)

	method, err := routerContract.MethodById(q.Call.Data[:4])
	require.NoError(t, err)
	assert.Equal(t, "exactInputSingle", method.Name)
	args, err := method.Inputs.Unpack(q.Call.Data[4:])
	require.NoError(t, err)
	params := abi.ConvertType(args[0], exactInputSingleParams{}).(exactInputSingleParams)
	assert.Equal(t, int64(3000), params.Fee.Int64())
	assert.Equal(t, trader, params.Recipient)
	assert.Equal(t, int64(712500), params.AmountOutMinimum.Int64())
}

func TestUniswapNativeRoutesThroughWETH(t *testing.T) {
	_, src := uniswapBackend(t, map[int64]int64{500: 3000_000000})

	q, err := src.Quote(context.Background(), Request{
		ChainID: 1, TokenIn: usdc, TokenOut: eth,
		Amount: big.NewInt(1), ExactInput: true, Trader: trader, Slippage: 0.05,
	})
	require.NoError(t, err)
	assert.True(t, q.OutputWrapped)

	q, err = src.Quote(context.Background(), Request{
		ChainID: 1, TokenIn: eth, TokenOut: usdc,
		Amount: big.NewInt(1), ExactInput: true, Trader: trader, Slippage: 0.05,
	})
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, q.ApprovalTarget)
	assert.False(t, q.NeedsApproval())
}

func TestUniswapNoPool(t *testing.T) {
	_, src := uniswapBackend(t, map[int64]int64{})

	_, err := src.Quote(context.Background(), Request{
		ChainID: 1, TokenIn: dai, TokenOut: wbtc, Amount: big.NewInt(1), ExactInput: true, Slippage: 0.05,
	})
	assert.ErrorIs(t, err, xerrors.ErrNoRoute)
}

func TestUniswapNodeErrorIsUnavailable(t *testing.T) {
	backend, src := uniswapBackend(t, map[int64]int64{3000: 750000})
	quoter := common.HexToAddress(mainnet(t).Uniswap.Quoter)
	backend.Handle(quoter, quoterContract.Methods["quoteExactInputSingle"].ID, func([]byte) ([]byte, error) {
		return nil, &chaintest.NodeError{Code: -32005, Message: "limit exceeded"}
	})

	_, err := src.Quote(context.Background(), Request{
		ChainID: 1, TokenIn: dai, TokenOut: wbtc, Amount: big.NewInt(1), ExactInput: true, Slippage: 0.05,
	})
	assert.ErrorIs(t, err, xerrors.ErrQuoteUnavailable)
	assert.NotErrorIs(t, err, xerrors.ErrNoRoute)
}

func TestUniswapRequiresDeployment(t *testing.T) {
	n := *mainnet(t)
	n.Uniswap = nil
	_, err := NewUniswapSource(chaintest.NewBackend(1), &n)
	assert.ErrorIs(t, err, xerrors.ErrConfiguration)
}

type fakeLiFi struct {
	quote  *client.LiFiQuote
	params client.LiFiQuoteParams
}

func (f *fakeLiFi) GetQuote(_ context.Context, p client.LiFiQuoteParams) (*client.LiFiQuote, error) {
	f.params = p
	return f.quote, nil
}

func TestLiFiSourceMapsQuote(t *testing.T) {
	lq := &client.LiFiQuote{Tool: "1inch"}
	lq.Estimate.FromAmount = "500000000000000000000"
	lq.Estimate.ToAmount = "750000"
	lq.Estimate.ApprovalAddress = router.Hex()
	lq.TransactionRequest.To = router.Hex()
	lq.TransactionRequest.Data = "0xdeadbeef"
	lq.TransactionRequest.Value = "0x00"
	lq.TransactionRequest.GasLimit = "0x30d40"
	lq.TransactionRequest.GasPrice = "0x3b9aca00"

	fake := &fakeLiFi{quote: lq}
	src := NewLiFiSource(fake)

	q, err := src.Quote(context.Background(), Request{
		ChainID: 1, TokenIn: dai, TokenOut: wbtc, Amount: big.NewInt(5), ExactInput: false, Trader: trader, Slippage: 0.05,
	})
	require.NoError(t, err)

	assert.True(t, fake.params.ExactOutput)
	assert.Equal(t, "1inch", q.Route)
	assert.Equal(t, router, q.ApprovalTarget)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, q.Call.Data)
	assert.Equal(t, uint64(200000), q.Call.Gas)
	assert.Equal(t, int64(1_000_000_000), q.Call.GasPrice.Int64())
	assert.Equal(t, int64(0), q.Call.Value.Int64())
	assert.Equal(t, "0.000015", q.Price.String())
}

func TestLiFiSourceRejectsMalformed(t *testing.T) {
	lq := &client.LiFiQuote{}
	lq.Estimate.FromAmount = "abc"
	src := NewLiFiSource(&fakeLiFi{quote: lq})

	_, err := src.Quote(context.Background(), Request{TokenIn: dai, TokenOut: wbtc, Amount: big.NewInt(1), ExactInput: true})
	assert.ErrorIs(t, err, xerrors.ErrQuoteUnavailable)
	assert.Equal(t, "estimate.fromAmount", xerrors.MetadataOf(err, "field"))
}

type fakeOneClick struct {
	quote  *client.OneClickQuote
	params client.OneClickQuoteParams
}

func (f *fakeOneClick) GetQuote(_ context.Context, p client.OneClickQuoteParams) (*client.OneClickQuote, error) {
	f.params = p
	return f.quote, nil
}

func TestOneClickSourceDeposits(t *testing.T) {
	deposit := common.HexToAddress("0x00000000000000000000000000000000000d3b05")
	fake := &fakeOneClick{quote: &client.OneClickQuote{
		DepositAddress: deposit.Hex(),
		AmountIn:       "100000000",
		AmountOut:      "99000000000000000000",
	}}
	src, err := NewOneClickSource(fake, mainnet(t))
	require.NoError(t, err)

	q, err := src.Quote(context.Background(), Request{
		ChainID: 1, TokenIn: usdc, TokenOut: dai, Amount: big.NewInt(100000000), ExactInput: true, Trader: trader,
	})
	require.NoError(t, err)

	assert.Equal(t, "eth", fake.params.Chain)
	assert.Equal(t, trader, fake.params.Recipient)
	assert.False(t, q.NeedsApproval())
	assert.Equal(t, usdc.Address, q.Call.To)

	args, err := erc20.ABI.Methods["transfer"].Inputs.Unpack(q.Call.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, deposit, args[0])
	assert.Equal(t, int64(100000000), args[1].(*big.Int).Int64())

	_, err = src.Quote(context.Background(), Request{TokenIn: usdc, TokenOut: dai, Amount: big.NewInt(1), ExactInput: false})
	assert.ErrorIs(t, err, xerrors.ErrNoRoute)
}

func TestOneClickSourceNative(t *testing.T) {
	deposit := common.HexToAddress("0x00000000000000000000000000000000000d3b05")
	src, err := NewOneClickSource(&fakeOneClick{quote: &client.OneClickQuote{
		DepositAddress: deposit.Hex(),
		AmountOut:      "3000000000",
	}}, mainnet(t))
	require.NoError(t, err)

	q, err := src.Quote(context.Background(), Request{
		TokenIn: eth, TokenOut: usdc, Amount: big.NewInt(1e18), ExactInput: true, Trader: trader,
	})
	require.NoError(t, err)
	assert.Equal(t, deposit, q.Call.To)
	assert.Empty(t, q.Call.Data)
	assert.Equal(t, int64(1e18), q.Call.Value.Int64())
	assert.Equal(t, int64(1e18), q.AmountIn.Int64())
}
