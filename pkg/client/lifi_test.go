package client

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/types"
)

const quoteBody = `{
  "tool": "uniswap",
  "toolDetails": {"name": "Uniswap V3"},
  "estimate": {
    "fromAmount": "500000000000000000000",
    "toAmount": "750000",
    "toAmountMin": "712500",
    "approvalAddress": "0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE"
  },
  "transactionRequest": {
    "to": "0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE",
    "from": "0x0000000000000000000000000000000000000001",
    "data": "0xdeadbeef",
    "value": "0x0",
    "gasPrice": "0x3b9aca00",
    "gasLimit": "0x30d40"
  }
}`

func TestLiFiGetQuote(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(quoteBody))
	}))
	defer srv.Close()

	c := NewLiFiClient(srv.URL, "secret", 5*time.Second)
	q, err := c.GetQuote(context.Background(), LiFiQuoteParams{
		ChainID:     1,
		FromToken:   types.NativeTokenAddress,
		ToToken:     common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"),
		Amount:      big.NewInt(1000),
		FromAddress: common.Address{1},
		Slippage:    0.05,
	})
	require.NoError(t, err)

	assert.Equal(t, "/quote", got.URL.Path)
	assert.Equal(t, "secret", got.Header.Get("x-lifi-api-key"))
	assert.Equal(t, "1000", got.URL.Query().Get("fromAmount"))
	assert.Equal(t, "0.05", got.URL.Query().Get("slippage"))
	assert.Equal(t, common.Address{}.Hex(), got.URL.Query().Get("fromToken"))
	assert.Equal(t, "Uniswap V3", q.ToolDetails.Name)
	assert.Equal(t, "712500", q.Estimate.ToAmountMin)
}

func TestLiFiExactOutputPath(t *testing.T) {
	var path, toAmount string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		toAmount = r.URL.Query().Get("toAmount")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(quoteBody))
	}))
	defer srv.Close()

	c := NewLiFiClient(srv.URL, "", 5*time.Second)
	_, err := c.GetQuote(context.Background(), LiFiQuoteParams{ChainID: 1, Amount: big.NewInt(7), ExactOutput: true})
	require.NoError(t, err)
	assert.Equal(t, "/quote/toAmount", path)
	assert.Equal(t, "7", toAmount)
}

func TestLiFiErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, xerrors.ErrNoRoute},
		{http.StatusBadRequest, xerrors.ErrNoRoute},
		{http.StatusTooManyRequests, xerrors.ErrQuoteUnavailable},
		{http.StatusBadGateway, xerrors.ErrQuoteUnavailable},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"message":"No available quotes for the requested transfer","code":1002}`))
		}))

		c := NewLiFiClient(srv.URL, "", 5*time.Second)
		_, err := c.GetQuote(context.Background(), LiFiQuoteParams{ChainID: 1, Amount: big.NewInt(1)})
		assert.ErrorIs(t, err, tt.want, tt.status)
		assert.Equal(t, "1002", xerrors.MetadataOf(err, "code"))
		srv.Close()
	}
}

func TestLiFiTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewLiFiClient(url, "", time.Second)
	_, err := c.GetQuote(context.Background(), LiFiQuoteParams{ChainID: 1, Amount: big.NewInt(1)})
	assert.ErrorIs(t, err, xerrors.ErrQuoteUnavailable)
}
