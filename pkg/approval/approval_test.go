package approval

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safe-swap/pkg/types"
)

func request() Request {
	return Request{
		Safe:  common.HexToAddress("0x5afe00000000000000000000000000000000cafe"),
		Nonce: 12,
		Items: []types.PreparedTransaction{
			{Type: types.TxApprove, Summary: "Approve 500 DAI to Uniswap V3"},
			{Type: types.TxSwap, Summary: "Swap 500 DAI for at least 0.007125 WBTC"},
		},
	}
}

func TestLines(t *testing.T) {
	assert.Equal(t, []string{
		"1. Approve 500 DAI to Uniswap V3 (nonce: 12)",
		"2. Swap 500 DAI for at least 0.007125 WBTC (nonce: 12)",
	}, Lines(request()))
}

func TestConsoleResponses(t *testing.T) {
	tests := []struct {
		input string
		want  Decision
	}{
		{"y\n", Decision{Approved: true}},
		{"YES\n", Decision{Approved: true}},
		{"n\n", Decision{}},
		{"\n", Decision{}},
		{"use USDC instead\n", Decision{Feedback: "use USDC instead"}},
		{"y", Decision{Approved: true}},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := NewConsole(strings.NewReader(tt.input), &out).Approve(context.Background(), request())
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
		assert.Contains(t, out.String(), "2. Swap 500 DAI for at least 0.007125 WBTC (nonce: 12)")
		assert.Contains(t, out.String(), "Respond (y/n) or write feedback:")
	}
}

func TestConsoleClosedInput(t *testing.T) {
	_, err := NewConsole(strings.NewReader(""), &bytes.Buffer{}).Approve(context.Background(), request())
	assert.Error(t, err)
}

func TestAutoApprove(t *testing.T) {
	d, err := AutoApprove.Approve(context.Background(), request())
	require.NoError(t, err)
	assert.True(t, d.Approved)
}
