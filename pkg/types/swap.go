package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// SwapCall is the executable call returned by a quote source.
type SwapCall struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	Gas      uint64
	GasPrice *big.Int
}

// SwapQuote is a priced route between two tokens. Quotes are fetched per
// request and never cached.
type SwapQuote struct {
	Source string
	// Route names the exchange or tool the source picked.
	Route     string
	AmountIn  *big.Int
	AmountOut *big.Int
	// Price is output units per input unit, in human amounts.
	Price decimal.Decimal
	// ApprovalTarget is the spender that must be allowed to pull the input
	// token. The zero address means no approval applies.
	ApprovalTarget common.Address
	Call           SwapCall
	// OutputWrapped is set when the route delivers wrapped native instead of
	// the native currency the caller asked for.
	OutputWrapped bool
}

// NeedsApproval reports whether the quote names a spender.
func (q *SwapQuote) NeedsApproval() bool {
	return q.ApprovalTarget != (common.Address{})
}
