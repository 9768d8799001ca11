package quote

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"safe-swap/pkg/amount"
	"safe-swap/pkg/erc20"
	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/logger"
	"safe-swap/pkg/metrics"
	"safe-swap/pkg/network"
	"safe-swap/pkg/types"
)

// ApprovalChecker decides whether an approve call must precede a swap.
type ApprovalChecker interface {
	NeedsApproval(ctx context.Context, token types.Token, owner, spender common.Address, amount *big.Int) (bool, error)
}

// Builder turns a priced route into the ordered transactions that execute it.
type Builder struct {
	log       *logrus.Entry
	source    Source
	approvals ApprovalChecker
	network   *network.Network
	slippage  float64
	metrics   *metrics.Metrics
}

type BuilderOption func(*Builder)

// WithSlippage overrides DefaultSlippage.
func WithSlippage(slippage float64) BuilderOption {
	return func(b *Builder) {
		b.slippage = slippage
	}
}

func WithMetrics(m *metrics.Metrics) BuilderOption {
	return func(b *Builder) {
		b.metrics = m
	}
}

func NewBuilder(source Source, approvals ApprovalChecker, net *network.Network, opts ...BuilderOption) *Builder {
	b := &Builder{
		log:       logger.NewSublogger("quote"),
		source:    source,
		approvals: approvals,
		network:   net,
		slippage:  DefaultSlippage,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildSwap prices the swap and returns an optional approve, the swap call
// and, when the route pays out wrapped native, a trailing unwrap. Amount is
// of tokenIn when exactInput is set, of tokenOut otherwise.
func (b *Builder) BuildSwap(ctx context.Context, tokenIn, tokenOut types.Token, amt decimal.Decimal, exactInput bool, trader common.Address) ([]types.PreparedTransaction, error) {
	if tokenIn.Address == tokenOut.Address {
		return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "cannot swap %s for itself", tokenIn.Symbol)
	}

	fixed := tokenOut
	if exactInput {
		fixed = tokenIn
	}
	base, err := amount.ToBaseUnits(amt, fixed.Decimals)
	if err != nil {
		return nil, err
	}
	if base.Sign() == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "swap amount must be positive")
	}

	if txs, ok, err := b.wrapOrUnwrap(tokenIn, tokenOut, base); ok {
		return txs, err
	}

	q, err := b.source.Quote(ctx, Request{
		ChainID:    b.network.ChainID,
		TokenIn:    tokenIn,
		TokenOut:   tokenOut,
		Amount:     base,
		ExactInput: exactInput,
		Trader:     trader,
		Slippage:   b.slippage,
	})
	b.metrics.ObserveQuote(b.source.Name(), outcome(err))
	if err != nil {
		return nil, err
	}
	if q == nil || q.AmountIn == nil || q.AmountOut == nil || q.AmountOut.Sign() == 0 {
		return nil, xerrors.Newf(xerrors.CodeQuoteUnavailable, "%s returned an incomplete quote", b.source.Name())
	}

	// Bounds are recomputed locally so the approval and summaries never
	// depend on a source's rounding.
	var spend, receive *big.Int
	if exactInput {
		spend = base
		receive = MinOutput(q.AmountOut, b.slippage)
	} else {
		spend = MaxInput(q.AmountIn, b.slippage)
		receive = base
	}

	b.log.WithFields(logrus.Fields{
		"source":  b.source.Name(),
		"route":   q.Route,
		"in":      amount.Format(q.AmountIn, tokenIn.Decimals),
		"out":     amount.Format(q.AmountOut, tokenOut.Decimals),
		"price":   q.Price.String(),
		"spend":   spend.String(),
		"receive": receive.String(),
	}).Debug("Quote received")

	var txs []types.PreparedTransaction

	if !tokenIn.IsNative() && q.NeedsApproval() {
		need, err := b.approvals.NeedsApproval(ctx, tokenIn, trader, q.ApprovalTarget, spend)
		if err != nil {
			return nil, err
		}
		if need {
			data, err := erc20.PackApprove(q.ApprovalTarget, spend)
			if err != nil {
				return nil, err
			}
			summary := fmt.Sprintf("Approve %s %s to %s", amount.Format(spend, tokenIn.Decimals), tokenIn.Symbol, spenderName(q))
			txs = append(txs, types.NewPreparedTransaction(types.TxApprove, summary, tokenIn.Address, nil, data))
		}
	}

	value := new(big.Int)
	if tokenIn.IsNative() {
		value.Set(spend)
	}

	var summary string
	if exactInput {
		summary = fmt.Sprintf("Swap %s %s for at least %s %s",
			amount.Format(spend, tokenIn.Decimals), tokenIn.Symbol,
			amount.Format(receive, tokenOut.Decimals), tokenOut.Symbol)
	} else {
		summary = fmt.Sprintf("Swap at most %s %s for %s %s",
			amount.Format(spend, tokenIn.Decimals), tokenIn.Symbol,
			amount.Format(receive, tokenOut.Decimals), tokenOut.Symbol)
	}
	swap := types.NewPreparedTransaction(types.TxSwap, summary, q.Call.To, value, q.Call.Data)
	swap.Gas = q.Call.Gas
	if q.Call.GasPrice != nil {
		swap.GasPrice = new(big.Int).Set(q.Call.GasPrice)
	}
	txs = append(txs, swap)

	if q.OutputWrapped {
		unwrap, err := b.unwrap(receive)
		if err != nil {
			return nil, err
		}
		txs = append(txs, unwrap)
	}

	return txs, nil
}

// wrapOrUnwrap handles native <-> wrapped native pairs, which never need a quote.
func (b *Builder) wrapOrUnwrap(tokenIn, tokenOut types.Token, base *big.Int) ([]types.PreparedTransaction, bool, error) {
	switch {
	case tokenIn.IsNative() && b.network.IsWrappedNative(tokenOut.Address):
		summary := fmt.Sprintf("Wrap %s %s to %s", amount.Format(base, tokenIn.Decimals), tokenIn.Symbol, tokenOut.Symbol)
		return []types.PreparedTransaction{
			types.NewPreparedTransaction(types.TxWrap, summary, tokenOut.Address, base, erc20.PackDeposit()),
		}, true, nil
	case b.network.IsWrappedNative(tokenIn.Address) && tokenOut.IsNative():
		tx, err := b.unwrap(base)
		if err != nil {
			return nil, true, err
		}
		return []types.PreparedTransaction{tx}, true, nil
	}
	return nil, false, nil
}

func (b *Builder) unwrap(base *big.Int) (types.PreparedTransaction, error) {
	weth, ok := b.network.WrappedNativeAddress()
	if !ok {
		return types.PreparedTransaction{}, xerrors.Newf(xerrors.CodeConfiguration, "%s has no wrapped native token", b.network.Name)
	}
	data, err := erc20.PackWithdraw(base)
	if err != nil {
		return types.PreparedTransaction{}, err
	}
	summary := fmt.Sprintf("Unwrap %s %s to %s", amount.Format(base, 18), b.network.WrappedNative, b.network.NativeSymbol)
	return types.NewPreparedTransaction(types.TxUnwrap, summary, weth, nil, data), nil
}

// spenderName names the approval target by route and address.
func spenderName(q *types.SwapQuote) string {
	if q.Route != "" {
		return fmt.Sprintf("%s (%s)", q.Route, q.ApprovalTarget.Hex())
	}
	return q.ApprovalTarget.Hex()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(xerrors.CodeOf(err)))
}
