package intent

import (
	"context"
	"fmt"
	"math/big"

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

// Resolver is implemented by *resolver.Resolver.
type Resolver interface {
	ResolveAddress(ctx context.Context, input string) (types.Address, error)
	ResolveToken(ctx context.Context, symbol string, net *network.Network) (types.Token, error)
}

// SwapBuilder is implemented by *quote.Builder.
type SwapBuilder interface {
	BuildSwap(ctx context.Context, tokenIn, tokenOut types.Token, amt decimal.Decimal, exactInput bool, trader common.Address) ([]types.PreparedTransaction, error)
}

// Expander maps intents to the transactions that carry them out.
type Expander struct {
	log      *logrus.Entry
	resolver Resolver
	swaps    SwapBuilder
	network  *network.Network
	metrics  *metrics.Metrics
}

type Option func(*Expander)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Expander) {
		e.metrics = m
	}
}

func NewExpander(r Resolver, swaps SwapBuilder, net *network.Network, opts ...Option) *Expander {
	e := &Expander{
		log:      logger.NewSublogger("intent"),
		resolver: r,
		swaps:    swaps,
		network:  net,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// step is an intent whose names, tokens and amounts have been checked.
type step struct {
	intent     Intent
	token      types.Token
	tokenOut   types.Token
	amount     decimal.Decimal
	base       *big.Int
	receiver   types.Address
	exactInput bool
}

// Expand returns the transactions for a single intent.
func (e *Expander) Expand(ctx context.Context, in Intent, account types.SmartAccount) ([]types.PreparedTransaction, error) {
	return e.ExpandAll(ctx, []Intent{in}, account)
}

// ExpandAll validates every intent before any quote is requested, then
// expands them in order into one flat list.
func (e *Expander) ExpandAll(ctx context.Context, intents []Intent, account types.SmartAccount) ([]types.PreparedTransaction, error) {
	steps := make([]step, 0, len(intents))
	for i, in := range intents {
		s, err := e.validate(ctx, in)
		if err != nil {
			e.log.WithError(err).WithField("intent", i).Debug("Intent rejected")
			return nil, err
		}
		steps = append(steps, s)
	}

	var txs []types.PreparedTransaction
	for _, s := range steps {
		out, err := e.build(ctx, s, account)
		if err != nil {
			return nil, err
		}
		for _, tx := range out {
			e.metrics.ObserveTransaction(string(tx.Type))
		}
		e.log.WithFields(logrus.Fields{
			"intent":       s.intent.String(),
			"transactions": len(out),
		}).Debug("Expanded intent")
		txs = append(txs, out...)
	}
	return txs, nil
}

func (e *Expander) validate(ctx context.Context, in Intent) (step, error) {
	switch in := in.(type) {
	case Send:
		token, err := e.resolver.ResolveToken(ctx, in.Token, e.network)
		if err != nil {
			return step{}, err
		}
		base, err := e.baseUnits(in.Amount, token)
		if err != nil {
			return step{}, err
		}
		receiver, err := e.resolver.ResolveAddress(ctx, in.Receiver)
		if err != nil {
			return step{}, err
		}
		if receiver.IsZero() {
			return step{}, xerrors.New(xerrors.CodeInvalidArgument, "receiver is the zero address")
		}
		return step{intent: in, token: token, amount: in.Amount, base: base, receiver: receiver}, nil
	case Buy:
		return e.validateSwap(ctx, in, in.From, in.To, in.Amount, in.ExactInput())
	case Sell:
		return e.validateSwap(ctx, in, in.From, in.To, in.Amount, in.ExactInput())
	case nil:
		return step{}, xerrors.New(xerrors.CodeInvalidArgument, "nil intent")
	default:
		panic(fmt.Sprintf("intent: unhandled intent %T", in))
	}
}

func (e *Expander) validateSwap(ctx context.Context, in Intent, from, to string, amt decimal.Decimal, exactInput bool) (step, error) {
	tokenIn, err := e.resolver.ResolveToken(ctx, from, e.network)
	if err != nil {
		return step{}, err
	}
	tokenOut, err := e.resolver.ResolveToken(ctx, to, e.network)
	if err != nil {
		return step{}, err
	}
	if tokenIn.Address == tokenOut.Address {
		return step{}, xerrors.Newf(xerrors.CodeInvalidArgument, "cannot swap %s for itself", tokenIn.Symbol)
	}
	fixed := tokenOut
	if exactInput {
		fixed = tokenIn
	}
	base, err := e.baseUnits(amt, fixed)
	if err != nil {
		return step{}, err
	}
	return step{
		intent:     in,
		token:      tokenIn,
		tokenOut:   tokenOut,
		amount:     amt,
		base:       base,
		exactInput: exactInput,
	}, nil
}

func (e *Expander) baseUnits(amt decimal.Decimal, token types.Token) (*big.Int, error) {
	if !amt.IsPositive() {
		return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "amount must be positive, got %s", amt)
	}
	return amount.ToBaseUnits(amt, token.Decimals)
}

func (e *Expander) build(ctx context.Context, s step, account types.SmartAccount) ([]types.PreparedTransaction, error) {
	switch s.intent.(type) {
	case Send:
		return e.send(s)
	case Buy, Sell:
		return e.swaps.BuildSwap(ctx, s.token, s.tokenOut, s.amount, s.exactInput, account.Address)
	default:
		panic(fmt.Sprintf("intent: unhandled intent %T", s.intent))
	}
}

func (e *Expander) send(s step) ([]types.PreparedTransaction, error) {
	summary := fmt.Sprintf("Transfer %s %s to %s", amount.Format(s.base, s.token.Decimals), s.token.Symbol, s.receiver)
	if s.token.IsNative() {
		return []types.PreparedTransaction{
			types.NewPreparedTransaction(types.TxSend, summary, s.receiver.Common(), s.base, nil),
		}, nil
	}
	data, err := erc20.PackTransfer(s.receiver.Common(), s.base)
	if err != nil {
		return nil, err
	}
	return []types.PreparedTransaction{
		types.NewPreparedTransaction(types.TxSend, summary, s.token.Address, nil, data),
	}, nil
}
