package safe

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/logger"
	"safe-swap/pkg/types"
)

// DefaultGasPriceMultiplier is applied to the node's suggested gas price.
const DefaultGasPriceMultiplier = 1.1

// Builder wraps prepared transactions into one MultiSend envelope.
type Builder struct {
	log        *logrus.Entry
	gas        ethereum.GasPricer
	multiSend  common.Address
	multiplier decimal.Decimal
}

type BuilderOption func(*Builder)

// WithGasPriceMultiplier overrides DefaultGasPriceMultiplier.
func WithGasPriceMultiplier(m float64) BuilderOption {
	return func(b *Builder) {
		if m > 0 {
			b.multiplier = decimal.NewFromFloat(m)
		}
	}
}

func NewBuilder(gas ethereum.GasPricer, multiSend common.Address, opts ...BuilderOption) *Builder {
	b := &Builder{
		log:        logger.NewSublogger("safe"),
		gas:        gas,
		multiSend:  multiSend,
		multiplier: decimal.NewFromFloat(DefaultGasPriceMultiplier),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildBatch delegate-calls MultiSend with every transaction in order. The
// envelope value is the sum of the item values.
func (b *Builder) BuildBatch(ctx context.Context, txs []types.PreparedTransaction, account types.SmartAccount, nonce uint64) (*Envelope, error) {
	if len(txs) == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "empty batch")
	}

	data, err := PackMultiSend(txs)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "failed to pack multisend")
	}
	total := new(big.Int)
	for _, tx := range txs {
		total.Add(total, tx.ValueOrZero())
	}
	if total.BitLen() > 256 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "batch value does not fit in uint256")
	}

	suggested, err := b.gas.SuggestGasPrice(ctx)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeChainFailure, err, "failed to get gas price")
	}
	gasPrice := decimal.NewFromBigInt(suggested, 0).Mul(b.multiplier).Floor().BigInt()

	items := make([]types.PreparedTransaction, len(txs))
	copy(items, txs)

	env := &Envelope{
		Safe:         account.Address,
		ChainID:      account.ChainID,
		To:           b.multiSend,
		Value:        total,
		Data:         data,
		Operation:    DelegateCall,
		SafeTxGas:    new(big.Int),
		BaseGas:      new(big.Int),
		GasPrice:     new(big.Int),
		Nonce:        nonce,
		Items:        items,
		ExecGasPrice: gasPrice,
	}
	b.log.WithFields(logrus.Fields{
		"safe":  account.Address.Hex(),
		"nonce": nonce,
		"items": len(items),
	}).Debug("Built multisend batch")
	return env, nil
}
