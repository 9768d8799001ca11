package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxType tags what a prepared transaction does.
type TxType string

const (
	TxSend    TxType = "send"
	TxApprove TxType = "approve"
	TxSwap    TxType = "swap"
	TxWrap    TxType = "wrap"
	TxUnwrap  TxType = "unwrap"
)

// PreparedTransaction is a single call ready to be placed into a batch.
// Values are copied on construction and must not be mutated afterwards.
type PreparedTransaction struct {
	Type    TxType
	Summary string
	To      common.Address
	Value   *big.Int
	Data    []byte
	// Gas and GasPrice are optional hints carried from a quote.
	Gas      uint64
	GasPrice *big.Int
}

// NewPreparedTransaction copies value and data into a new transaction.
func NewPreparedTransaction(typ TxType, summary string, to common.Address, value *big.Int, data []byte) PreparedTransaction {
	v := new(big.Int)
	if value != nil {
		v.Set(value)
	}
	return PreparedTransaction{
		Type:    typ,
		Summary: summary,
		To:      to,
		Value:   v,
		Data:    common.CopyBytes(data),
	}
}

// ValueOrZero never returns nil.
func (t PreparedTransaction) ValueOrZero() *big.Int {
	if t.Value == nil {
		return new(big.Int)
	}
	return t.Value
}
