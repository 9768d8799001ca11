// Package chaintest provides an in-memory chain backend for tests.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CallFunc answers an eth_call with the given input.
type CallFunc func(data []byte) ([]byte, error)

type callKey struct {
	to       common.Address
	selector [4]byte
}

// RevertError mimics a node's revert response.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string          { return "execution reverted: " + e.Reason }
func (e *RevertError) ErrorCode() int         { return 3 }
func (e *RevertError) ErrorData() interface{} { return "0x" }

// NodeError mimics a JSON-RPC error that is not a revert, such as a rate
// limit. Like every JSON-RPC error it carries error data.
type NodeError struct {
	Code    int
	Message string
}

func (e *NodeError) Error() string          { return e.Message }
func (e *NodeError) ErrorCode() int         { return e.Code }
func (e *NodeError) ErrorData() interface{} { return nil }

// Backend implements chain.Backend over registered call handlers.
type Backend struct {
	mu sync.Mutex

	ChainIDValue  *big.Int
	GasPrice      *big.Int
	GasEstimate   uint64
	ReceiptStatus uint64
	SendErr       error
	EstimateErr   error

	handlers map[callKey]CallFunc
	counts   map[callKey]int
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	sent     []*types.Transaction
}

func NewBackend(chainID int64) *Backend {
	return &Backend{
		ChainIDValue:  big.NewInt(chainID),
		GasPrice:      big.NewInt(10_000_000_000),
		GasEstimate:   200_000,
		ReceiptStatus: types.ReceiptStatusSuccessful,
		handlers:      make(map[callKey]CallFunc),
		counts:        make(map[callKey]int),
		nonces:        make(map[common.Address]uint64),
		receipts:      make(map[common.Hash]*types.Receipt),
	}
}

// Handle registers fn for calls to `to` whose input starts with selector.
func (b *Backend) Handle(to common.Address, selector []byte, fn CallFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[key(to, selector)] = fn
}

// Calls returns how many times a handler was hit.
func (b *Backend) Calls(to common.Address, selector []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[key(to, selector)]
}

// Sent returns the transactions passed to SendTransaction.
func (b *Backend) Sent() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

func (b *Backend) SetNonce(addr common.Address, nonce uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nonces[addr] = nonce
}

func (b *Backend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("chaintest: unsupported call")
	}
	k := key(*msg.To, msg.Data[:4])

	b.mu.Lock()
	fn, ok := b.handlers[k]
	b.counts[k]++
	b.mu.Unlock()

	if !ok {
		return nil, &RevertError{Reason: fmt.Sprintf("no handler for %s %x", msg.To.Hex(), msg.Data[:4])}
	}
	return fn(msg.Data)
}

func (b *Backend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.GasPrice), nil
}

func (b *Backend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	if b.EstimateErr != nil {
		return 0, b.EstimateErr
	}
	return b.GasEstimate, nil
}

func (b *Backend) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if b.SendErr != nil {
		return b.SendErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	b.receipts[tx.Hash()] = &types.Receipt{
		Status:      b.ReceiptStatus,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(int64(len(b.sent))),
		GasUsed:     tx.Gas(),
	}
	return nil
}

func (b *Backend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (b *Backend) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.ChainIDValue), nil
}

func key(to common.Address, selector []byte) callKey {
	var k callKey
	k.to = to
	copy(k.selector[:], selector)
	return k
}
