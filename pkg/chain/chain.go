package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/logger"
)

// Backend is the subset of an Ethereum JSON-RPC client the engine uses.
// *ethclient.Client satisfies it.
type Backend interface {
	ethereum.ContractCaller
	ethereum.GasPricer
	ethereum.GasEstimator
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// ReceiptReader fetches transaction receipts.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Dial connects to an RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, xerrors.New(xerrors.CodeConfiguration, "RPC URL not configured")
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeChainFailure, err, "failed to connect to RPC endpoint")
	}
	return client, nil
}

// ParsePrivateKey accepts a hex key with or without the 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "invalid private key")
	}
	return key, nil
}

// KeyAddress derives the account address of key.
func KeyAddress(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// revertCode is the JSON-RPC error code geth uses for reverted calls.
const revertCode = 3

// IsRevert reports whether err is a contract revert returned by the node,
// as opposed to a transport or node failure. Every JSON-RPC error carries
// error data, so only the revert code or the node's revert message count.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		if rpcErr.ErrorCode() == revertCode {
			return true
		}
		return strings.HasPrefix(rpcErr.Error(), "execution reverted")
	}
	return false
}

// WaitReceipt polls for the receipt of hash until it is mined or ctx is done.
func WaitReceipt(ctx context.Context, reader ReceiptReader, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	log := logger.NewSublogger("chain")

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = 8 * interval
	b.MaxElapsedTime = 0

	var receipt *types.Receipt
	err := backoff.Retry(func() error {
		r, err := reader.TransactionReceipt(ctx, hash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				log.WithField("tx", hash.Hex()).Debug("Receipt not available yet")
				return err
			}
			return backoff.Permanent(err)
		}
		receipt = r
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeChainFailure, err, "wait for receipt of "+hash.Hex())
	}
	return receipt, nil
}
