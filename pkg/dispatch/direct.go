package dispatch

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"safe-swap/pkg/chain"
	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/safe"
)

// gasHeadroom is added on top of the node's estimate, in percent.
const gasHeadroom = 20

// execute simulates execTransaction, then signs and sends it from the
// executor key and waits for the receipt.
func (d *Dispatcher) execute(ctx context.Context, env *safe.Envelope, signature []byte) (common.Hash, error) {
	data, err := safe.PackExecTransaction(env, signature)
	if err != nil {
		return common.Hash{}, xerrors.Wrap(xerrors.CodeExecutionFailed, err, "failed to pack execTransaction")
	}

	from := chain.KeyAddress(d.cfg.ExecutorKey)
	msg := ethereum.CallMsg{From: from, To: &env.Safe, Data: data}

	if _, err := d.backend.CallContract(ctx, msg, nil); err != nil {
		return common.Hash{}, executionError(err, "simulation of execTransaction failed")
	}

	estimate, err := d.backend.EstimateGas(ctx, msg)
	if err != nil {
		return common.Hash{}, executionError(err, "failed to estimate gas")
	}
	gas := estimate * (100 + gasHeadroom) / 100

	txNonce, err := d.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, xerrors.Wrap(xerrors.CodeChainFailure, err, "failed to get nonce")
	}

	gasPrice := env.ExecGasPrice
	if gasPrice == nil {
		if gasPrice, err = d.backend.SuggestGasPrice(ctx); err != nil {
			return common.Hash{}, xerrors.Wrap(xerrors.CodeChainFailure, err, "failed to get gas price")
		}
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    txNonce,
		To:       &env.Safe,
		Value:    new(big.Int),
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	chainID := new(big.Int).SetUint64(env.ChainID)
	signed, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(chainID), d.cfg.ExecutorKey)
	if err != nil {
		return common.Hash{}, xerrors.Wrap(xerrors.CodeConfiguration, err, "failed to sign transaction")
	}

	log := d.log.WithFields(logrus.Fields{
		"tx":    signed.Hash().Hex(),
		"from":  from.Hex(),
		"gas":   gas,
		"nonce": env.Nonce,
	})
	if err := d.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, xerrors.Wrap(xerrors.CodeChainFailure, err, "failed to send transaction")
	}
	log.Info("Sent execTransaction, waiting for receipt")

	receipt, err := chain.WaitReceipt(ctx, d.backend, signed.Hash(), d.cfg.ReceiptInterval)
	if err != nil {
		return signed.Hash(), err
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return signed.Hash(), xerrors.New(xerrors.CodeExecutionFailed, "transaction reverted",
			xerrors.WithMetadata("tx", signed.Hash().Hex()))
	}
	log.WithField("block", receipt.BlockNumber).Debug("Transaction mined")
	return signed.Hash(), nil
}

func executionError(err error, message string) error {
	if chain.IsRevert(err) {
		return xerrors.Wrap(xerrors.CodeExecutionFailed, err, message)
	}
	return xerrors.Wrap(xerrors.CodeChainFailure, err, message)
}
