package safe

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/types"
)

// Reader reads Safe state over eth_call.
type Reader struct {
	caller ethereum.ContractCaller
}

func NewReader(caller ethereum.ContractCaller) *Reader {
	return &Reader{caller: caller}
}

// Nonce returns the next nonce the Safe will accept.
func (r *Reader) Nonce(ctx context.Context, safe common.Address) (uint64, error) {
	out, err := r.call(ctx, safe, "nonce")
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

func (r *Reader) Owners(ctx context.Context, safe common.Address) ([]common.Address, error) {
	out, err := r.call(ctx, safe, "getOwners")
	if err != nil {
		return nil, err
	}
	return out[0].([]common.Address), nil
}

func (r *Reader) Threshold(ctx context.Context, safe common.Address) (uint64, error) {
	out, err := r.call(ctx, safe, "getThreshold")
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

// LoadAccount reads owners and threshold of the Safe at addr.
func (r *Reader) LoadAccount(ctx context.Context, addr common.Address, chainID uint64) (types.SmartAccount, error) {
	owners, err := r.Owners(ctx, addr)
	if err != nil {
		return types.SmartAccount{}, err
	}
	threshold, err := r.Threshold(ctx, addr)
	if err != nil {
		return types.SmartAccount{}, err
	}
	return types.SmartAccount{
		Address:   addr,
		ChainID:   chainID,
		Owners:    owners,
		Threshold: threshold,
	}, nil
}

func (r *Reader) call(ctx context.Context, safe common.Address, method string) ([]interface{}, error) {
	data, err := safeContract.Pack(method)
	if err != nil {
		return nil, err
	}
	result, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &safe, Data: data}, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeChainFailure, err, "safe "+method+" failed",
			xerrors.WithMetadata("safe", safe.Hex()))
	}
	out, err := safeContract.Unpack(method, result)
	if err != nil || len(out) == 0 {
		return nil, xerrors.New(xerrors.CodeChainFailure, "unexpected "+method+" result; is "+safe.Hex()+" a Safe?",
			xerrors.WithMetadata("safe", safe.Hex()), xerrors.WithRetryable(false))
	}
	return out, nil
}
