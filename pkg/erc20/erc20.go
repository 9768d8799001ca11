package erc20

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	xerrors "safe-swap/pkg/errors"
)

// Token and WETH9 methods used by the engine.
const tokenABI = `[
{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
{"constant":false,"inputs":[],"name":"deposit","outputs":[],"payable":true,"type":"function"},
{"constant":false,"inputs":[{"name":"wad","type":"uint256"}],"name":"withdraw","outputs":[],"type":"function"}
]`

// ABI is the parsed token ABI.
var ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		panic(err)
	}
	ABI = parsed
}

// Selector returns the 4-byte id of method.
func Selector(method string) []byte {
	return ABI.Methods[method].ID
}

func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return pack("transfer", to, amount)
}

func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return pack("approve", spender, amount)
}

// PackDeposit wraps the attached native value.
func PackDeposit() []byte {
	data, _ := pack("deposit")
	return data
}

// PackWithdraw unwraps amount into the native currency.
func PackWithdraw(amount *big.Int) ([]byte, error) {
	return pack("withdraw", amount)
}

func pack(method string, args ...interface{}) ([]byte, error) {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "failed to pack "+method)
	}
	return data, nil
}

// Reader performs read-only token calls.
type Reader struct {
	caller ethereum.ContractCaller
}

func NewReader(caller ethereum.ContractCaller) *Reader {
	return &Reader{caller: caller}
}

func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := r.call(ctx, token, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (r *Reader) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	out, err := r.call(ctx, token, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (r *Reader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := r.call(ctx, token, "decimals")
	if err != nil {
		return 0, err
	}
	return out[0].(uint8), nil
}

func (r *Reader) Symbol(ctx context.Context, token common.Address) (string, error) {
	out, err := r.call(ctx, token, "symbol")
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

func (r *Reader) call(ctx context.Context, token common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := pack(method, args...)
	if err != nil {
		return nil, err
	}

	result, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeChainFailure, err, "failed to call "+method+" on "+token.Hex())
	}

	out, err := ABI.Unpack(method, result)
	if err != nil || len(out) == 0 {
		return nil, xerrors.Wrap(xerrors.CodeChainFailure, err, "failed to decode "+method+" from "+token.Hex())
	}
	return out, nil
}
