package resolver

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	xerrors "safe-swap/pkg/errors"
)

// ENSRegistry is the registry address on Ethereum mainnet.
var ENSRegistry = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

const ensABI = `[
{"inputs":[{"name":"node","type":"bytes32"}],"name":"resolver","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"node","type":"bytes32"}],"name":"addr","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

var ensContract abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(ensABI))
	if err != nil {
		panic(err)
	}
	ensContract = parsed
}

// NameHash implements the ENS namehash algorithm.
func NameHash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = common.BytesToHash(crypto.Keccak256(node.Bytes(), labelHash))
	}
	return node
}

// ENS resolves names through the on-chain registry.
type ENS struct {
	caller   ethereum.ContractCaller
	registry common.Address
}

func NewENS(caller ethereum.ContractCaller) *ENS {
	return &ENS{caller: caller, registry: ENSRegistry}
}

// Resolve returns the address record of name, or the zero address when the
// name has no resolver or no record.
func (e *ENS) Resolve(ctx context.Context, name string) (common.Address, error) {
	node := NameHash(name)

	resolverAddr, err := e.lookup(ctx, e.registry, "resolver", node)
	if err != nil || resolverAddr == (common.Address{}) {
		return common.Address{}, err
	}
	return e.lookup(ctx, resolverAddr, "addr", node)
}

func (e *ENS) lookup(ctx context.Context, contract common.Address, method string, node common.Hash) (common.Address, error) {
	data, err := ensContract.Pack(method, [32]byte(node))
	if err != nil {
		return common.Address{}, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "pack "+method)
	}
	result, err := e.caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return common.Address{}, xerrors.Wrap(xerrors.CodeChainFailure, err, "ens "+method)
	}
	if len(result) == 0 {
		return common.Address{}, nil
	}
	out, err := ensContract.Unpack(method, result)
	if err != nil || len(out) == 0 {
		return common.Address{}, xerrors.Wrap(xerrors.CodeChainFailure, err, "decode ens "+method)
	}
	return out[0].(common.Address), nil
}
