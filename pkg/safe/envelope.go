package safe

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"safe-swap/pkg/types"
)

var (
	domainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))
	safeTxTypeHash = crypto.Keccak256Hash([]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))
)

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	uint8Type, _   = abi.NewType("uint8", "", nil)
	addressType, _ = abi.NewType("address", "", nil)

	domainArgs = abi.Arguments{{Type: bytes32Type}, {Type: uint256Type}, {Type: addressType}}
	safeTxArgs = abi.Arguments{
		{Type: bytes32Type}, {Type: addressType}, {Type: uint256Type}, {Type: bytes32Type},
		{Type: uint8Type}, {Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type},
		{Type: addressType}, {Type: addressType}, {Type: uint256Type},
	}
)

// Envelope is a Safe transaction wrapping a batch, ready to be signed.
// Refund fields are always zero: the executor pays for gas.
type Envelope struct {
	Safe      common.Address
	ChainID   uint64
	To        common.Address
	Value     *big.Int
	Data      []byte
	Operation Operation
	SafeTxGas *big.Int
	BaseGas   *big.Int
	GasPrice  *big.Int
	GasToken  common.Address
	Refund    common.Address
	Nonce     uint64

	// Items are the batched transactions, in execution order.
	Items []types.PreparedTransaction
	// ExecGasPrice is the gas price offered by the executing account.
	ExecGasPrice *big.Int
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// DomainSeparator is the EIP-712 domain of the Safe.
func (e *Envelope) DomainSeparator() common.Hash {
	packed, err := domainArgs.Pack(domainTypeHash, new(big.Int).SetUint64(e.ChainID), e.Safe)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(packed)
}

// Hash returns the safeTxHash owners sign.
func (e *Envelope) Hash() common.Hash {
	packed, err := safeTxArgs.Pack(
		safeTxTypeHash,
		e.To,
		orZero(e.Value),
		crypto.Keccak256Hash(e.Data),
		uint8(e.Operation),
		orZero(e.SafeTxGas),
		orZero(e.BaseGas),
		orZero(e.GasPrice),
		e.GasToken,
		e.Refund,
		new(big.Int).SetUint64(e.Nonce),
	)
	if err != nil {
		panic(err)
	}
	domain := e.DomainSeparator()
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domain.Bytes(), crypto.Keccak256(packed))
}

// Sign returns an owner signature over Hash in r||s||v form with v in {27, 28}.
func (e *Envelope) Sign(key *ecdsa.PrivateKey) ([]byte, error) {
	hash := e.Hash()
	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// PackExecTransaction encodes execTransaction for the envelope with the
// given concatenated signatures.
func PackExecTransaction(e *Envelope, signatures []byte) ([]byte, error) {
	return safeContract.Pack("execTransaction",
		e.To,
		orZero(e.Value),
		e.Data,
		uint8(e.Operation),
		orZero(e.SafeTxGas),
		orZero(e.BaseGas),
		orZero(e.GasPrice),
		e.GasToken,
		e.Refund,
		signatures,
	)
}

// Summaries lists the human summaries of the batched items.
func (e *Envelope) Summaries() []string {
	out := make([]string, len(e.Items))
	for i, tx := range e.Items {
		out[i] = tx.Summary
	}
	return out
}
