package safe

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"safe-swap/pkg/types"
)

// Operation is the Safe call type.
type Operation uint8

const (
	Call         Operation = 0
	DelegateCall Operation = 1
)

// MultiSendCall is one element of a packed multiSend payload.
type MultiSendCall struct {
	Operation Operation
	To        common.Address
	Value     *big.Int
	Data      []byte
}

const multiSendHeader = 1 + common.AddressLength + 32 + 32

// EncodeMultiSend packs txs as operation(1) to(20) value(32) length(32) data.
// Every element is a plain call. Values must fit in a uint256 word.
func EncodeMultiSend(txs []types.PreparedTransaction) ([]byte, error) {
	var out []byte
	for i, tx := range txs {
		value := tx.ValueOrZero()
		if value.Sign() < 0 || value.BitLen() > 256 {
			return nil, fmt.Errorf("multisend: value of call %d does not fit in uint256", i)
		}
		out = append(out, byte(Call))
		out = append(out, tx.To.Bytes()...)
		out = append(out, common.LeftPadBytes(value.Bytes(), 32)...)
		out = append(out, common.LeftPadBytes(big.NewInt(int64(len(tx.Data))).Bytes(), 32)...)
		out = append(out, tx.Data...)
	}
	return out, nil
}

// DecodeMultiSend splits a packed payload back into its calls.
func DecodeMultiSend(packed []byte) ([]MultiSendCall, error) {
	var calls []MultiSendCall
	for off := 0; off < len(packed); {
		if len(packed)-off < multiSendHeader {
			return nil, fmt.Errorf("multisend: truncated header at offset %d", off)
		}
		op := Operation(packed[off])
		to := common.BytesToAddress(packed[off+1 : off+21])
		value := new(big.Int).SetBytes(packed[off+21 : off+53])
		lenWord := packed[off+53 : off+85]
		if new(big.Int).SetBytes(lenWord[:24]).Sign() != 0 {
			return nil, fmt.Errorf("multisend: data length overflow at offset %d", off)
		}
		n := binary.BigEndian.Uint64(lenWord[24:])
		off += multiSendHeader
		if uint64(len(packed)-off) < n {
			return nil, fmt.Errorf("multisend: truncated data at offset %d", off)
		}
		calls = append(calls, MultiSendCall{
			Operation: op,
			To:        to,
			Value:     value,
			Data:      common.CopyBytes(packed[off : off+int(n)]),
		})
		off += int(n)
	}
	return calls, nil
}

// PackMultiSend returns the multiSend(bytes) call data for txs.
func PackMultiSend(txs []types.PreparedTransaction) ([]byte, error) {
	packed, err := EncodeMultiSend(txs)
	if err != nil {
		return nil, err
	}
	return multiSendContract.Pack("multiSend", packed)
}

// UnpackMultiSend decodes multiSend(bytes) call data.
func UnpackMultiSend(data []byte) ([]MultiSendCall, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("multisend: short call data")
	}
	method, err := multiSendContract.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	return DecodeMultiSend(args[0].([]byte))
}
