// Package safe builds, hashes, signs and reads Safe multisig transactions.
package safe

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const safeABI = `[
{"inputs":[],"name":"nonce","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"getOwners","outputs":[{"name":"","type":"address[]"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"getThreshold","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"operation","type":"uint8"},{"name":"safeTxGas","type":"uint256"},{"name":"baseGas","type":"uint256"},{"name":"gasPrice","type":"uint256"},{"name":"gasToken","type":"address"},{"name":"refundReceiver","type":"address"},{"name":"signatures","type":"bytes"}],"name":"execTransaction","outputs":[{"name":"success","type":"bool"}],"stateMutability":"payable","type":"function"}
]`

const multiSendABI = `[
{"inputs":[{"name":"transactions","type":"bytes"}],"name":"multiSend","outputs":[],"stateMutability":"payable","type":"function"}
]`

var (
	safeContract      abi.ABI
	multiSendContract abi.ABI
)

func init() {
	var err error
	if safeContract, err = abi.JSON(strings.NewReader(safeABI)); err != nil {
		panic(err)
	}
	if multiSendContract, err = abi.JSON(strings.NewReader(multiSendABI)); err != nil {
		panic(err)
	}
}

// Selector returns the 4-byte id of a Safe method.
func Selector(method string) []byte {
	return safeContract.Methods[method].ID
}
