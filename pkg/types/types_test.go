package types

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestAddressString(t *testing.T) {
	raw := common.HexToAddress("0xd8da6bf26964af9d7eed9e03e53415d37aa96045")
	plain := NewAddress(raw)
	named := NamedAddress("Vitalik.eth", raw)

	assert.Equal(t, "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", plain.Hex())
	assert.Equal(t, "vitalik.eth (0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045)", fmt.Sprint(named))
	assert.True(t, plain.Equal(named))
	assert.False(t, plain.IsZero())
}

func TestPreparedTransactionCopies(t *testing.T) {
	value := big.NewInt(5)
	data := []byte{1, 2, 3}
	tx := NewPreparedTransaction(TxSend, "Transfer", common.Address{1}, value, data)

	value.SetInt64(9)
	data[0] = 7

	assert.Equal(t, int64(5), tx.Value.Int64())
	assert.Equal(t, []byte{1, 2, 3}, tx.Data)
	assert.Equal(t, int64(0), PreparedTransaction{}.ValueOrZero().Int64())
}

func TestTokenNative(t *testing.T) {
	assert.True(t, Token{Symbol: "ETH", Address: NativeTokenAddress, Decimals: 18}.IsNative())
	assert.False(t, Token{Symbol: "USDC", Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")}.IsNative())
}

func TestSmartAccountIsOwner(t *testing.T) {
	acct := SmartAccount{Owners: []common.Address{{1}, {2}}, Threshold: 1}
	assert.True(t, acct.IsOwner(common.Address{2}))
	assert.False(t, acct.IsOwner(common.Address{3}))
}
