package safe

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safe-swap/pkg/chain/chaintest"
	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/types"
)

var (
	safeAddr      = common.HexToAddress("0x5afe00000000000000000000000000000000cafe")
	multiSendAddr = common.HexToAddress("0x40A2aCCbd92BCA938b02010E17A5b8929b49130D")
	usdcAddr      = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	alice         = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func batch() []types.PreparedTransaction {
	return []types.PreparedTransaction{
		types.NewPreparedTransaction(types.TxSend, "Transfer 1 ETH to alice", alice, big.NewInt(1e18), nil),
		types.NewPreparedTransaction(types.TxApprove, "Approve 10 USDC", usdcAddr, nil, []byte{0x09, 0x5e, 0xa7, 0xb3, 0x01}),
		types.NewPreparedTransaction(types.TxSwap, "Swap", alice, big.NewInt(5), []byte{0xaa}),
	}
}

func TestTypeHashes(t *testing.T) {
	assert.Equal(t, "0xbb8310d486368db6bd6f849402fdd73ad53d316b5a4b2644ad6efe0f941286d8", safeTxTypeHash.Hex())
	assert.Equal(t, "0x47e79534a245952e8b16893a336b85a3d9ea9fa8c573f3d803afb92a79469218", domainTypeHash.Hex())
}

func TestMultiSendLayout(t *testing.T) {
	txs := batch()
	packed, err := EncodeMultiSend(txs)
	require.NoError(t, err)

	// first element: native transfer without data
	assert.Equal(t, byte(Call), packed[0])
	assert.Equal(t, alice.Bytes(), packed[1:21])
	assert.Equal(t, "1000000000000000000", new(big.Int).SetBytes(packed[21:53]).String())
	assert.Equal(t, uint64(0), new(big.Int).SetBytes(packed[53:85]).Uint64())
	assert.Len(t, packed, 3*multiSendHeader+5+1)

	calls, err := DecodeMultiSend(packed)
	require.NoError(t, err)
	require.Len(t, calls, 3)
	for i, c := range calls {
		assert.Equal(t, Call, c.Operation)
		assert.Equal(t, txs[i].To, c.To)
		assert.Equal(t, 0, txs[i].ValueOrZero().Cmp(c.Value))
		assert.Equal(t, common.Bytes2Hex(txs[i].Data), common.Bytes2Hex(c.Data))
	}

	_, err = DecodeMultiSend(packed[:len(packed)-1])
	assert.Error(t, err)
}

func TestMultiSendRejectsOversizedValue(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	txs := []types.PreparedTransaction{types.NewPreparedTransaction(types.TxSend, "Transfer", alice, huge, nil)}

	_, err := EncodeMultiSend(txs)
	assert.Error(t, err)

	_, err = NewBuilder(chaintest.NewBackend(1), multiSendAddr).BuildBatch(context.Background(), txs,
		types.SmartAccount{Address: safeAddr, ChainID: 1, Threshold: 1}, 0)
	assert.ErrorIs(t, err, xerrors.ErrInvalidArgument)

	maxWord := new(big.Int).Sub(huge, big.NewInt(1))
	packed, err := EncodeMultiSend([]types.PreparedTransaction{types.NewPreparedTransaction(types.TxSend, "Transfer", alice, maxWord, nil)})
	require.NoError(t, err)
	assert.Len(t, packed, multiSendHeader)
}

func TestBuildBatch(t *testing.T) {
	backend := chaintest.NewBackend(1)
	backend.GasPrice = big.NewInt(7)
	account := types.SmartAccount{Address: safeAddr, ChainID: 1, Threshold: 1}

	env, err := NewBuilder(backend, multiSendAddr).BuildBatch(context.Background(), batch(), account, 42)
	require.NoError(t, err)

	assert.Equal(t, multiSendAddr, env.To)
	assert.Equal(t, DelegateCall, env.Operation)
	assert.Equal(t, uint64(42), env.Nonce)
	assert.Equal(t, "1000000000000000005", env.Value.String())
	assert.Equal(t, int64(7), env.ExecGasPrice.Int64())
	assert.Equal(t, []string{"Transfer 1 ETH to alice", "Approve 10 USDC", "Swap"}, env.Summaries())

	calls, err := UnpackMultiSend(env.Data)
	require.NoError(t, err)
	assert.Len(t, calls, 3)

	backend.GasPrice = big.NewInt(10_000_000_000)
	env, err = NewBuilder(backend, multiSendAddr).BuildBatch(context.Background(), batch(), account, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(11_000_000_000), env.ExecGasPrice.Int64())

	env, err = NewBuilder(backend, multiSendAddr, WithGasPriceMultiplier(2)).BuildBatch(context.Background(), batch(), account, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000_000_000), env.ExecGasPrice.Int64())

	_, err = NewBuilder(backend, multiSendAddr).BuildBatch(context.Background(), nil, account, 42)
	assert.ErrorIs(t, err, xerrors.ErrInvalidArgument)
}

func TestSignRecoversOwner(t *testing.T) {
	key, err := crypto.HexToECDSA(testKey)
	require.NoError(t, err)

	env := &Envelope{Safe: safeAddr, ChainID: 1, To: multiSendAddr, Data: []byte{1, 2, 3}, Operation: DelegateCall, Nonce: 3}
	sig, err := env.Sign(key)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	raw := append([]byte(nil), sig...)
	raw[64] -= 27
	hash := env.Hash()
	pub, err := crypto.SigToPub(hash.Bytes(), raw)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(*pub))
}

func TestHashCoversNonceAndChain(t *testing.T) {
	base := Envelope{Safe: safeAddr, ChainID: 1, To: multiSendAddr, Operation: DelegateCall, Nonce: 3}
	h := base.Hash()

	other := base
	other.Nonce = 4
	assert.NotEqual(t, h, other.Hash())

	other = base
	other.ChainID = 10
	assert.NotEqual(t, h, other.Hash())
	assert.NotEqual(t, base.DomainSeparator(), other.DomainSeparator())
}

func TestPackExecTransaction(t *testing.T) {
	env := &Envelope{Safe: safeAddr, ChainID: 1, To: multiSendAddr, Data: []byte{1}, Operation: DelegateCall}
	data, err := PackExecTransaction(env, []byte{0xff})
	require.NoError(t, err)
	assert.Equal(t, Selector("execTransaction"), data[:4])

	args, err := safeContract.Methods["execTransaction"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, multiSendAddr, args[0])
	assert.Equal(t, uint8(DelegateCall), args[3])
	assert.Equal(t, []byte{0xff}, args[9])
}

func TestReaderLoadAccount(t *testing.T) {
	backend := chaintest.NewBackend(1)
	owners := []common.Address{alice, safeAddr}
	backend.Handle(safeAddr, Selector("getOwners"), func([]byte) ([]byte, error) {
		return safeContract.Methods["getOwners"].Outputs.Pack(owners)
	})
	backend.Handle(safeAddr, Selector("getThreshold"), func([]byte) ([]byte, error) {
		return safeContract.Methods["getThreshold"].Outputs.Pack(big.NewInt(2))
	})
	backend.Handle(safeAddr, Selector("nonce"), func([]byte) ([]byte, error) {
		return safeContract.Methods["nonce"].Outputs.Pack(big.NewInt(17))
	})

	r := NewReader(backend)
	account, err := r.LoadAccount(context.Background(), safeAddr, 1)
	require.NoError(t, err)
	assert.Equal(t, owners, account.Owners)
	assert.Equal(t, uint64(2), account.Threshold)
	assert.True(t, account.IsOwner(alice))

	nonce, err := r.Nonce(context.Background(), safeAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(17), nonce)

	_, err = r.Nonce(context.Background(), alice)
	assert.ErrorIs(t, err, xerrors.ErrChainFailure)
}
