package resolver

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safe-swap/pkg/chain/chaintest"
	"safe-swap/pkg/erc20"
	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/network"
	"safe-swap/pkg/types"
)

var (
	vitalik     = common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	ensResolver = common.HexToAddress("0x231b0Ee14048e9dCcD1d247744d114a4EB5E8E63")
	usdc        = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

func mainnet(t *testing.T) *network.Network {
	n, err := network.Default().Lookup(1)
	require.NoError(t, err)
	return n
}

func ensBackend() *chaintest.Backend {
	backend := chaintest.NewBackend(1)
	backend.Handle(ENSRegistry, ensContract.Methods["resolver"].ID, func(data []byte) ([]byte, error) {
		args, err := ensContract.Methods["resolver"].Inputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		if common.Hash(args[0].([32]byte)) == NameHash("vitalik.eth") {
			return ensContract.Methods["resolver"].Outputs.Pack(ensResolver)
		}
		return ensContract.Methods["resolver"].Outputs.Pack(common.Address{})
	})
	backend.Handle(ensResolver, ensContract.Methods["addr"].ID, func([]byte) ([]byte, error) {
		return ensContract.Methods["addr"].Outputs.Pack(vitalik)
	})
	return backend
}

func TestNameHash(t *testing.T) {
	assert.Equal(t, common.Hash{}, NameHash(""))
	assert.Equal(t,
		common.HexToHash("0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae"),
		NameHash("eth"))
	assert.Equal(t,
		common.HexToHash("0xee6c4522aab0003e8d14cd40a6af439055fd2577951148c14b6cea9a53475835"),
		NameHash("vitalik.eth"))
}

func TestResolveHexAddress(t *testing.T) {
	r, err := New(chaintest.NewBackend(1))
	require.NoError(t, err)

	addr, err := r.ResolveAddress(context.Background(), "0xd8da6bf26964af9d7eed9e03e53415d37aa96045")
	require.NoError(t, err)
	assert.Equal(t, "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", addr.Hex())
	assert.Empty(t, addr.Name())

	_, err = r.ResolveAddress(context.Background(), "0x1234")
	assert.ErrorIs(t, err, xerrors.ErrInvalidArgument)
}

func TestResolveName(t *testing.T) {
	backend := ensBackend()
	r, err := New(backend, WithNameResolver(NewENS(backend)))
	require.NoError(t, err)

	addr, err := r.ResolveAddress(context.Background(), "Vitalik.ETH")
	require.NoError(t, err)
	assert.Equal(t, vitalik, addr.Common())
	assert.Equal(t, "vitalik.eth", addr.Name())

	_, err = r.ResolveAddress(context.Background(), "nobody-here.eth")
	assert.ErrorIs(t, err, xerrors.ErrUnresolvedName)
	assert.Equal(t, "nobody-here.eth", xerrors.MetadataOf(err, "name"))
}

func TestResolveNameWithoutENS(t *testing.T) {
	r, err := New(chaintest.NewBackend(1), WithAddressBook(map[string]string{"Treasury": vitalik.Hex()}))
	require.NoError(t, err)

	addr, err := r.ResolveAddress(context.Background(), "treasury")
	require.NoError(t, err)
	assert.Equal(t, vitalik, addr.Common())

	_, err = r.ResolveAddress(context.Background(), "vitalik.eth")
	assert.ErrorIs(t, err, xerrors.ErrUnresolvedName)

	_, err = New(chaintest.NewBackend(1), WithAddressBook(map[string]string{"bad": "0x12"}))
	assert.ErrorIs(t, err, xerrors.ErrConfiguration)
}

func TestResolveTokenCachesDecimals(t *testing.T) {
	backend := chaintest.NewBackend(1)
	backend.Handle(usdc, erc20.Selector("decimals"), func([]byte) ([]byte, error) {
		return erc20.ABI.Methods["decimals"].Outputs.Pack(uint8(6))
	})
	r, err := New(backend)
	require.NoError(t, err)
	net := mainnet(t)

	for _, sym := range []string{"usdc", "USDC", "Usdc"} {
		tok, err := r.ResolveToken(context.Background(), sym, net)
		require.NoError(t, err)
		assert.Equal(t, types.Token{Symbol: "USDC", Address: usdc, Decimals: 6}, tok)
	}
	assert.Equal(t, 1, backend.Calls(usdc, erc20.Selector("decimals")))
}

func TestResolveTokenNativeAndUnsupported(t *testing.T) {
	r, err := New(chaintest.NewBackend(1))
	require.NoError(t, err)
	net := mainnet(t)

	eth, err := r.ResolveToken(context.Background(), "eth", net)
	require.NoError(t, err)
	assert.True(t, eth.IsNative())
	assert.Equal(t, uint8(18), eth.Decimals)

	_, err = r.ResolveToken(context.Background(), "PEPE", net)
	assert.ErrorIs(t, err, xerrors.ErrUnsupportedToken)
	assert.True(t, xerrors.IsValidation(err))
}
