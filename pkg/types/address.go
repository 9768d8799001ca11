package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeTokenAddress is the sentinel used for the chain's native currency.
var NativeTokenAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Address is a 20-byte account address, optionally remembering the
// human-readable name it was resolved from.
type Address struct {
	addr common.Address
	name string
}

func NewAddress(addr common.Address) Address {
	return Address{addr: addr}
}

// NamedAddress returns an address that was resolved from name.
func NamedAddress(name string, addr common.Address) Address {
	return Address{addr: addr, name: strings.ToLower(name)}
}

func (a Address) Common() common.Address { return a.addr }

// Hex returns the EIP-55 checksummed form.
func (a Address) Hex() string { return a.addr.Hex() }

func (a Address) Name() string { return a.name }

// Equal compares the underlying bytes only.
func (a Address) Equal(o Address) bool { return a.addr == o.addr }

func (a Address) IsZero() bool { return a.addr == (common.Address{}) }

func (a Address) String() string {
	if a.name != "" {
		return fmt.Sprintf("%s (%s)", a.name, a.addr.Hex())
	}
	return a.addr.Hex()
}

// Token is an asset on one chain.
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
}

func (t Token) IsNative() bool {
	return t.Address == NativeTokenAddress
}
