package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// SmartAccount is a multisig account as read from chain.
type SmartAccount struct {
	Address   common.Address
	ChainID   uint64
	Owners    []common.Address
	Threshold uint64
}

func (a SmartAccount) IsOwner(addr common.Address) bool {
	for _, o := range a.Owners {
		if o == addr {
			return true
		}
	}
	return false
}
