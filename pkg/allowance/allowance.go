package allowance

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"safe-swap/pkg/erc20"
	"safe-swap/pkg/types"
)

// Guard checks whether a spender may already pull a token amount.
type Guard struct {
	tokens *erc20.Reader
}

func NewGuard(caller ethereum.ContractCaller) *Guard {
	return &Guard{tokens: erc20.NewReader(caller)}
}

// NeedsApproval reads the current allowance on every call. Native currency
// never needs approval.
func (g *Guard) NeedsApproval(ctx context.Context, token types.Token, owner, spender common.Address, amount *big.Int) (bool, error) {
	if token.IsNative() {
		return false, nil
	}
	allowance, err := g.tokens.Allowance(ctx, token.Address, owner, spender)
	if err != nil {
		return false, err
	}
	return allowance.Cmp(amount) < 0, nil
}
