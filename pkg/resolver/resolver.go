package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"safe-swap/pkg/erc20"
	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/logger"
	"safe-swap/pkg/network"
	"safe-swap/pkg/types"
)

// NameResolver maps a domain-style name to an address.
type NameResolver interface {
	Resolve(ctx context.Context, name string) (common.Address, error)
}

// Resolver turns user input into checksummed addresses and tokens.
type Resolver struct {
	log      *logrus.Entry
	tokens   *erc20.Reader
	names    NameResolver
	book     map[string]common.Address
	decimals *cache.Cache
}

type Option func(*Resolver) error

// WithNameResolver enables name lookups, usually through ENS.
func WithNameResolver(names NameResolver) Option {
	return func(r *Resolver) error {
		r.names = names
		return nil
	}
}

// WithAddressBook registers fixed aliases, consulted before any name lookup.
func WithAddressBook(book map[string]string) Option {
	return func(r *Resolver) error {
		for alias, addr := range book {
			if !common.IsHexAddress(addr) {
				return xerrors.Newf(xerrors.CodeConfiguration, "address book entry %q is not a valid address", alias)
			}
			r.book[strings.ToLower(strings.TrimSpace(alias))] = common.HexToAddress(addr)
		}
		return nil
	}
}

// New creates a resolver that reads token metadata through caller.
func New(caller ethereum.ContractCaller, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		log:      logger.NewSublogger("resolver"),
		tokens:   erc20.NewReader(caller),
		book:     make(map[string]common.Address),
		decimals: cache.New(cache.NoExpiration, 0),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ResolveAddress accepts a hex address or a name. Names that cannot be
// resolved are reported, never guessed.
func (r *Resolver) ResolveAddress(ctx context.Context, input string) (types.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Address{}, xerrors.New(xerrors.CodeInvalidArgument, "empty address")
	}

	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		if !common.IsHexAddress(input) {
			return types.Address{}, xerrors.Newf(xerrors.CodeInvalidArgument, "invalid address %s", input)
		}
		return types.NewAddress(common.HexToAddress(input)), nil
	}

	name := strings.ToLower(input)
	if addr, ok := r.book[name]; ok {
		return types.NamedAddress(name, addr), nil
	}

	if !strings.Contains(name, ".") || r.names == nil {
		return types.Address{}, unresolved(name)
	}

	addr, err := r.names.Resolve(ctx, name)
	if err != nil {
		return types.Address{}, err
	}
	if addr == (common.Address{}) {
		return types.Address{}, unresolved(name)
	}

	r.log.WithField("name", name).WithField("address", addr.Hex()).Debug("Resolved name")
	return types.NamedAddress(name, addr), nil
}

// ResolveToken looks symbol up in the network's token table. Decimals are
// read from chain once per token and kept for the life of the process.
func (r *Resolver) ResolveToken(ctx context.Context, symbol string, net *network.Network) (types.Token, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	addr, ok := net.TokenAddress(symbol)
	if !ok {
		return types.Token{}, xerrors.New(xerrors.CodeUnsupportedToken,
			fmt.Sprintf("token %s is not supported on %s", symbol, net.Name),
			xerrors.WithMetadata("symbol", symbol))
	}

	if addr == types.NativeTokenAddress {
		return types.Token{Symbol: symbol, Address: addr, Decimals: 18}, nil
	}

	decimals, err := r.tokenDecimals(ctx, net.ChainID, addr)
	if err != nil {
		return types.Token{}, err
	}
	return types.Token{Symbol: symbol, Address: addr, Decimals: decimals}, nil
}

func (r *Resolver) tokenDecimals(ctx context.Context, chainID uint64, addr common.Address) (uint8, error) {
	key := fmt.Sprintf("%d:%s", chainID, addr.Hex())
	if v, ok := r.decimals.Get(key); ok {
		return v.(uint8), nil
	}

	decimals, err := r.tokens.Decimals(ctx, addr)
	if err != nil {
		return 0, err
	}
	r.decimals.Set(key, decimals, cache.NoExpiration)
	return decimals, nil
}

func unresolved(name string) error {
	return xerrors.New(xerrors.CodeUnresolvedName, "could not resolve "+name, xerrors.WithMetadata("name", name))
}
