package network

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/types"
)

//go:embed networks.yaml
var defaultNetworks []byte

// UniswapDeployment holds the Uniswap V3 periphery used for on-chain quotes.
type UniswapDeployment struct {
	Quoter string `yaml:"quoter"`
	Router string `yaml:"router"`
}

// Network describes one supported chain.
type Network struct {
	ChainID       uint64             `yaml:"chain_id"`
	Name          string             `yaml:"name"`
	NativeSymbol  string             `yaml:"native_symbol"`
	WrappedNative string             `yaml:"wrapped_native"`
	TxServiceURL  string             `yaml:"tx_service_url"`
	MultiSend     string             `yaml:"multisend"`
	OneClickChain string             `yaml:"oneclick_chain"`
	LiFi          bool               `yaml:"lifi"`
	Uniswap       *UniswapDeployment `yaml:"uniswap"`
	Tokens        map[string]string  `yaml:"tokens"`
}

// Registry indexes networks by chain id.
type Registry struct {
	networks map[uint64]*Network
}

// Default returns the built-in network table.
func Default() *Registry {
	reg, err := Parse(defaultNetworks)
	if err != nil {
		panic(fmt.Sprintf("embedded networks.yaml: %v", err))
	}
	return reg
}

// LoadFile reads a network table from path. An empty path returns Default().
func LoadFile(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "read networks file")
	}
	return Parse(content)
}

// Parse decodes a YAML list of networks.
func Parse(content []byte) (*Registry, error) {
	var list []*Network
	if err := yaml.Unmarshal(content, &list); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "parse networks")
	}

	reg := &Registry{networks: make(map[uint64]*Network, len(list))}
	for _, n := range list {
		if n.ChainID == 0 {
			return nil, xerrors.Newf(xerrors.CodeConfiguration, "network %q has no chain_id", n.Name)
		}
		if !common.IsHexAddress(n.MultiSend) {
			return nil, xerrors.Newf(xerrors.CodeConfiguration, "network %q has invalid multisend address", n.Name)
		}
		tokens := make(map[string]string, len(n.Tokens))
		for symbol, addr := range n.Tokens {
			if !common.IsHexAddress(addr) {
				return nil, xerrors.Newf(xerrors.CodeConfiguration, "network %q token %s has invalid address", n.Name, symbol)
			}
			tokens[strings.ToUpper(symbol)] = addr
		}
		n.Tokens = tokens
		n.TxServiceURL = strings.TrimRight(n.TxServiceURL, "/")
		reg.networks[n.ChainID] = n
	}
	return reg, nil
}

// Lookup returns the network for chainID.
func (r *Registry) Lookup(chainID uint64) (*Network, error) {
	n, ok := r.networks[chainID]
	if !ok {
		return nil, xerrors.Newf(xerrors.CodeConfiguration, "chain id %d is not supported", chainID)
	}
	return n, nil
}

// All returns every network ordered by chain id.
func (r *Registry) All() []*Network {
	out := make([]*Network, 0, len(r.networks))
	for _, n := range r.networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// TokenAddress looks up symbol case-insensitively.
func (n *Network) TokenAddress(symbol string) (common.Address, bool) {
	addr, ok := n.Tokens[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return common.Address{}, false
	}
	return common.HexToAddress(addr), true
}

// Symbols returns the token symbols in alphabetical order.
func (n *Network) Symbols() []string {
	out := make([]string, 0, len(n.Tokens))
	for s := range n.Tokens {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// WrappedNativeAddress returns the wrapped native token contract.
func (n *Network) WrappedNativeAddress() (common.Address, bool) {
	if n.WrappedNative == "" {
		return common.Address{}, false
	}
	return n.TokenAddress(n.WrappedNative)
}

// IsWrappedNative reports whether addr is the chain's wrapped native token.
func (n *Network) IsWrappedNative(addr common.Address) bool {
	w, ok := n.WrappedNativeAddress()
	return ok && w == addr
}

// NativeToken returns the native currency as a token.
func (n *Network) NativeToken() types.Token {
	return types.Token{Symbol: n.NativeSymbol, Address: types.NativeTokenAddress, Decimals: 18}
}

func (n *Network) MultiSendAddress() common.Address {
	return common.HexToAddress(n.MultiSend)
}
