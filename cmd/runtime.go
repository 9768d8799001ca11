package cmd

import (
	"context"
	"crypto/ecdsa"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"safe-swap/config"
	"safe-swap/pkg/allowance"
	"safe-swap/pkg/approval"
	"safe-swap/pkg/chain"
	"safe-swap/pkg/client"
	"safe-swap/pkg/dispatch"
	"safe-swap/pkg/engine"
	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/intent"
	"safe-swap/pkg/logger"
	"safe-swap/pkg/metrics"
	"safe-swap/pkg/network"
	"safe-swap/pkg/nonce"
	"safe-swap/pkg/quote"
	"safe-swap/pkg/relay"
	"safe-swap/pkg/resolver"
	"safe-swap/pkg/safe"
	"safe-swap/pkg/types"
)

const quoteTimeout = 30 * time.Second

// runtime is everything a command needs to act on the configured Safe.
type runtime struct {
	cfg      *config.Config
	eth      *ethclient.Client
	network  *network.Network
	account  types.SmartAccount
	agent    common.Address
	mode     dispatch.Mode
	session  *nonce.Session
	metrics  *metrics.Metrics
	relay    *relay.Client
	resolver *resolver.Resolver
}

// loadConfig reads the configuration and sets up logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	if err := logger.Init(level, cfg.LogFormat); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "invalid log level")
	}
	return cfg, nil
}

// newRuntime connects to the chain and reads the Safe.
func newRuntime(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	eth, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeChainFailure, err, "failed to get chain id")
	}

	reg, err := network.LoadFile(cfg.NetworksFile)
	if err != nil {
		return nil, err
	}
	net, err := reg.Lookup(chainID.Uint64())
	if err != nil {
		return nil, err
	}

	if !common.IsHexAddress(cfg.SmartAccount) {
		return nil, xerrors.Newf(xerrors.CodeConfiguration, "smart account %q is not an address", cfg.SmartAccount)
	}
	agentKey, err := chain.ParsePrivateKey(cfg.AgentPrivateKey)
	if err != nil {
		return nil, err
	}

	account, err := safe.NewReader(eth).LoadAccount(ctx, common.HexToAddress(cfg.SmartAccount), net.ChainID)
	if err != nil {
		return nil, err
	}

	mode, err := dispatch.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:     cfg,
		eth:     eth,
		network: net,
		account: account,
		agent:   chain.KeyAddress(agentKey),
		mode:    mode,
		session: nonce.NewSession(account),
		metrics: metrics.New(),
	}

	txService := cfg.TxServiceURL
	if txService == "" {
		txService = net.TxServiceURL
	}
	if txService != "" {
		rt.relay = relay.NewClient(txService, 0)
	}

	if rt.resolver, err = rt.newResolver(ctx); err != nil {
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) newResolver(ctx context.Context) (*resolver.Resolver, error) {
	opts := []resolver.Option{resolver.WithAddressBook(rt.cfg.AddressBook)}

	// ENS lives on mainnet; other chains need a separate endpoint.
	var ens ethereum.ContractCaller
	switch {
	case rt.cfg.ENSRPCURL != "":
		c, err := chain.Dial(ctx, rt.cfg.ENSRPCURL)
		if err != nil {
			return nil, err
		}
		ens = c
	case rt.network.ChainID == 1:
		ens = rt.eth
	}
	if ens != nil {
		opts = append(opts, resolver.WithNameResolver(resolver.NewENS(ens)))
	}
	return resolver.New(rt.eth, opts...)
}

func (rt *runtime) quoteSource() (quote.Source, error) {
	switch rt.cfg.QuoteSource {
	case "uniswap":
		return quote.NewUniswapSource(rt.eth, rt.network)
	case "oneclick":
		return quote.NewOneClickSource(client.NewOneClickClient(rt.cfg.OneClickBaseURL, rt.cfg.JWTToken), rt.network)
	default:
		if !rt.network.LiFi {
			return nil, xerrors.Newf(xerrors.CodeConfiguration, "li.fi does not serve %s", rt.network.Name)
		}
		return quote.NewLiFiSource(client.NewLiFiClient(rt.cfg.LiFiBaseURL, rt.cfg.LiFiAPIKey, quoteTimeout)), nil
	}
}

// approver returns nil when batches go out without a prompt. With --json
// the prompt goes to stderr so stdout stays machine readable.
func (rt *runtime) approver(cmd *cobra.Command) approval.Approver {
	yes, _ := cmd.Flags().GetBool("yes")
	if yes || !rt.cfg.RequireApproval {
		return nil
	}
	var out io.Writer = os.Stdout
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		out = os.Stderr
	}
	return approval.NewConsole(os.Stdin, out)
}

func (rt *runtime) executorKey() (*ecdsa.PrivateKey, error) {
	if rt.cfg.ExecutorPrivateKey == "" {
		return nil, nil
	}
	return chain.ParsePrivateKey(rt.cfg.ExecutorPrivateKey)
}

// newEngine wires resolver, quotes, batching and dispatch.
func (rt *runtime) newEngine(cmd *cobra.Command) (*engine.Engine, error) {
	source, err := rt.quoteSource()
	if err != nil {
		return nil, err
	}
	builder := quote.NewBuilder(source, allowance.NewGuard(rt.eth), rt.network,
		quote.WithSlippage(rt.cfg.Slippage),
		quote.WithMetrics(rt.metrics))
	expander := intent.NewExpander(rt.resolver, builder, rt.network, intent.WithMetrics(rt.metrics))

	agentKey, err := chain.ParsePrivateKey(rt.cfg.AgentPrivateKey)
	if err != nil {
		return nil, err
	}
	executorKey, err := rt.executorKey()
	if err != nil {
		return nil, err
	}

	opts := []dispatch.Option{dispatch.WithMetrics(rt.metrics)}
	if rt.relay != nil {
		opts = append(opts, dispatch.WithRelay(rt.relay))
	}
	dispatcher, err := dispatch.New(dispatch.Config{
		Mode:        rt.mode,
		Account:     rt.account,
		AgentKey:    agentKey,
		ExecutorKey: executorKey,
		Approver:    rt.approver(cmd),
	},
		rt.eth,
		safe.NewBuilder(rt.eth, rt.network.MultiSendAddress(), safe.WithGasPriceMultiplier(rt.cfg.GasPriceMultiplier)),
		nonce.NewSequencer(safe.NewReader(rt.eth)),
		opts...,
	)
	if err != nil {
		return nil, err
	}
	return engine.New(expander, dispatcher), nil
}

func (rt *runtime) close() {
	if err := rt.metrics.WriteTextfile(rt.cfg.MetricsFile); err != nil {
		logger.NewSublogger("cmd").WithError(err).Warn("Failed to write metrics")
	}
	rt.eth.Close()
}
