// Package dispatch signs a prepared batch and either executes it on chain
// or hands it to the transaction service for other owners to confirm.
package dispatch

import (
	"context"
	"crypto/ecdsa"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"safe-swap/pkg/approval"
	"safe-swap/pkg/chain"
	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/logger"
	"safe-swap/pkg/metrics"
	"safe-swap/pkg/nonce"
	"safe-swap/pkg/safe"
	"safe-swap/pkg/types"
)

// Mode selects how a signed batch leaves the process.
type Mode string

const (
	// ModeDirect executes the batch with a local key. The Safe threshold must be 1.
	ModeDirect Mode = "direct"
	// ModeRelay proposes the batch to the transaction service.
	ModeRelay Mode = "relay"
)

// ParseMode accepts "direct" or "relay".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDirect:
		return ModeDirect, nil
	case ModeRelay:
		return ModeRelay, nil
	default:
		return "", xerrors.Newf(xerrors.CodeConfiguration, "unknown execution mode %q", s)
	}
}

// Status is the outcome of a dispatch.
type Status string

const (
	StatusExecuted Status = "executed"
	StatusProposed Status = "proposed"
	StatusDeclined Status = "declined"
	StatusEmpty    Status = "empty"
)

// Result describes what happened to a batch.
type Result struct {
	Status     Status
	Mode       Mode
	Nonce      uint64
	SafeTxHash common.Hash
	TxHash     common.Hash
	Feedback   string
	Summaries  []string
}

// Err maps a declined result to APPROVAL_DECLINED and everything else to nil.
func (r Result) Err() error {
	if r.Status != StatusDeclined {
		return nil
	}
	opts := []xerrors.Option{xerrors.WithMetadata("nonce", strconv.FormatUint(r.Nonce, 10))}
	if r.Feedback != "" {
		opts = append(opts, xerrors.WithMetadata("feedback", r.Feedback))
	}
	return xerrors.New(xerrors.CodeApprovalDeclined, "", opts...)
}

// Relay is implemented by *relay.Client.
type Relay interface {
	Propose(ctx context.Context, env *safe.Envelope, sender common.Address, signature []byte) error
	IsDelegate(ctx context.Context, safeAddr, addr common.Address) (bool, error)
}

// BatchBuilder is implemented by *safe.Builder.
type BatchBuilder interface {
	BuildBatch(ctx context.Context, txs []types.PreparedTransaction, account types.SmartAccount, nonce uint64) (*safe.Envelope, error)
}

// Config fixes the execution path for the lifetime of a dispatcher.
type Config struct {
	Mode     Mode
	Account  types.SmartAccount
	AgentKey *ecdsa.PrivateKey
	// ExecutorKey pays for direct execution. Defaults to AgentKey.
	ExecutorKey *ecdsa.PrivateKey
	// Approver is consulted before anything is signed. Nil skips approval.
	Approver        approval.Approver
	ReceiptInterval time.Duration
}

type Dispatcher struct {
	log     *logrus.Entry
	cfg     Config
	agent   common.Address
	backend chain.Backend
	batches BatchBuilder
	nonces  *nonce.Sequencer
	relay   Relay
	metrics *metrics.Metrics
}

type Option func(*Dispatcher)

func WithRelay(r Relay) Option {
	return func(d *Dispatcher) {
		d.relay = r
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// New validates cfg against the account. Direct mode needs a 1-of-n Safe
// the agent owns; relay mode needs a transaction service client.
func New(cfg Config, backend chain.Backend, batches BatchBuilder, nonces *nonce.Sequencer, opts ...Option) (*Dispatcher, error) {
	if cfg.AgentKey == nil {
		return nil, xerrors.New(xerrors.CodeConfiguration, "agent key is required")
	}
	if cfg.ExecutorKey == nil {
		cfg.ExecutorKey = cfg.AgentKey
	}
	if cfg.ReceiptInterval <= 0 {
		cfg.ReceiptInterval = 2 * time.Second
	}

	d := &Dispatcher{
		log:     logger.NewSublogger("dispatch"),
		cfg:     cfg,
		agent:   chain.KeyAddress(cfg.AgentKey),
		backend: backend,
		batches: batches,
		nonces:  nonces,
	}
	for _, opt := range opts {
		opt(d)
	}

	switch cfg.Mode {
	case ModeDirect:
		if cfg.Account.Threshold != 1 {
			return nil, xerrors.Newf(xerrors.CodeConfiguration,
				"direct execution needs a threshold of 1, safe %s has %d", cfg.Account.Address.Hex(), cfg.Account.Threshold)
		}
		if !cfg.Account.IsOwner(d.agent) {
			return nil, xerrors.Newf(xerrors.CodeConfiguration,
				"agent %s is not an owner of safe %s", d.agent.Hex(), cfg.Account.Address.Hex())
		}
	case ModeRelay:
		if d.relay == nil {
			return nil, xerrors.New(xerrors.CodeConfiguration, "relay mode needs a transaction service")
		}
	default:
		return nil, xerrors.Newf(xerrors.CodeConfiguration, "unknown execution mode %q", cfg.Mode)
	}
	return d, nil
}

// Mode returns the configured execution path.
func (d *Dispatcher) Mode() Mode { return d.cfg.Mode }

// Agent returns the address that signs envelopes.
func (d *Dispatcher) Agent() common.Address { return d.agent }

type dispatchOptions struct {
	nonce *uint64
}

type DispatchOption func(*dispatchOptions)

// WithNonce uses n instead of the session's next nonce.
func WithNonce(n uint64) DispatchOption {
	return func(o *dispatchOptions) {
		o.nonce = &n
	}
}

// Dispatch wraps txs into one Safe transaction, asks for approval and sends
// it. A decline is reported in the result, not as an error. The nonce is
// consumed as soon as the batch is built, whatever happens next.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *nonce.Session, txs []types.PreparedTransaction, opts ...DispatchOption) (Result, error) {
	var o dispatchOptions
	for _, opt := range opts {
		opt(&o)
	}

	res := Result{Mode: d.cfg.Mode}
	if sess.Account.Address != d.cfg.Account.Address {
		return res, xerrors.Newf(xerrors.CodeInvalidArgument,
			"session is for safe %s, dispatcher is for safe %s", sess.Account.Address.Hex(), d.cfg.Account.Address.Hex())
	}
	if len(txs) == 0 {
		res.Status = StatusEmpty
		d.metrics.ObserveBatch(string(d.cfg.Mode), string(StatusEmpty))
		return res, nil
	}

	n, err := d.nonces.Assign(ctx, sess, o.nonce)
	if err != nil {
		return res, err
	}
	res.Nonce = n

	env, err := d.batches.BuildBatch(ctx, txs, sess.Account, n)
	if err != nil {
		return res, err
	}
	res.SafeTxHash = env.Hash()
	res.Summaries = env.Summaries()

	log := d.log.WithFields(logrus.Fields{
		"safe":       sess.Account.Address.Hex(),
		"nonce":      n,
		"safeTxHash": res.SafeTxHash.Hex(),
		"mode":       d.cfg.Mode,
	})

	if d.cfg.Approver != nil {
		decision, err := d.cfg.Approver.Approve(ctx, approval.Request{
			Safe:  sess.Account.Address,
			Nonce: n,
			Items: env.Items,
		})
		if err != nil {
			log.WithError(err).Warn("Approval failed, treating batch as declined")
		}
		if err != nil || !decision.Approved {
			res.Status = StatusDeclined
			res.Feedback = decision.Feedback
			log.WithField("feedback", decision.Feedback).Info("Batch declined")
			d.metrics.ObserveBatch(string(d.cfg.Mode), string(StatusDeclined))
			return res, nil
		}
	}

	signature, err := env.Sign(d.cfg.AgentKey)
	if err != nil {
		return res, xerrors.Wrap(xerrors.CodeConfiguration, err, "failed to sign safe transaction")
	}

	switch d.cfg.Mode {
	case ModeDirect:
		res.TxHash, err = d.execute(ctx, env, signature)
		res.Status = StatusExecuted
	default:
		err = d.propose(ctx, env, signature)
		res.Status = StatusProposed
	}
	if err != nil {
		d.metrics.ObserveBatch(string(d.cfg.Mode), strings.ToLower(string(xerrors.CodeOf(err))))
		log.WithError(err).Error("Batch failed")
		return res, err
	}

	d.metrics.ObserveBatch(string(d.cfg.Mode), string(res.Status))
	log.WithField("tx", res.TxHash.Hex()).Info("Batch dispatched")
	return res, nil
}
