// Package engine is the entry point callers use: a list of intents in, one
// dispatched batch and an audit report out.
package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"safe-swap/pkg/dispatch"
	"safe-swap/pkg/intent"
	"safe-swap/pkg/logger"
	"safe-swap/pkg/nonce"
	"safe-swap/pkg/types"
)

// Outcome summarizes a run for the caller.
type Outcome string

const (
	OutcomeSent     Outcome = "sent"
	OutcomeRelayed  Outcome = "relayed"
	OutcomeDeclined Outcome = "declined"
	OutcomeEmpty    Outcome = "empty"
)

// Report is returned for every run that got as far as dispatch.
type Report struct {
	BatchID      uuid.UUID
	Outcome      Outcome
	Feedback     string
	Transactions []types.PreparedTransaction
	Result       dispatch.Result
}

// Summaries returns the human summaries of the prepared transactions.
func (r Report) Summaries() []string {
	out := make([]string, len(r.Transactions))
	for i, tx := range r.Transactions {
		out[i] = tx.Summary
	}
	return out
}

// Expander is implemented by *intent.Expander.
type Expander interface {
	ExpandAll(ctx context.Context, intents []intent.Intent, account types.SmartAccount) ([]types.PreparedTransaction, error)
}

// Dispatcher is implemented by *dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, sess *nonce.Session, txs []types.PreparedTransaction, opts ...dispatch.DispatchOption) (dispatch.Result, error)
}

type Engine struct {
	log        *logrus.Entry
	expander   Expander
	dispatcher Dispatcher
}

func New(expander Expander, dispatcher Dispatcher) *Engine {
	return &Engine{
		log:        logger.NewSublogger("engine"),
		expander:   expander,
		dispatcher: dispatcher,
	}
}

// Run expands intents and dispatches them as one batch. Validation and
// quote errors are returned before anything is signed. A decline is a
// successful run with OutcomeDeclined.
func (e *Engine) Run(ctx context.Context, sess *nonce.Session, intents []intent.Intent, opts ...dispatch.DispatchOption) (Report, error) {
	report := Report{BatchID: uuid.New()}
	log := e.log.WithFields(logrus.Fields{
		"batch":   report.BatchID.String(),
		"safe":    sess.Account.Address.Hex(),
		"intents": len(intents),
	})

	txs, err := e.expander.ExpandAll(ctx, intents, sess.Account)
	if err != nil {
		log.WithError(err).Debug("Expansion failed")
		return report, err
	}
	report.Transactions = txs

	res, err := e.dispatcher.Dispatch(ctx, sess, txs, opts...)
	report.Result = res
	if err != nil {
		return report, err
	}

	switch res.Status {
	case dispatch.StatusExecuted:
		report.Outcome = OutcomeSent
	case dispatch.StatusProposed:
		report.Outcome = OutcomeRelayed
	case dispatch.StatusDeclined:
		report.Outcome = OutcomeDeclined
		report.Feedback = res.Feedback
	default:
		report.Outcome = OutcomeEmpty
	}
	log.WithField("outcome", report.Outcome).Info("Batch finished")
	return report, nil
}
