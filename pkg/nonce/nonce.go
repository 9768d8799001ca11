// Package nonce hands out Safe nonces to consecutive batches of a session.
package nonce

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"safe-swap/pkg/logger"
	"safe-swap/pkg/types"
)

// Reader returns the Safe's current on-chain nonce.
type Reader interface {
	Nonce(ctx context.Context, safe common.Address) (uint64, error)
}

// Session is the write path of one smart account. Two sessions must not
// drive the same account at the same time.
type Session struct {
	Account types.SmartAccount

	mu     sync.Mutex
	seeded bool
	next   uint64
}

func NewSession(account types.SmartAccount) *Session {
	return &Session{Account: account}
}

// Tracked returns the nonce the next batch will get, if the session has
// been seeded.
func (s *Session) Tracked() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next, s.seeded
}

// Sequencer assigns nonces. The chain is read once per session; after that
// every call advances the local counter. A declined or failed batch keeps
// its nonce consumed.
type Sequencer struct {
	log    *logrus.Entry
	reader Reader
}

func NewSequencer(reader Reader) *Sequencer {
	return &Sequencer{
		log:    logger.NewSublogger("nonce"),
		reader: reader,
	}
}

// Next returns the session's next nonce and advances the counter.
func (q *Sequencer) Next(ctx context.Context, sess *Session) (uint64, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.seeded {
		n, err := q.reader.Nonce(ctx, sess.Account.Address)
		if err != nil {
			return 0, err
		}
		sess.next, sess.seeded = n, true
		q.log.WithFields(logrus.Fields{
			"safe":  sess.Account.Address.Hex(),
			"nonce": n,
		}).Debug("Seeded nonce from chain")
	}
	n := sess.next
	sess.next++
	return n, nil
}

// Assign returns override when set, leaving the counter untouched.
func (q *Sequencer) Assign(ctx context.Context, sess *Session, override *uint64) (uint64, error) {
	if override != nil {
		return *override, nil
	}
	return q.Next(ctx, sess)
}
