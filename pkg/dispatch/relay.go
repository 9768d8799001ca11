package dispatch

import (
	"context"
	"fmt"

	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/relay"
	"safe-swap/pkg/safe"
)

// propose submits the signed envelope. The agent must be an owner or a
// registered delegate of the Safe.
func (d *Dispatcher) propose(ctx context.Context, env *safe.Envelope, signature []byte) error {
	if !d.cfg.Account.IsOwner(d.agent) {
		ok, err := d.relay.IsDelegate(ctx, env.Safe, d.agent)
		if err != nil {
			return err
		}
		if !ok {
			return xerrors.New(xerrors.CodeRelayRejected,
				fmt.Sprintf("%s is neither an owner nor a delegate of %s", d.agent.Hex(), env.Safe.Hex()),
				xerrors.WithMetadata("reason", relay.ReasonNotOwnerOrDelegate))
		}
	}
	return d.relay.Propose(ctx, env, d.agent, signature)
}
