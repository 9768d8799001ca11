package intent

import (
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"safe-swap/pkg/amount"
	xerrors "safe-swap/pkg/errors"
)

// Record is the serialized form of an intent:
//
//	- {kind: send, token: USDC, amount: "10", to: alice.eth}
//	- {kind: buy,  token: WBTC, amount: "0.01", with: USDC}
//	- {kind: sell, token: DAI,  amount: "500", for: WBTC}
type Record struct {
	Kind   string `yaml:"kind"`
	Token  string `yaml:"token"`
	Amount string `yaml:"amount"`
	To     string `yaml:"to,omitempty"`
	With   string `yaml:"with,omitempty"`
	For    string `yaml:"for,omitempty"`
}

// Batch is a list of intents executed as one multisig transaction.
type Batch struct {
	Name    string   `yaml:"name"`
	Intents []Record `yaml:"intents"`
}

// Intent converts the record into its typed intent.
func (r Record) Intent() (Intent, error) {
	amt, err := amount.Parse(r.Amount)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.Token) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "intent has no token")
	}

	switch strings.ToLower(strings.TrimSpace(r.Kind)) {
	case "send":
		if r.To == "" {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, "send intent has no receiver")
		}
		return Send{Token: r.Token, Amount: amt, Receiver: r.To}, nil
	case "buy":
		if r.With == "" {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, "buy intent has no payment token")
		}
		return Buy{From: r.With, To: r.Token, Amount: amt}, nil
	case "sell":
		if r.For == "" {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, "sell intent has no target token")
		}
		return Sell{From: r.Token, To: r.For, Amount: amt}, nil
	default:
		return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "unknown intent kind %q", r.Kind)
	}
}

// Parse converts every record of the batch.
func (b Batch) Parse() ([]Intent, error) {
	out := make([]Intent, 0, len(b.Intents))
	for _, r := range b.Intents {
		in, err := r.Intent()
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// LoadBatches reads a YAML list of batches.
func LoadBatches(r io.Reader) ([]Batch, error) {
	var batches []Batch
	if err := yaml.NewDecoder(r).Decode(&batches); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "invalid batch file")
	}
	for i := range batches {
		if len(batches[i].Intents) == 0 {
			return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "batch %d has no intents", i+1)
		}
	}
	return batches, nil
}
