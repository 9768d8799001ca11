// Package intent holds the typed user intents and expands them into
// prepared transactions.
package intent

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Intent is one of Send, Buy or Sell. The set is closed.
type Intent interface {
	fmt.Stringer
	intent()
}

// Send transfers Amount of Token to Receiver. Receiver is a hex address,
// an address book alias or an ENS name.
type Send struct {
	Token    string
	Amount   decimal.Decimal
	Receiver string
}

// Buy acquires exactly Amount of To, paying with From.
type Buy struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// Sell spends exactly Amount of From, receiving To.
type Sell struct {
	From   string
	To     string
	Amount decimal.Decimal
}

func (Send) intent() {}
func (Buy) intent()  {}
func (Sell) intent() {}

func (s Send) String() string {
	return fmt.Sprintf("send %s %s to %s", s.Amount, s.Token, s.Receiver)
}

func (b Buy) String() string {
	return fmt.Sprintf("buy %s %s with %s", b.Amount, b.To, b.From)
}

func (s Sell) String() string {
	return fmt.Sprintf("sell %s %s for %s", s.Amount, s.From, s.To)
}

// ExactInput reports whether the amount is of the token given up.
func (Buy) ExactInput() bool  { return false }
func (Sell) ExactInput() bool { return true }
