// Package approval asks a human (or a policy) whether a prepared batch may
// be executed.
package approval

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"

	"safe-swap/pkg/types"
)

// Request is what the approver is shown. All items share one nonce.
type Request struct {
	Safe  common.Address
	Nonce uint64
	Items []types.PreparedTransaction
}

// Decision is the approver's answer. A decline may carry free-text feedback.
type Decision struct {
	Approved bool
	Feedback string
}

// Approver decides on a request. A decline is a normal outcome, not an error.
type Approver interface {
	Approve(ctx context.Context, req Request) (Decision, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req Request) (Decision, error)

func (f ApproverFunc) Approve(ctx context.Context, req Request) (Decision, error) {
	return f(ctx, req)
}

// AutoApprove approves everything.
var AutoApprove Approver = ApproverFunc(func(context.Context, Request) (Decision, error) {
	return Decision{Approved: true}, nil
})

// Lines renders one line per item, numbered from 1.
func Lines(req Request) []string {
	lines := make([]string, len(req.Items))
	for i, tx := range req.Items {
		lines[i] = fmt.Sprintf("%d. %s (nonce: %d)", i+1, tx.Summary, req.Nonce)
	}
	return lines
}

// Console prompts on a terminal. "y" approves, "n" or an empty answer
// declines, anything else declines with the text as feedback.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

func (c *Console) Approve(ctx context.Context, req Request) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	fmt.Fprintln(c.out)
	color.New(color.FgCyan, color.Bold).Fprintf(c.out, "Prepared transactions for %s:\n", req.Safe.Hex())
	for _, line := range Lines(req) {
		fmt.Fprintf(c.out, "  %s\n", line)
	}
	fmt.Fprint(c.out, "\nDo you want to execute the above transactions?\nRespond (y/n) or write feedback: ")

	response, err := c.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || response == "") {
		return Decision{}, fmt.Errorf("read approval: %w", err)
	}
	return parse(response), nil
}

func parse(response string) Decision {
	response = strings.TrimSpace(response)
	switch strings.ToLower(response) {
	case "y", "yes":
		return Decision{Approved: true}
	case "", "n", "no":
		return Decision{}
	default:
		return Decision{Feedback: response}
	}
}
