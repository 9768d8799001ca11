// Package relay talks to the Safe transaction service, which collects owner
// signatures for transactions that are executed later.
package relay

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/logger"
	"safe-swap/pkg/safe"
)

// Rejection reasons attached as "reason" metadata to RELAY_REJECTED errors.
const (
	ReasonRejectedByService  = "rejected_by_service"
	ReasonNotOwnerOrDelegate = "not_owner_or_delegate"
)

const DefaultTimeout = 30 * time.Second

// Client is a transaction service client.
type Client struct {
	log    *logrus.Entry
	client *resty.Client
}

type proposeRequest struct {
	To                      string  `json:"to"`
	Value                   string  `json:"value"`
	Data                    *string `json:"data"`
	Operation               uint8   `json:"operation"`
	SafeTxGas               string  `json:"safeTxGas"`
	BaseGas                 string  `json:"baseGas"`
	GasPrice                string  `json:"gasPrice"`
	GasToken                string  `json:"gasToken"`
	RefundReceiver          string  `json:"refundReceiver"`
	Nonce                   uint64  `json:"nonce"`
	ContractTransactionHash string  `json:"contractTransactionHash"`
	Sender                  string  `json:"sender"`
	Signature               string  `json:"signature"`
	Origin                  string  `json:"origin,omitempty"`
}

// serviceError is the structured error body the service returns.
type serviceError struct {
	Code           int      `json:"code"`
	Message        string   `json:"message"`
	NonFieldErrors []string `json:"nonFieldErrors"`
	Detail         string   `json:"detail"`
}

func (e serviceError) text() string {
	switch {
	case len(e.NonFieldErrors) > 0:
		return strings.Join(e.NonFieldErrors, "; ")
	case e.Message != "":
		return e.Message
	default:
		return e.Detail
	}
}

type delegatesResponse struct {
	Count   int `json:"count"`
	Results []struct {
		Delegate  string `json:"delegate"`
		Delegator string `json:"delegator"`
		Safe      string `json:"safe"`
		Label     string `json:"label"`
	} `json:"results"`
}

// TransactionStatus is the service's view of a proposed transaction.
type TransactionStatus struct {
	Safe                  string `json:"safe"`
	Nonce                 uint64 `json:"nonce"`
	SafeTxHash            string `json:"safeTxHash"`
	IsExecuted            bool   `json:"isExecuted"`
	IsSuccessful          *bool  `json:"isSuccessful"`
	TransactionHash       string `json:"transactionHash"`
	ConfirmationsRequired int    `json:"confirmationsRequired"`
	Confirmations         []struct {
		Owner string `json:"owner"`
	} `json:"confirmations"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "safe-swap")
	return &Client{
		log:    logger.NewSublogger("relay"),
		client: c,
	}
}

// Propose submits a signed envelope for other owners to confirm.
func (c *Client) Propose(ctx context.Context, env *safe.Envelope, sender common.Address, signature []byte) error {
	body := proposeRequest{
		To:                      env.To.Hex(),
		Value:                   valueString(env.Value),
		Operation:               uint8(env.Operation),
		SafeTxGas:               valueString(env.SafeTxGas),
		BaseGas:                 valueString(env.BaseGas),
		GasPrice:                valueString(env.GasPrice),
		GasToken:                env.GasToken.Hex(),
		RefundReceiver:          env.Refund.Hex(),
		Nonce:                   env.Nonce,
		ContractTransactionHash: env.Hash().Hex(),
		Sender:                  sender.Hex(),
		Signature:               hexutil.Encode(signature),
		Origin:                  "safe-swap",
	}
	if len(env.Data) > 0 {
		data := hexutil.Encode(env.Data)
		body.Data = &data
	}

	var apiErr serviceError
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr).
		Post(fmt.Sprintf("/api/v1/safes/%s/multisig-transactions/", env.Safe.Hex()))
	if err != nil {
		return xerrors.Wrap(xerrors.CodeRelayUnavailable, err, "transaction service request failed")
	}
	if resp.IsError() {
		c.log.WithFields(logrus.Fields{
			"status": resp.StatusCode(),
			"resp":   string(resp.Body()),
		}).Debug("Proposal refused")
		return classify(resp.StatusCode(), apiErr)
	}

	c.log.WithFields(logrus.Fields{
		"safe":       env.Safe.Hex(),
		"nonce":      env.Nonce,
		"safeTxHash": env.Hash().Hex(),
	}).Info("Proposed transaction")
	return nil
}

// IsDelegate reports whether addr may propose on behalf of an owner of the Safe.
func (c *Client) IsDelegate(ctx context.Context, safeAddr, addr common.Address) (bool, error) {
	var result delegatesResponse
	var apiErr serviceError
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"safe":     safeAddr.Hex(),
			"delegate": addr.Hex(),
		}).
		SetResult(&result).
		SetError(&apiErr).
		Get("/api/v1/delegates/")
	if err != nil {
		return false, xerrors.Wrap(xerrors.CodeRelayUnavailable, err, "transaction service request failed")
	}
	if resp.IsError() {
		return false, classify(resp.StatusCode(), apiErr)
	}
	for _, d := range result.Results {
		if common.IsHexAddress(d.Delegate) && common.HexToAddress(d.Delegate) == addr {
			return true, nil
		}
	}
	return false, nil
}

// Status fetches a proposed transaction by safeTxHash.
func (c *Client) Status(ctx context.Context, safeTxHash common.Hash) (*TransactionStatus, error) {
	var result TransactionStatus
	var apiErr serviceError
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&apiErr).
		Get(fmt.Sprintf("/api/v1/multisig-transactions/%s/", safeTxHash.Hex()))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRelayUnavailable, err, "transaction service request failed")
	}
	if resp.IsError() {
		return nil, classify(resp.StatusCode(), apiErr)
	}
	return &result, nil
}

// classify maps a service response to an error by status code and the
// structured body only.
func classify(status int, apiErr serviceError) error {
	message := apiErr.text()
	if message == "" {
		message = "transaction service returned status " + strconv.Itoa(status)
	}
	opts := []xerrors.Option{xerrors.WithMetadata("status", strconv.Itoa(status))}
	if apiErr.Code != 0 {
		opts = append(opts, xerrors.WithMetadata("code", strconv.Itoa(apiErr.Code)))
	}

	switch {
	case status == 422:
		opts = append(opts, xerrors.WithMetadata("reason", ReasonRejectedByService))
		return xerrors.New(xerrors.CodeRelayRejected, message, opts...)
	case status == 429 || status >= 500:
		return xerrors.New(xerrors.CodeRelayUnavailable, message, opts...)
	default:
		opts = append(opts, xerrors.WithRetryable(false))
		return xerrors.New(xerrors.CodeRelayUnavailable, message, opts...)
	}
}

func valueString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
