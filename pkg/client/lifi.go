package client

import (
	"context"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/logger"
	"safe-swap/pkg/types"
)

const DefaultLiFiURL = "https://li.quest/v1"

// LiFiClient talks to the Li.Fi aggregator API.
type LiFiClient struct {
	log    *logrus.Entry
	client *resty.Client
}

// LiFiQuoteParams describes a same-chain quote request.
type LiFiQuoteParams struct {
	ChainID     uint64
	FromToken   common.Address
	ToToken     common.Address
	Amount      *big.Int
	FromAddress common.Address
	Slippage    float64
	// ExactOutput makes Amount the amount of ToToken to receive.
	ExactOutput bool
}

// LiFiQuote is the subset of the quote response the engine reads.
type LiFiQuote struct {
	Tool        string `json:"tool"`
	ToolDetails struct {
		Name string `json:"name"`
	} `json:"toolDetails"`
	Estimate struct {
		FromAmount      string `json:"fromAmount"`
		ToAmount        string `json:"toAmount"`
		ToAmountMin     string `json:"toAmountMin"`
		ApprovalAddress string `json:"approvalAddress"`
	} `json:"estimate"`
	TransactionRequest struct {
		To       string `json:"to"`
		From     string `json:"from"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		GasPrice string `json:"gasPrice"`
		GasLimit string `json:"gasLimit"`
	} `json:"transactionRequest"`
}

type lifiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func NewLiFiClient(baseURL, apiKey string, timeout time.Duration) *LiFiClient {
	if baseURL == "" {
		baseURL = DefaultLiFiURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "safe-swap").
		SetRetryCount(0)
	if apiKey != "" {
		c.SetHeader("x-lifi-api-key", apiKey)
	}
	return &LiFiClient{
		log:    logger.NewSublogger("lifi"),
		client: c,
	}
}

// GetQuote requests a single-step route. A missing route and an unavailable
// service are reported with distinct error codes.
func (c *LiFiClient) GetQuote(ctx context.Context, p LiFiQuoteParams) (*LiFiQuote, error) {
	path := "/quote"
	amountKey := "fromAmount"
	if p.ExactOutput {
		path = "/quote/toAmount"
		amountKey = "toAmount"
	}

	chain := strconv.FormatUint(p.ChainID, 10)
	var quote LiFiQuote
	var apiErr lifiError

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fromChain":   chain,
			"toChain":     chain,
			"fromToken":   lifiToken(p.FromToken).Hex(),
			"toToken":     lifiToken(p.ToToken).Hex(),
			amountKey:     p.Amount.String(),
			"fromAddress": p.FromAddress.Hex(),
			"slippage":    strconv.FormatFloat(p.Slippage, 'f', -1, 64),
		}).
		SetResult(&quote).
		SetError(&apiErr).
		Get(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeQuoteUnavailable, err, "lifi request failed")
	}

	status := resp.StatusCode()
	if resp.IsError() {
		c.log.WithField("status", status).
			WithField("code", apiErr.Code).
			WithField("resp", string(resp.Body())).
			Debug("Quote rejected")
		return nil, classifyLiFiError(status, apiErr)
	}
	if quote.TransactionRequest.To == "" {
		return nil, xerrors.New(xerrors.CodeNoRoute, "lifi returned a quote without a transaction")
	}
	return &quote, nil
}

func classifyLiFiError(status int, apiErr lifiError) error {
	message := apiErr.Message
	if message == "" {
		message = "lifi returned status " + strconv.Itoa(status)
	}
	opts := []xerrors.Option{
		xerrors.WithMetadata("status", strconv.Itoa(status)),
		xerrors.WithMetadata("code", strconv.Itoa(apiErr.Code)),
	}
	switch {
	case status == 429 || status >= 500:
		return xerrors.New(xerrors.CodeQuoteUnavailable, message, opts...)
	default:
		return xerrors.New(xerrors.CodeNoRoute, message, opts...)
	}
}

// Li.Fi expects the zero address for the native currency.
func lifiToken(addr common.Address) common.Address {
	if addr == types.NativeTokenAddress {
		return common.Address{}
	}
	return addr
}

