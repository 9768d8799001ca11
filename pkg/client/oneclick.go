package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	xerrors "safe-swap/pkg/errors"
	"safe-swap/pkg/logger"
	"safe-swap/pkg/types"
)

const DefaultOneClickURL = "https://1click.chaindefuser.com"

// oneClickSlippageBps is the refund tolerance sent to 1Click (5%). Output
// bounds shown to the user are recomputed locally.
const oneClickSlippageBps = 500

// OneClickClient wraps the 1Click SDK
type OneClickClient struct {
	log      *logrus.Entry
	client   *oneclick.APIClient
	jwtToken string
}

// OneClickQuoteParams describes a same-chain exact-input quote.
type OneClickQuoteParams struct {
	Chain     string
	FromToken common.Address
	ToToken   common.Address
	Amount    *big.Int
	Recipient common.Address
	RefundTo  common.Address
	Dry       bool
}

// OneClickQuote is the part of a 1Click quote the engine acts on. Amounts are
// in base units.
type OneClickQuote struct {
	DepositAddress string
	AmountIn       string
	AmountOut      string
	TimeEstimate   float64
}

// NewOneClickClient creates a new 1Click API client
func NewOneClickClient(baseURL, jwtToken string) *OneClickClient {
	config := oneclick.NewConfiguration()
	if baseURL != "" {
		config.Servers = oneclick.ServerConfigurations{{URL: strings.TrimRight(baseURL, "/")}}
	}

	return &OneClickClient{
		log:      logger.NewSublogger("oneclick"),
		client:   oneclick.NewAPIClient(config),
		jwtToken: jwtToken,
	}
}

func (c *OneClickClient) authContext(ctx context.Context) context.Context {
	if c.jwtToken == "" {
		return ctx
	}
	return context.WithValue(ctx, oneclick.ContextAccessToken, c.jwtToken)
}

// GetSupportedTokens retrieves all supported tokens
func (c *OneClickClient) GetSupportedTokens(ctx context.Context) ([]oneclick.TokenResponse, error) {
	resp, httpResp, err := c.client.OneClickAPI.GetTokens(c.authContext(ctx)).Execute()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeQuoteUnavailable, err, "failed to get tokens")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, xerrors.Newf(xerrors.CodeQuoteUnavailable, "API returned status code %d", httpResp.StatusCode)
	}

	return resp, nil
}

// FindToken matches an EVM token by contract address on chain. The native
// currency is the entry without a contract address.
func (c *OneClickClient) FindToken(ctx context.Context, chain string, addr common.Address) (*oneclick.TokenResponse, error) {
	tokens, err := c.GetSupportedTokens(ctx)
	if err != nil {
		return nil, err
	}

	for _, token := range tokens {
		if !strings.EqualFold(token.GetBlockchain(), chain) {
			continue
		}
		contract := token.GetContractAddress()
		if addr == types.NativeTokenAddress {
			if contract == "" {
				return &token, nil
			}
			continue
		}
		if common.IsHexAddress(contract) && common.HexToAddress(contract) == addr {
			return &token, nil
		}
	}

	return nil, xerrors.Newf(xerrors.CodeNoRoute, "token %s not available on 1click chain %s", addr.Hex(), chain)
}

// GetQuote generates a swap quote with a deposit address.
func (c *OneClickClient) GetQuote(ctx context.Context, p OneClickQuoteParams) (*OneClickQuote, error) {
	sourceToken, err := c.FindToken(ctx, p.Chain, p.FromToken)
	if err != nil {
		return nil, err
	}
	destToken, err := c.FindToken(ctx, p.Chain, p.ToToken)
	if err != nil {
		return nil, err
	}

	refundTo := p.RefundTo
	if refundTo == (common.Address{}) {
		refundTo = p.Recipient
	}

	deadline := time.Now().Add(24 * time.Hour)

	quoteReq := oneclick.NewQuoteRequest(
		p.Dry,
		"EXACT_INPUT",
		oneClickSlippageBps,
		sourceToken.GetAssetId(),
		"ORIGIN_CHAIN",
		destToken.GetAssetId(),
		p.Amount.String(),
		refundTo.Hex(),
		"ORIGIN_CHAIN",
		p.Recipient.Hex(),
		"DESTINATION_CHAIN",
		deadline,
	)

	resp, httpResp, err := c.client.OneClickAPI.GetQuote(c.authContext(ctx)).QuoteRequest(*quoteReq).Execute()
	if err != nil {
		if httpResp != nil {
			defer httpResp.Body.Close()
			return nil, c.classify(httpResp)
		}
		return nil, xerrors.Wrap(xerrors.CodeQuoteUnavailable, err, "failed to get quote from API")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, c.classify(httpResp)
	}

	if resp == nil {
		return nil, xerrors.New(xerrors.CodeQuoteUnavailable, "empty quote response")
	}

	quote := resp.GetQuote()
	return &OneClickQuote{
		DepositAddress: quote.GetDepositAddress(),
		AmountIn:       quote.GetAmountIn(),
		AmountOut:      quote.GetAmountOut(),
		TimeEstimate:   float64(quote.GetTimeEstimate()),
	}, nil
}

// GetSwapStatus checks the execution status of a swap
func (c *OneClickClient) GetSwapStatus(ctx context.Context, depositAddress string) (*oneclick.GetExecutionStatusResponse, error) {
	resp, httpResp, err := c.client.OneClickAPI.GetExecutionStatus(c.authContext(ctx)).DepositAddress(depositAddress).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}

	return resp, nil
}

// classify maps an error response to a quote error. 4xx responses mean the
// pair or amount cannot be routed; anything else is a service failure.
func (c *OneClickClient) classify(httpResp *http.Response) error {
	message := fmt.Sprintf("API returned status code %d", httpResp.StatusCode)

	bodyBytes, readErr := io.ReadAll(httpResp.Body)
	if readErr == nil && len(bodyBytes) > 0 {
		var errorResp struct {
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(bodyBytes, &errorResp); jsonErr == nil && errorResp.Message != "" {
			message = fmt.Sprintf("API error (status %d): %s", httpResp.StatusCode, errorResp.Message)
		}
	}
	c.log.WithField("status", httpResp.StatusCode).WithField("resp", string(bodyBytes)).Debug("Quote rejected")

	code := xerrors.CodeQuoteUnavailable
	if httpResp.StatusCode >= 400 && httpResp.StatusCode < 500 && httpResp.StatusCode != http.StatusTooManyRequests &&
		httpResp.StatusCode != http.StatusUnauthorized {
		code = xerrors.CodeNoRoute
	}
	return xerrors.New(code, message, xerrors.WithMetadata("status", fmt.Sprint(httpResp.StatusCode)))
}
