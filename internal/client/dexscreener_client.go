package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PairData is the subset of a DEX Screener pair used for price lookups.
type PairData struct {
	ChainID  string `json:"chainId"`
	PriceUSD string `json:"priceUsd"`
	BaseToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
}

// DEXScreenerClient defines the interface for interacting with the DEX
// Screener API.
type DEXScreenerClient interface {
	GetTokenPriceUSD(ctx context.Context, dexscreenerChainID string, tokenAddress string) (float64, error)
}

// dexScreenerClientImpl is the implementation of DEXScreenerClient.
type dexScreenerClientImpl struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// NewDEXScreenerClient creates a new instance of dexScreenerClientImpl.
func NewDEXScreenerClient(baseURL string, timeout time.Duration, logger *zap.Logger) DEXScreenerClient {
	return &dexScreenerClientImpl{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger.Named("DEXScreenerClient"),
	}
}

// GetTokenPriceUSD fetches the USD price of a single token. When multiple
// pairs exist the first one carrying a price wins.
func (c *dexScreenerClientImpl) GetTokenPriceUSD(ctx context.Context, dexscreenerChainID string, tokenAddress string) (float64, error) {
	if dexscreenerChainID == "" || tokenAddress == "" {
		return 0, fmt.Errorf("chain id and token address cannot be empty")
	}

	requestURL := fmt.Sprintf("%s/tokens/v1/%s/%s", c.baseURL, dexscreenerChainID, tokenAddress)
	c.logger.Debug("Requesting token price from DEX Screener", zap.String("url", requestURL))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetContentTypeBytes([]byte("application/json"))

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return 0, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			return 0, fmt.Errorf("failed to execute request to %s with default timeout: %w", requestURL, err)
		}
	}

	rawBody := resp.Body()
	if resp.StatusCode() != fasthttp.StatusOK {
		return 0, fmt.Errorf("DEX Screener API request to %s failed with status %d: %s", requestURL, resp.StatusCode(), string(rawBody))
	}

	var pairs []PairData
	if err := json.Unmarshal(rawBody, &pairs); err != nil {
		return 0, fmt.Errorf("failed to unmarshal DEX Screener response from %s: %w", requestURL, err)
	}

	for _, pair := range pairs {
		if pair.PriceUSD == "" {
			continue
		}
		price, err := strconv.ParseFloat(pair.PriceUSD, 64)
		if err != nil {
			c.logger.Warn("Skipping pair with unparsable price",
				zap.String("token", tokenAddress),
				zap.String("priceUsd", pair.PriceUSD))
			continue
		}
		return price, nil
	}

	return 0, fmt.Errorf("no priced pairs returned for token %s on %s", tokenAddress, dexscreenerChainID)
}
