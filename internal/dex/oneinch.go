package dex

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultOneInchURL = "https://api.1inch.dev/swap/v5.2"

type OneInchConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// OneInch serves both the token list and unit quotes from the 1inch
// aggregation API.
type OneInch struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewOneInch(cfg OneInchConfig) *OneInch {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultOneInchURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &OneInch{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OneInch) Name() string { return "1inch" }

type tokensResponse struct {
	Tokens map[string]Token `json:"tokens"`
}

func (c *OneInch) ListTokens(ctx context.Context, chain Chain) (map[string]Token, error) {
	var out tokensResponse
	endpoint := fmt.Sprintf("%s/%d/tokens", c.baseURL, chain.ID)
	if err := getJSON(ctx, c.httpClient, c.Name(), endpoint, c.header(), &out); err != nil {
		return nil, fmt.Errorf("1inch tokens %s: %w", chain.Name, err)
	}
	if len(out.Tokens) == 0 {
		return nil, fmt.Errorf("1inch tokens %s: empty list", chain.Name)
	}
	for addr, tok := range out.Tokens {
		if tok.Address == "" {
			tok.Address = addr
			out.Tokens[addr] = tok
		}
	}
	return out.Tokens, nil
}

type quoteResponse struct {
	ToTokenAmount string `json:"toTokenAmount"`
	ToAmount      string `json:"toAmount"`
}

func (c *OneInch) Quote(ctx context.Context, chain Chain, from, to Token, amount *big.Int) (*big.Int, error) {
	q := url.Values{}
	// Legacy hosts read fromTokenAddress/toTokenAddress, the dev portal src/dst.
	q.Set("fromTokenAddress", from.Address)
	q.Set("toTokenAddress", to.Address)
	q.Set("src", from.Address)
	q.Set("dst", to.Address)
	q.Set("amount", amount.String())
	endpoint := fmt.Sprintf("%s/%d/quote?%s", c.baseURL, chain.ID, q.Encode())

	var out quoteResponse
	if err := getJSON(ctx, c.httpClient, c.Name(), endpoint, c.header(), &out); err != nil {
		return nil, err
	}
	raw := out.ToTokenAmount
	if raw == "" {
		raw = out.ToAmount
	}
	return parseAmount(raw)
}

func (c *OneInch) header() http.Header {
	if c.apiKey == "" {
		return nil
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.apiKey)
	return h
}
