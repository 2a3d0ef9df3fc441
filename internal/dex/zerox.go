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

type ZeroXConfig struct {
	APIKey  string
	Timeout time.Duration
}

// ZeroX quotes through the 0x price endpoint of each chain's host.
type ZeroX struct {
	apiKey     string
	httpClient *http.Client
}

func NewZeroX(cfg ZeroXConfig) *ZeroX {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &ZeroX{apiKey: cfg.APIKey, httpClient: &http.Client{Timeout: timeout}}
}

func (c *ZeroX) Name() string { return "0x" }

type priceResponse struct {
	BuyAmount string `json:"buyAmount"`
}

func (c *ZeroX) Quote(ctx context.Context, chain Chain, from, to Token, amount *big.Int) (*big.Int, error) {
	host := strings.TrimRight(chain.ZeroXURL, "/")
	if host == "" {
		return nil, fmt.Errorf("0x: no host for chain %s", chain.Name)
	}
	q := url.Values{}
	q.Set("sellToken", from.Address)
	q.Set("buyToken", to.Address)
	q.Set("sellAmount", amount.String())
	endpoint := host + "/swap/v1/price?" + q.Encode()

	var header http.Header
	if c.apiKey != "" {
		header = http.Header{}
		header.Set("0x-api-key", c.apiKey)
	}
	var out priceResponse
	if err := getJSON(ctx, c.httpClient, c.Name(), endpoint, header, &out); err != nil {
		return nil, err
	}
	return parseAmount(out.BuyAmount)
}
