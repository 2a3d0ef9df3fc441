package cex

import (
	"context"
	"fmt"
	"net/http"
)

const bybitEndpoint = "https://api.bybit.com/v5/market/tickers?category=spot"

type bybitResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol      string  `json:"symbol"`
			LastPrice   numeric `json:"lastPrice"`
			Turnover24h numeric `json:"turnover24h"`
		} `json:"list"`
	} `json:"result"`
}

// NewBybit returns the Bybit spot collector.
func NewBybit(cfg Config) *RESTVenue {
	return newREST("bybit", bybitEndpoint, cfg, decodeBybit)
}

func decodeBybit(ctx context.Context, client *http.Client, name, url string) ([]ticker, error) {
	var resp bybitResponse
	if err := getJSON(ctx, client, name, url, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit retCode %d: %s", resp.RetCode, resp.RetMsg)
	}
	out := make([]ticker, 0, len(resp.Result.List))
	for _, t := range resp.Result.List {
		out = append(out, ticker{Symbol: t.Symbol, Last: t.LastPrice.String(), QuoteVolume: t.Turnover24h.String()})
	}
	return out, nil
}
