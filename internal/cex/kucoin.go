package cex

import (
	"context"
	"fmt"
	"net/http"
)

const kucoinEndpoint = "https://api.kucoin.com/api/v1/market/allTickers"

type kucoinResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Ticker []struct {
			Symbol   string  `json:"symbol"`
			Last     numeric `json:"last"`
			VolValue numeric `json:"volValue"`
		} `json:"ticker"`
	} `json:"data"`
}

// NewKuCoin returns the KuCoin spot collector.
func NewKuCoin(cfg Config) *RESTVenue {
	return newREST("kucoin", kucoinEndpoint, cfg, decodeKuCoin)
}

func decodeKuCoin(ctx context.Context, client *http.Client, name, url string) ([]ticker, error) {
	var resp kucoinResponse
	if err := getJSON(ctx, client, name, url, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "" && resp.Code != "200000" {
		return nil, fmt.Errorf("kucoin code %s: %s", resp.Code, resp.Msg)
	}
	out := make([]ticker, 0, len(resp.Data.Ticker))
	for _, t := range resp.Data.Ticker {
		out = append(out, ticker{Symbol: t.Symbol, Last: t.Last.String(), QuoteVolume: t.VolValue.String()})
	}
	return out, nil
}
