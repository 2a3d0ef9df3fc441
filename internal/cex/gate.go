package cex

import (
	"context"
	"net/http"
	"sort"
)

const gateEndpoint = "https://api.gate.io/api2/1/tickers"

type gateTicker struct {
	Last        numeric `json:"last"`
	QuoteVolume numeric `json:"quoteVolume"`
}

// NewGate returns the Gate spot collector. The response is an object keyed
// by pair (btc_usdt) rather than a list.
func NewGate(cfg Config) *RESTVenue {
	return newREST("gate", gateEndpoint, cfg, decodeGate)
}

func decodeGate(ctx context.Context, client *http.Client, name, url string) ([]ticker, error) {
	var resp map[string]gateTicker
	if err := getJSON(ctx, client, name, url, &resp); err != nil {
		return nil, err
	}
	pairs := make([]string, 0, len(resp))
	for pair := range resp {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)
	out := make([]ticker, 0, len(pairs))
	for _, pair := range pairs {
		t := resp[pair]
		out = append(out, ticker{Symbol: pair, Last: t.Last.String(), QuoteVolume: t.QuoteVolume.String()})
	}
	return out, nil
}
