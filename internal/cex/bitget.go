package cex

import (
	"context"
	"fmt"
	"net/http"
)

const bitgetEndpoint = "https://api.bitget.com/api/v2/spot/market/tickers"

type bitgetResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		Symbol string `json:"symbol"`
		// v1 used close/usdtVol, v2 uses lastPr/usdtVolume.
		Close      numeric `json:"close"`
		LastPr     numeric `json:"lastPr"`
		UsdtVol    numeric `json:"usdtVol"`
		UsdtVolume numeric `json:"usdtVolume"`
	} `json:"data"`
}

// NewBitget returns the Bitget spot collector.
func NewBitget(cfg Config) *RESTVenue {
	return newREST("bitget", bitgetEndpoint, cfg, decodeBitget)
}

func decodeBitget(ctx context.Context, client *http.Client, name, url string) ([]ticker, error) {
	var resp bitgetResponse
	if err := getJSON(ctx, client, name, url, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "" && resp.Code != "00000" {
		return nil, fmt.Errorf("bitget code %s: %s", resp.Code, resp.Msg)
	}
	out := make([]ticker, 0, len(resp.Data))
	for _, t := range resp.Data {
		out = append(out, ticker{
			Symbol:      t.Symbol,
			Last:        firstNonEmpty(t.Close, t.LastPr),
			QuoteVolume: firstNonEmpty(t.UsdtVol, t.UsdtVolume),
		})
	}
	return out, nil
}
