package cex

import (
	"context"
	"fmt"
	"net/http"
)

const okxEndpoint = "https://www.okx.com/api/v5/market/tickers?instType=SPOT"

type okxResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		InstID    string  `json:"instId"`
		Last      numeric `json:"last"`
		VolCcy24h numeric `json:"volCcy24h"`
	} `json:"data"`
}

// NewOKX returns the OKX spot collector. Instruments look like BTC-USDT.
func NewOKX(cfg Config) *RESTVenue {
	return newREST("okx", okxEndpoint, cfg, decodeOKX)
}

func decodeOKX(ctx context.Context, client *http.Client, name, url string) ([]ticker, error) {
	var resp okxResponse
	if err := getJSON(ctx, client, name, url, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "" && resp.Code != "0" {
		return nil, fmt.Errorf("okx code %s: %s", resp.Code, resp.Msg)
	}
	out := make([]ticker, 0, len(resp.Data))
	for _, t := range resp.Data {
		out = append(out, ticker{Symbol: t.InstID, Last: t.Last.String(), QuoteVolume: t.VolCcy24h.String()})
	}
	return out, nil
}
