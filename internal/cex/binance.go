package cex

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/samber/lo"

	"github.com/smart845/spre/internal/collectors"
)

const binanceEndpoint = "https://api.binance.com"

// Binance reads 24h spot stats through the go-binance client.
type Binance struct {
	cli *binance.Client
	cfg Config
	now func() time.Time
}

func NewBinance(cfg Config) *Binance {
	cfg = cfg.withDefaults(binanceEndpoint)
	cli := binance.NewClient("", "")
	cli.BaseURL = cfg.Endpoint
	cli.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Binance{cli: cli, cfg: cfg, now: time.Now}
}

func (b *Binance) Name() string               { return "binance" }
func (b *Binance) Kind() collectors.VenueKind { return collectors.KindCEX }

func (b *Binance) Fetch(ctx context.Context, opts collectors.FetchOptions) ([]collectors.Quote, error) {
	stats, err := b.cli.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance ticker/24hr: %w", err)
	}
	tickers := lo.FilterMap(stats, func(s *binance.PriceChangeStats, _ int) (ticker, bool) {
		if s == nil {
			return ticker{}, false
		}
		return ticker{Symbol: s.Symbol, Last: s.LastPrice, QuoteVolume: s.QuoteVolume}, true
	})
	return toQuotes(b.Name(), b.cfg.QuoteAsset, tickers, opts.MinVolumeUSD, b.now()), nil
}
