package cex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/smart845/spre/internal/collectors"
	"github.com/smart845/spre/internal/logging"
)

const defaultTimeout = 10 * time.Second

// Config carries the per-venue settings shared by every adapter.
type Config struct {
	// Endpoint overrides the venue's ticker URL (base URL for binance).
	Endpoint   string
	QuoteAsset string
	Timeout    time.Duration
}

func (c Config) withDefaults(endpoint string) Config {
	if c.Endpoint == "" {
		c.Endpoint = endpoint
	}
	if c.QuoteAsset == "" {
		c.QuoteAsset = "USDT"
	}
	c.QuoteAsset = collectors.NormalizeTicker(c.QuoteAsset)
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// ticker is the venue-neutral shape every adapter decodes into.
type ticker struct {
	Symbol      string
	Last        string
	QuoteVolume string
}

// numeric accepts JSON strings and bare numbers alike; venues disagree.
type numeric string

func (n *numeric) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*n = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*n = numeric(v)
	default:
		*n = numeric(s)
	}
	return nil
}

func (n numeric) String() string { return string(n) }

func firstNonEmpty(values ...numeric) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

// toQuotes keeps quote-asset pairs whose 24h quote volume is above the floor.
func toQuotes(venue, quoteAsset string, tickers []ticker, minVolume decimal.Decimal, now time.Time) []collectors.Quote {
	return lo.FilterMap(tickers, func(t ticker, _ int) (collectors.Quote, bool) {
		base, ok := collectors.SplitPair(t.Symbol, quoteAsset)
		if !ok {
			return collectors.Quote{}, false
		}
		price, err := decimal.NewFromString(strings.TrimSpace(t.Last))
		if err != nil || !price.IsPositive() {
			return collectors.Quote{}, false
		}
		volume, err := decimal.NewFromString(strings.TrimSpace(t.QuoteVolume))
		if err != nil {
			logging.Debugf("[%s] bad volume for %s: %q", venue, t.Symbol, t.QuoteVolume)
			return collectors.Quote{}, false
		}
		if !volume.GreaterThan(minVolume) {
			return collectors.Quote{}, false
		}
		return collectors.Quote{
			Kind:       collectors.KindCEX,
			Venue:      venue,
			Base:       base,
			QuoteAsset: quoteAsset,
			Price:      price,
			VolumeUSD:  volume,
			ObservedAt: now,
		}, true
	})
}

// getJSON performs one GET and decodes a 2xx body into dst. No retries: a
// failed call means no data from this venue for the cycle.
func getJSON(ctx context.Context, client *http.Client, venue, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", venue, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s API %s: %s", venue, resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", venue, err)
	}
	return nil
}
