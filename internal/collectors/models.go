package collectors

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// VenueKind separates centralized order-book venues from on-chain aggregators.
type VenueKind string

const (
	KindCEX VenueKind = "CEX"
	KindDEX VenueKind = "DEX"
)

// FetchOptions narrows what a collector returns for one scan cycle.
type FetchOptions struct {
	// MinVolumeUSD drops CEX pairs whose 24h quote volume is not above it.
	MinVolumeUSD decimal.Decimal
	// Bases, when non-nil, limits DEX collectors to these base tickers.
	Bases map[string]struct{}
}

// WantsBase reports whether base passes the Bases filter.
func (o FetchOptions) WantsBase(base string) bool {
	if o.Bases == nil {
		return true
	}
	_, ok := o.Bases[base]
	return ok
}

// Collector is implemented by every venue adapter (one per CEX, one per
// DEX chain). Each call fetches, normalizes and returns the venue's quotes;
// an error means the venue contributes nothing this cycle.
type Collector interface {
	Name() string
	Kind() VenueKind
	Fetch(ctx context.Context, opts FetchOptions) ([]Quote, error)
}

// Quote is a normalized price observation for one base asset on one venue.
type Quote struct {
	Kind       VenueKind       `json:"kind"`
	Venue      string          `json:"venue"`
	Chain      string          `json:"chain,omitempty"`
	Base       string          `json:"base"`
	QuoteAsset string          `json:"quote_asset"`
	Price      decimal.Decimal `json:"price"`
	VolumeUSD  decimal.Decimal `json:"volume_usd"`
	ObservedAt time.Time       `json:"observed_at"`
}

// SymbolKey is BASEQUOTE for CEX quotes and chain:BASE/QUOTE for DEX quotes,
// so the same ticker on different chains never collides.
func (q Quote) SymbolKey() string {
	if q.Kind == KindDEX {
		return fmt.Sprintf("%s:%s/%s", q.Chain, q.Base, q.QuoteAsset)
	}
	return q.Base + q.QuoteAsset
}

// CacheKey is the composite venueKind|venue|symbolKey identity.
func (q Quote) CacheKey() string {
	return fmt.Sprintf("%s|%s|%s", q.Kind, q.Venue, q.SymbolKey())
}

// Valid reports whether the quote is usable for comparison.
func (q Quote) Valid() bool {
	return q.Base != "" && q.Price.IsPositive() && !q.VolumeUSD.IsNegative()
}
