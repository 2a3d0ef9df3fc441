package collectors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCollector struct {
	name   string
	kind   VenueKind
	quotes []Quote
	err    error
	seen   FetchOptions
}

func (s *stubCollector) Name() string    { return s.name }
func (s *stubCollector) Kind() VenueKind { return s.kind }
func (s *stubCollector) Fetch(_ context.Context, opts FetchOptions) ([]Quote, error) {
	s.seen = opts
	return s.quotes, s.err
}

func cexQuote(venue, base string, price string) Quote {
	return Quote{
		Kind:       KindCEX,
		Venue:      venue,
		Base:       base,
		QuoteAsset: "USDT",
		Price:      decimal.RequireFromString(price),
		VolumeUSD:  decimal.NewFromInt(250000),
		ObservedAt: time.Now(),
	}
}

func TestNormalizeSymbol(t *testing.T) {
	for _, raw := range []string{"btc_usdt", "BTC-USDT", "BTC/USDT", " btcusdt "} {
		assert.Equal(t, "BTCUSDT", NormalizeSymbol(raw), raw)
	}
}

func TestSplitPair(t *testing.T) {
	base, ok := SplitPair("eth_usdt", "usdt")
	require.True(t, ok)
	assert.Equal(t, "ETH", base)

	_, ok = SplitPair("ETH-BTC", "USDT")
	assert.False(t, ok)

	_, ok = SplitPair("USDT", "USDT")
	assert.False(t, ok, "quote asset alone has no base")
}

func TestAliasesResolve(t *testing.T) {
	a := NewAliases(map[string]string{"weth": "eth", "": "x"})
	assert.Equal(t, "ETH", a.Resolve("WETH"))
	assert.Equal(t, "METH", a.Resolve("meth"))
	assert.Len(t, a, 1)
}

func TestSymbolKeysDoNotCollideAcrossChains(t *testing.T) {
	eth := Quote{Kind: KindDEX, Venue: "1inch", Chain: "ethereum", Base: "UNI", QuoteAsset: "USDT"}
	arb := eth
	arb.Chain = "arbitrum"

	assert.Equal(t, "ethereum:UNI/USDT", eth.SymbolKey())
	assert.NotEqual(t, eth.CacheKey(), arb.CacheKey())
	assert.Equal(t, "CEX|binance|UNIUSDT", cexQuote("binance", "UNI", "5").CacheKey())
}

func TestQuoteValid(t *testing.T) {
	assert.True(t, cexQuote("okx", "BTC", "100").Valid())
	assert.False(t, cexQuote("okx", "BTC", "0").Valid())
	assert.False(t, cexQuote("okx", "BTC", "-1").Valid())
	assert.False(t, cexQuote("okx", "", "1").Valid())
}

func TestCollectIsolatesFailingVenue(t *testing.T) {
	good := &stubCollector{name: "bybit", kind: KindCEX, quotes: []Quote{
		cexQuote("bybit", "BTC", "100"),
		cexQuote("bybit", "DOGE", "0"),
	}}
	bad := &stubCollector{name: "okx", kind: KindCEX, err: errors.New("okx API 503 Service Unavailable")}
	opts := FetchOptions{MinVolumeUSD: decimal.NewFromInt(100000)}

	res := Collect(context.Background(), []Collector{bad, good}, opts, 2)

	require.Len(t, res.Quotes, 1)
	assert.Equal(t, "BTC", res.Quotes[0].Base)
	assert.Equal(t, 1, res.PerVenue["bybit"])
	assert.NotContains(t, res.PerVenue, "okx")
	assert.EqualError(t, res.Errors["okx"], "okx API 503 Service Unavailable")
	assert.True(t, good.seen.MinVolumeUSD.Equal(decimal.NewFromInt(100000)))
}

func TestFetchOptionsWantsBase(t *testing.T) {
	assert.True(t, FetchOptions{}.WantsBase("ANY"))
	opts := FetchOptions{Bases: map[string]struct{}{"ETH": {}}}
	assert.True(t, opts.WantsBase("ETH"))
	assert.False(t, opts.WantsBase("METH"))
}
