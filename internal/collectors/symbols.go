package collectors

import "strings"

var symbolSeparators = strings.NewReplacer("-", "", "_", "", "/", "", ".", "", " ", "")

// NormalizeSymbol maps a venue-formatted pair (btc_usdt, BTC-USDT, BTC/USDT)
// to its canonical BTCUSDT form.
func NormalizeSymbol(raw string) string {
	return strings.ToUpper(symbolSeparators.Replace(strings.TrimSpace(raw)))
}

// NormalizeTicker canonicalizes a single asset ticker.
func NormalizeTicker(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// SplitPair splits a raw pair into base and quote asset. It only succeeds
// when the normalized symbol ends with quoteAsset and leaves a non-empty base.
func SplitPair(raw, quoteAsset string) (base string, ok bool) {
	sym := NormalizeSymbol(raw)
	quote := NormalizeTicker(quoteAsset)
	if quote == "" || len(sym) <= len(quote) || !strings.HasSuffix(sym, quote) {
		return "", false
	}
	return strings.TrimSuffix(sym, quote), true
}

// Aliases maps wrapped or bridged tickers onto the base they track
// (WETH -> ETH). Lookups are case-insensitive.
type Aliases map[string]string

func NewAliases(m map[string]string) Aliases {
	out := make(Aliases, len(m))
	for k, v := range m {
		k, v = NormalizeTicker(k), NormalizeTicker(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// Resolve returns the canonical ticker for raw.
func (a Aliases) Resolve(raw string) string {
	t := NormalizeTicker(raw)
	if v, ok := a[t]; ok {
		return v
	}
	return t
}
