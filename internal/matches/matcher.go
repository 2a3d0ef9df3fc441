package matches

import (
	"github.com/samber/lo"

	"github.com/smart845/spre/internal/collectors"
)

// Match pairs every CEX quote with every DEX quote (on any chain) whose base
// ticker is exactly equal. Quotes with a non-positive price never pair.
// Output follows the order of cex, then of dex within a base.
func Match(cex, dex []collectors.Quote) []Pair {
	byBase := lo.GroupBy(
		lo.Filter(dex, func(q collectors.Quote, _ int) bool {
			return q.Kind == collectors.KindDEX && q.Price.IsPositive()
		}),
		func(q collectors.Quote) string { return q.Base },
	)

	var pairs []Pair
	for _, c := range cex {
		if c.Kind != collectors.KindCEX || !c.Price.IsPositive() || c.Base == "" {
			continue
		}
		for _, d := range byBase[c.Base] {
			pairs = append(pairs, Pair{CEX: c, DEX: d})
		}
	}
	return pairs
}

// Bases returns the distinct base tickers among quotes.
func Bases(quotes []collectors.Quote) map[string]struct{} {
	out := make(map[string]struct{}, len(quotes))
	for _, q := range quotes {
		if q.Base != "" {
			out[q.Base] = struct{}{}
		}
	}
	return out
}
