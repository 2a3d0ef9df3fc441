package matches

import (
	"github.com/smart845/spre/internal/hashutil"
)

// AlertKey identifies an alert for de-duplication: same base, venues, chain
// and direction map to the same key regardless of price.
func AlertKey(p Pair, dir Direction) string {
	return hashutil.ShortHash(24,
		p.CEX.Base,
		p.CEX.Venue,
		p.DEX.Venue,
		p.DEX.Chain,
		string(dir),
	)
}
