package arb

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smart845/spre/internal/matches"
)

// Alert is a transient anomaly record; it is dispatched and then dropped.
type Alert struct {
	Key        string            `json:"key"`
	Base       string            `json:"base"`
	QuoteAsset string            `json:"quote_asset"`
	CEXVenue   string            `json:"cex_venue"`
	CEXPrice   decimal.Decimal   `json:"cex_price"`
	DEXVenue   string            `json:"dex_venue"`
	DEXChain   string            `json:"dex_chain"`
	DEXPrice   decimal.Decimal   `json:"dex_price"`
	SpreadPct  decimal.Decimal   `json:"spread_pct"`
	VolumeUSD  decimal.Decimal   `json:"volume_usd"`
	Direction  matches.Direction `json:"direction"`
	DetectedAt time.Time         `json:"detected_at"`
}

func NewAlert(pair matches.Pair, spread decimal.Decimal, dir matches.Direction) *Alert {
	return &Alert{
		Key:        matches.AlertKey(pair, dir),
		Base:       pair.CEX.Base,
		QuoteAsset: pair.CEX.QuoteAsset,
		CEXVenue:   pair.CEX.Venue,
		CEXPrice:   pair.CEX.Price,
		DEXVenue:   pair.DEX.Venue,
		DEXChain:   pair.DEX.Chain,
		DEXPrice:   pair.DEX.Price,
		SpreadPct:  spread,
		VolumeUSD:  pair.CEX.VolumeUSD,
		Direction:  dir,
		DetectedAt: time.Now().UTC(),
	}
}

// Format renders the alert as Telegram Markdown.
func (a Alert) Format() string {
	var b strings.Builder
	b.WriteString("*SPREAD ANOMALY*\n")
	fmt.Fprintf(&b, "`%s%s`\n", a.Base, a.QuoteAsset)
	fmt.Fprintf(&b, "`%s` → `%s`\n", strings.ToUpper(a.CEXVenue), a.CEXPrice.StringFixed(6))
	fmt.Fprintf(&b, "`%s (%s)` → `%s`\n", strings.ToUpper(a.DEXChain), strings.ToUpper(a.DEXVenue), a.DEXPrice.StringFixed(6))
	fmt.Fprintf(&b, "*Spread:* %s%%\n", a.SpreadPct.StringFixed(2))
	fmt.Fprintf(&b, "*Volume:* $%s\n", groupThousands(a.VolumeUSD.Round(0).String()))
	fmt.Fprintf(&b, "*%s*", a.Direction.Label())
	return b.String()
}

func (a Alert) String() string {
	return fmt.Sprintf("%s %s@%s vs %s:%s@%s spread=%s%% %s",
		a.Base, a.CEXVenue, a.CEXPrice, a.DEXChain, a.DEXVenue, a.DEXPrice, a.SpreadPct.StringFixed(2), a.Direction)
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	if len(digits) <= 3 {
		if neg {
			return "-" + digits
		}
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
