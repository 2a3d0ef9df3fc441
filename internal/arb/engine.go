package arb

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/smart845/spre/internal/matches"
)

type Config struct {
	MinSpreadPct decimal.Decimal
	MinVolumeUSD decimal.Decimal
}

type Result struct {
	SpreadPct decimal.Decimal
	Direction matches.Direction
	Alert     *Alert
	// Reason is set when the pair was not evaluated.
	Reason string
}

var (
	hundred = decimal.NewFromInt(100)

	ErrNonPositiveReference = errors.New("reference price must be positive")
)

// SpreadPct returns |other-ref| / ref * 100.
func SpreadPct(ref, other decimal.Decimal) (decimal.Decimal, error) {
	if !ref.IsPositive() {
		return decimal.Zero, ErrNonPositiveReference
	}
	return other.Sub(ref).Abs().Div(ref).Mul(hundred), nil
}

// Evaluate computes the spread of a matched pair against the CEX price and
// decides whether it is alert-worthy: spread at or above MinSpreadPct and
// CEX volume at or above MinVolumeUSD.
func Evaluate(pair matches.Pair, cfg Config) Result {
	if !pair.DEX.Price.IsPositive() {
		return Result{Reason: "dex price not positive"}
	}
	spread, err := SpreadPct(pair.CEX.Price, pair.DEX.Price)
	if err != nil {
		return Result{Reason: err.Error()}
	}

	res := Result{
		SpreadPct: spread,
		Direction: matches.DirectionFor(pair.CEX.Price, pair.DEX.Price),
	}
	if spread.LessThan(cfg.MinSpreadPct) {
		res.Reason = "below min spread"
		return res
	}
	if pair.CEX.VolumeUSD.LessThan(cfg.MinVolumeUSD) {
		res.Reason = "below min volume"
		return res
	}
	res.Alert = NewAlert(pair, spread, res.Direction)
	return res
}

// EvaluateAll returns the alerts among pairs in input order.
func EvaluateAll(pairs []matches.Pair, cfg Config) []Alert {
	var out []Alert
	for _, p := range pairs {
		if res := Evaluate(p, cfg); res.Alert != nil {
			out = append(out, *res.Alert)
		}
	}
	return out
}
