package matches

import (
	"github.com/shopspring/decimal"

	"github.com/smart845/spre/internal/collectors"
)

type Direction string

const (
	DirectionNone          Direction = ""
	DirectionBuyCEXSellDEX Direction = "BUY_CEX_SELL_DEX"
	DirectionBuyDEXSellCEX Direction = "BUY_DEX_SELL_CEX"
)

// DirectionFor buys on the cheaper side: CEX below DEX means buy on the CEX.
func DirectionFor(cexPrice, dexPrice decimal.Decimal) Direction {
	if cexPrice.LessThan(dexPrice) {
		return DirectionBuyCEXSellDEX
	}
	return DirectionBuyDEXSellCEX
}

// Label is the human-readable form used in alert text.
func (d Direction) Label() string {
	switch d {
	case DirectionBuyCEXSellDEX:
		return "BUY CEX → SELL DEX"
	case DirectionBuyDEXSellCEX:
		return "BUY DEX → SELL CEX"
	default:
		return string(d)
	}
}

// Pair is one CEX quote and one DEX quote for the same base asset.
type Pair struct {
	CEX collectors.Quote `json:"cex"`
	DEX collectors.Quote `json:"dex"`
}
