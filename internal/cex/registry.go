package cex

import (
	"fmt"
	"strings"

	"github.com/smart845/spre/internal/collectors"
)

// Venues lists every supported CEX in the order they are scanned by default.
var Venues = []string{"binance", "bybit", "okx", "kucoin", "gate", "bitget"}

// New builds the collector for one named venue.
func New(name string, cfg Config) (collectors.Collector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "binance":
		return NewBinance(cfg), nil
	case "bybit":
		return NewBybit(cfg), nil
	case "okx":
		return NewOKX(cfg), nil
	case "kucoin":
		return NewKuCoin(cfg), nil
	case "gate":
		return NewGate(cfg), nil
	case "bitget":
		return NewBitget(cfg), nil
	default:
		return nil, fmt.Errorf("unknown cex venue %q", name)
	}
}

// Build constructs collectors for names. cfgFor supplies per-venue settings.
func Build(names []string, cfgFor func(name string) Config) ([]collectors.Collector, error) {
	out := make([]collectors.Collector, 0, len(names))
	for _, name := range names {
		c, err := New(name, cfgFor(name))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
