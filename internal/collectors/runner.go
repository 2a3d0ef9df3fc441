package collectors

import (
	"context"
	"sync"

	"github.com/smart845/spre/internal/logging"
	"github.com/smart845/spre/internal/workers"
)

// Result is what one Collect pass produced.
type Result struct {
	Quotes []Quote
	// PerVenue counts accepted quotes by collector name.
	PerVenue map[string]int
	// Errors holds the fetch error of every collector that failed.
	Errors map[string]error
}

// Collect runs every collector with at most limit fetches in flight and
// merges their quotes. A failing collector is logged and contributes no
// quotes; the others are unaffected. Quotes that fail Valid are dropped.
// Collect returns only after every collector has finished.
func Collect(ctx context.Context, list []Collector, opts FetchOptions, limit int) Result {
	res := Result{
		PerVenue: make(map[string]int, len(list)),
		Errors:   make(map[string]error),
	}
	var mu sync.Mutex

	batches := workers.Collect(ctx, limit, list,
		func(ctx context.Context, c Collector) ([]Quote, error) {
			return c.Fetch(ctx, opts)
		},
		func(c Collector, err error) {
			logging.Errorf("[%s] fetch failed: %v", c.Name(), err)
			mu.Lock()
			res.Errors[c.Name()] = err
			mu.Unlock()
		})

	for i, batch := range batches {
		name := list[i].Name()
		if _, failed := res.Errors[name]; failed {
			continue
		}
		accepted := 0
		for _, q := range batch {
			if !q.Valid() {
				logging.Debugf("[%s] drop invalid quote %s price=%s", name, q.SymbolKey(), q.Price)
				continue
			}
			res.Quotes = append(res.Quotes, q)
			accepted++
		}
		res.PerVenue[name] = accepted
		logging.Infof("[%s] loaded %d quotes", name, accepted)
	}
	return res
}
