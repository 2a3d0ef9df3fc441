package cache

import (
	"sort"
	"sync"

	"github.com/smart845/spre/internal/collectors"
)

// QuoteCache holds the latest quote per venueKind|venue|symbolKey. It is
// cleared at the start of a scan and repopulated before it is read.
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[string]collectors.Quote
}

func NewQuoteCache() *QuoteCache {
	return &QuoteCache{quotes: make(map[string]collectors.Quote)}
}

func (c *QuoteCache) Reset() {
	c.mu.Lock()
	c.quotes = make(map[string]collectors.Quote)
	c.mu.Unlock()
}

// Put stores valid quotes, replacing any earlier quote with the same key,
// and returns how many were stored.
func (c *QuoteCache) Put(quotes ...collectors.Quote) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, q := range quotes {
		if !q.Valid() {
			continue
		}
		c.quotes[q.CacheKey()] = q
		n++
	}
	return n
}

func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.quotes)
}

// Snapshot returns every cached quote sorted by cache key.
func (c *QuoteCache) Snapshot() []collectors.Quote {
	c.mu.RLock()
	keys := make([]string, 0, len(c.quotes))
	for k := range c.quotes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]collectors.Quote, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.quotes[k])
	}
	c.mu.RUnlock()
	return out
}

// ByKind splits a snapshot into CEX and DEX quotes.
func (c *QuoteCache) ByKind() (cex, dex []collectors.Quote) {
	for _, q := range c.Snapshot() {
		switch q.Kind {
		case collectors.KindCEX:
			cex = append(cex, q)
		case collectors.KindDEX:
			dex = append(dex, q)
		}
	}
	return cex, dex
}
