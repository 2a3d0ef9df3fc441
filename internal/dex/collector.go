package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/smart845/spre/internal/collectors"
	"github.com/smart845/spre/internal/logging"
	"github.com/smart845/spre/internal/workers"
)

var errZeroAmount = errors.New("zero converted amount")

type Options struct {
	StableSymbol     string
	QuoteConcurrency int
	// MaxTokens caps quote calls per chain per cycle; 0 means no cap.
	MaxTokens int
	Aliases   collectors.Aliases
}

// ChainCollector prices every listed token on one chain against the
// chain's reference stable token.
type ChainCollector struct {
	chain    Chain
	lister   TokenLister
	quoter   Quoter
	decimals DecimalsReader
	opts     Options
	now      func() time.Time

	skipped atomic.Int64
}

func NewChainCollector(chain Chain, lister TokenLister, quoter Quoter, decimals DecimalsReader, opts Options) *ChainCollector {
	if opts.StableSymbol == "" {
		opts.StableSymbol = "USDT"
	}
	opts.StableSymbol = collectors.NormalizeTicker(opts.StableSymbol)
	if opts.QuoteConcurrency <= 0 {
		opts.QuoteConcurrency = 4
	}
	return &ChainCollector{
		chain:    chain,
		lister:   lister,
		quoter:   quoter,
		decimals: decimals,
		opts:     opts,
		now:      time.Now,
	}
}

func (c *ChainCollector) Name() string               { return "dex:" + c.chain.Name }
func (c *ChainCollector) Kind() collectors.VenueKind { return collectors.KindDEX }

// Skipped is the number of tokens whose quote failed in the most recent Fetch.
func (c *ChainCollector) Skipped() int64 { return c.skipped.Load() }

func (c *ChainCollector) Fetch(ctx context.Context, opts collectors.FetchOptions) ([]collectors.Quote, error) {
	c.skipped.Store(0)

	tokens, err := c.lister.ListTokens(ctx, c.chain)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	stable, ok := findStable(tokens, c.opts.StableSymbol)
	if !ok {
		return nil, fmt.Errorf("stable %s not found on %s", c.opts.StableSymbol, c.chain.Name)
	}
	stableDecimals := c.resolveDecimals(ctx, stable)

	candidates := c.candidates(tokens, stable, opts)
	now := c.now()
	batches := workers.Collect(ctx, c.opts.QuoteConcurrency, candidates,
		func(ctx context.Context, tok Token) ([]collectors.Quote, error) {
			q, err := c.quoteToken(ctx, tok, stable, stableDecimals, now)
			if err != nil {
				return nil, err
			}
			return []collectors.Quote{q}, nil
		},
		func(tok Token, err error) {
			c.skipped.Add(1)
			logging.Debugf("[%s] skip %s (%s): %v", c.Name(), tok.Symbol, tok.Address, err)
		})

	quotes := lo.Flatten(batches)
	logging.Debugf("[%s] quoted %d of %d tokens via %s", c.Name(), len(quotes), len(candidates), c.quoter.Name())
	return quotes, nil
}

// candidates returns the tokens worth quoting this cycle, ordered by address
// so truncation and duplicate-symbol resolution are deterministic.
func (c *ChainCollector) candidates(tokens map[string]Token, stable Token, opts collectors.FetchOptions) []Token {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if strings.EqualFold(tok.Address, stable.Address) {
			continue
		}
		base := c.opts.Aliases.Resolve(tok.Symbol)
		if base == "" || !opts.WantsBase(base) {
			continue
		}
		tok.Symbol = base
		out = append(out, tok)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Address) < strings.ToLower(out[j].Address)
	})

	// Aliasing can fold two tokens (native ETH and WETH) onto one base; the
	// lowest address is the one quoted.
	seen := make(map[string]string, len(out))
	uniq := out[:0]
	for _, tok := range out {
		if first, dup := seen[tok.Symbol]; dup {
			logging.Debugf("[%s] %s (%s) collides with %s on base %s; not quoted", c.Name(), tok.Symbol, tok.Address, first, tok.Symbol)
			continue
		}
		seen[tok.Symbol] = tok.Address
		uniq = append(uniq, tok)
	}
	out = uniq

	if c.opts.MaxTokens > 0 && len(out) > c.opts.MaxTokens {
		out = out[:c.opts.MaxTokens]
	}
	return out
}

func (c *ChainCollector) quoteToken(ctx context.Context, tok, stable Token, stableDecimals int, now time.Time) (collectors.Quote, error) {
	dec := c.resolveDecimals(ctx, tok)
	amount := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(dec)), nil)

	converted, err := c.quoter.Quote(ctx, c.chain, tok, stable, amount)
	if err != nil {
		return collectors.Quote{}, err
	}
	if converted == nil || converted.Sign() <= 0 {
		return collectors.Quote{}, errZeroAmount
	}
	return collectors.Quote{
		Kind:       collectors.KindDEX,
		Venue:      c.quoter.Name(),
		Chain:      c.chain.Name,
		Base:       tok.Symbol,
		QuoteAsset: c.opts.StableSymbol,
		Price:      decimal.NewFromBigInt(converted, -int32(stableDecimals)),
		VolumeUSD:  decimal.Zero,
		ObservedAt: now,
	}, nil
}

// resolveDecimals prefers the token list, then the chain, then FallbackDecimals.
func (c *ChainCollector) resolveDecimals(ctx context.Context, tok Token) int {
	if tok.Decimals > 0 {
		return tok.Decimals
	}
	if c.decimals == nil {
		logging.Errorf("[%s] no decimals for %s (%s), using %d", c.Name(), tok.Symbol, tok.Address, FallbackDecimals)
		return FallbackDecimals
	}
	d, err := c.decimals.Decimals(ctx, c.chain, tok.Address)
	if err != nil {
		logging.Errorf("[%s] decimals for %s (%s): %v; using %d", c.Name(), tok.Symbol, tok.Address, err, FallbackDecimals)
		return FallbackDecimals
	}
	return d
}

func findStable(tokens map[string]Token, symbol string) (Token, bool) {
	matches := lo.Filter(lo.Values(tokens), func(t Token, _ int) bool {
		return collectors.NormalizeTicker(t.Symbol) == symbol
	})
	if len(matches) == 0 {
		return Token{}, false
	}
	sort.Slice(matches, func(i, j int) bool {
		return strings.ToLower(matches[i].Address) < strings.ToLower(matches[j].Address)
	})
	return matches[0], true
}

// Build returns one collector per chain sharing lister, quoter and decimals.
func Build(chains []Chain, lister TokenLister, quoter Quoter, decimals DecimalsReader, opts Options) []collectors.Collector {
	return lo.Map(chains, func(ch Chain, _ int) collectors.Collector {
		return NewChainCollector(ch, lister, quoter, decimals, opts)
	})
}
