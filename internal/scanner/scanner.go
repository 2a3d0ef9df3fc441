package scanner

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smart845/spre/internal/arb"
	"github.com/smart845/spre/internal/cache"
	"github.com/smart845/spre/internal/collectors"
	"github.com/smart845/spre/internal/logging"
	"github.com/smart845/spre/internal/matches"
	"github.com/smart845/spre/internal/notify"
	sqlstore "github.com/smart845/spre/internal/storage/sqlite"
	"github.com/smart845/spre/internal/workers"
)

type Config struct {
	MinSpreadPct decimal.Decimal
	MinVolumeUSD decimal.Decimal
	Cooldown     time.Duration
	Concurrency  int
	// OnlyCEXListed limits DEX quoting to bases seen on a CEX this cycle.
	OnlyCEXListed bool
	// NotifyConcurrency bounds in-flight notifications per scan.
	NotifyConcurrency int
	// NotifyTimeout bounds each delivery, rate-limiter wait included.
	NotifyTimeout time.Duration
}

// RunRecorder persists scan summaries.
type RunRecorder interface {
	InsertScanRun(ctx context.Context, run sqlstore.ScanRun) (int64, error)
}

// Summary describes one completed scan.
type Summary struct {
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
	CEXQuotes      int               `json:"cex_quotes"`
	DEXQuotes      int               `json:"dex_quotes"`
	Pairs          int               `json:"pairs"`
	Alerts         int               `json:"alerts"`
	Suppressed     int               `json:"suppressed"`
	NotifyFailures int               `json:"notify_failures"`
	SkippedTokens  int               `json:"skipped_tokens"`
	VenueErrors    map[string]string `json:"venue_errors,omitempty"`
}

func (s Summary) Duration() time.Duration { return s.FinishedAt.Sub(s.StartedAt) }

// Scanner owns the quote cache and scan gate and runs the
// collect, match, evaluate, notify cycle.
type Scanner struct {
	cfg      Config
	cex      []collectors.Collector
	dex      []collectors.Collector
	cache    *cache.QuoteCache
	state    *State
	notifier notify.Notifier
	dedup    cache.AlertDeduper
	recorder RunRecorder
	now      func() time.Time

	last atomic.Pointer[Summary]
}

type Option func(*Scanner)

func WithNotifier(n notify.Notifier) Option   { return func(s *Scanner) { s.notifier = n } }
func WithDeduper(d cache.AlertDeduper) Option { return func(s *Scanner) { s.dedup = d } }
func WithRecorder(r RunRecorder) Option       { return func(s *Scanner) { s.recorder = r } }
func WithClock(now func() time.Time) Option   { return func(s *Scanner) { s.now = now } }
func WithCache(c *cache.QuoteCache) Option    { return func(s *Scanner) { s.cache = c } }

func New(cfg Config, cex, dex []collectors.Collector, opts ...Option) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.NotifyConcurrency <= 0 {
		cfg.NotifyConcurrency = 4
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	s := &Scanner{
		cfg:      cfg,
		cex:      cex,
		dex:      dex,
		notifier: notify.Log{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.NewQuoteCache()
	}
	s.state = NewState(cfg.Cooldown, s.now)
	return s
}

// Trigger runs one scan unless one is running or the cooldown has not
// elapsed, in which case it returns false immediately. A started scan is
// detached from ctx cancellation and runs to completion.
func (s *Scanner) Trigger(ctx context.Context) (sum Summary, ran bool) {
	if !s.state.TryBegin() {
		logging.Infof("[scanner] scan skipped: already running or within cooldown")
		return Summary{}, false
	}
	defer s.state.End()
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("[scanner] scan aborted by panic: %v", r)
			ran = true
		}
	}()
	return s.run(context.WithoutCancel(ctx)), true
}

// RunLoop triggers a scan immediately and then every interval until ctx ends.
func (s *Scanner) RunLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.Trigger(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scanner) State() *State { return s.state }

// Quotes returns the quotes cached by the last scan.
func (s *Scanner) Quotes() []collectors.Quote { return s.cache.Snapshot() }

// LastSummary returns the most recent completed scan, if any.
func (s *Scanner) LastSummary() (Summary, bool) {
	if p := s.last.Load(); p != nil {
		return *p, true
	}
	return Summary{}, false
}

func (s *Scanner) run(ctx context.Context) Summary {
	sum := Summary{StartedAt: s.now(), VenueErrors: map[string]string{}}
	logging.Infof("[scanner] scan started (%d cex, %d dex collectors)", len(s.cex), len(s.dex))
	s.cache.Reset()

	cexRes := collectors.Collect(ctx, s.cex, collectors.FetchOptions{MinVolumeUSD: s.cfg.MinVolumeUSD}, s.cfg.Concurrency)
	sum.CEXQuotes = s.cache.Put(cexRes.Quotes...)

	dexOpts := collectors.FetchOptions{}
	if s.cfg.OnlyCEXListed {
		dexOpts.Bases = matches.Bases(cexRes.Quotes)
	}
	dexRes := collectors.Collect(ctx, s.dex, dexOpts, s.cfg.Concurrency)
	sum.DEXQuotes = s.cache.Put(dexRes.Quotes...)
	sum.SkippedTokens = skippedTokens(s.dex)

	for _, res := range []collectors.Result{cexRes, dexRes} {
		for name, err := range res.Errors {
			sum.VenueErrors[name] = err.Error()
		}
	}

	cexQuotes, dexQuotes := s.cache.ByKind()
	pairs := matches.Match(cexQuotes, dexQuotes)
	alerts := arb.EvaluateAll(pairs, arb.Config{
		MinSpreadPct: s.cfg.MinSpreadPct,
		MinVolumeUSD: s.cfg.MinVolumeUSD,
	})
	sum.Pairs = len(pairs)
	sum.Alerts = len(alerts)
	sum.Suppressed, sum.NotifyFailures = s.dispatch(ctx, alerts)

	sum.FinishedAt = s.now()
	logging.Infof("[scanner] scan done in %s: cex=%d dex=%d skipped_tokens=%d pairs=%d alerts=%d suppressed=%d notify_failures=%d venue_errors=%s",
		sum.Duration().Round(time.Millisecond), sum.CEXQuotes, sum.DEXQuotes, sum.SkippedTokens, sum.Pairs, sum.Alerts,
		sum.Suppressed, sum.NotifyFailures, failedVenues(sum.VenueErrors))

	s.last.Store(&sum)
	s.record(ctx, sum)
	return sum
}

// dispatch filters out recently sent alerts, then notifies the rest
// concurrently. Each attempt gets its own NotifyTimeout, so a slow or
// rate-limited sink cannot hold the scan open.
func (s *Scanner) dispatch(ctx context.Context, alerts []arb.Alert) (suppressed, failures int) {
	if len(alerts) == 0 || s.notifier == nil {
		return 0, 0
	}
	toSend := make([]arb.Alert, 0, len(alerts))
	for _, a := range alerts {
		if s.dedup != nil {
			first, err := s.dedup.FirstSeen(ctx, a.Key)
			if err != nil {
				logging.Errorf("[scanner] dedup check for %s: %v", a.Key, err)
				first = true
			}
			if !first {
				suppressed++
				logging.Debugf("[scanner] suppressed duplicate alert %s", a)
				continue
			}
		}
		toSend = append(toSend, a)
	}

	var failed atomic.Int64
	workers.ForEach(ctx, s.cfg.NotifyConcurrency, toSend, func(ctx context.Context, a arb.Alert) {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, a); err != nil {
			failed.Add(1)
			logging.Errorf("[scanner] notify %s %s: %v", a.Base, a.Key, err)
		}
	})
	return suppressed, int(failed.Load())
}

func (s *Scanner) record(ctx context.Context, sum Summary) {
	if s.recorder == nil {
		return
	}
	_, err := s.recorder.InsertScanRun(ctx, sqlstore.ScanRun{
		StartedAt:      sum.StartedAt,
		FinishedAt:     sum.FinishedAt,
		CEXQuotes:      sum.CEXQuotes,
		DEXQuotes:      sum.DEXQuotes,
		Pairs:          sum.Pairs,
		Alerts:         sum.Alerts,
		Suppressed:     sum.Suppressed,
		NotifyFailures: sum.NotifyFailures,
		SkippedTokens:  sum.SkippedTokens,
		VenueErrors:    sum.VenueErrors,
	})
	if err != nil {
		logging.Errorf("[scanner] record scan run: %v", err)
	}
}

// tokenSkipper is implemented by DEX collectors that drop individual tokens.
type tokenSkipper interface {
	Skipped() int64
}

func skippedTokens(list []collectors.Collector) int {
	total := 0
	for _, c := range list {
		if sk, ok := c.(tokenSkipper); ok {
			total += int(sk.Skipped())
		}
	}
	return total
}

func failedVenues(errs map[string]string) []string {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
