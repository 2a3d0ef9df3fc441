package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart845/spre/internal/arb"
	"github.com/smart845/spre/internal/collectors"
	"github.com/smart845/spre/internal/matches"
	"github.com/smart845/spre/internal/notify"
	sqlstore "github.com/smart845/spre/internal/storage/sqlite"
)

type stubCollector struct {
	name   string
	kind   collectors.VenueKind
	quotes []collectors.Quote
	err    error
	block  chan struct{}
	calls  atomic.Int32
	seen   collectors.FetchOptions
}

func (s *stubCollector) Name() string               { return s.name }
func (s *stubCollector) Kind() collectors.VenueKind { return s.kind }
func (s *stubCollector) Fetch(_ context.Context, opts collectors.FetchOptions) ([]collectors.Quote, error) {
	s.calls.Add(1)
	s.seen = opts
	if s.block != nil {
		<-s.block
	}
	return s.quotes, s.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []arb.Alert
	err    error
}

func (r *recordingNotifier) Name() string { return "recording" }
func (r *recordingNotifier) Notify(_ context.Context, a arb.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

type memDeduper struct {
	seen map[string]bool
	err  error
}

func (m *memDeduper) FirstSeen(_ context.Context, key string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}
func (m *memDeduper) Close() error { return nil }

type memRecorder struct{ runs []sqlstore.ScanRun }

func (m *memRecorder) InsertScanRun(_ context.Context, run sqlstore.ScanRun) (int64, error) {
	m.runs = append(m.runs, run)
	return int64(len(m.runs)), nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func cexQuote(venue, base, price string) collectors.Quote {
	return collectors.Quote{
		Kind: collectors.KindCEX, Venue: venue, Base: base, QuoteAsset: "USDT",
		Price: decimal.RequireFromString(price), VolumeUSD: decimal.NewFromInt(250000),
	}
}

func dexQuote(chain, base, price string) collectors.Quote {
	return collectors.Quote{
		Kind: collectors.KindDEX, Venue: "1inch", Chain: chain, Base: base, QuoteAsset: "USDT",
		Price: decimal.RequireFromString(price),
	}
}

func testConfig() Config {
	return Config{
		MinSpreadPct:  decimal.NewFromFloat(0.7),
		MinVolumeUSD:  decimal.NewFromInt(100000),
		Cooldown:      5 * time.Second,
		Concurrency:   4,
		OnlyCEXListed: true,
	}
}

func newClock() *clock { return &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)} }

func TestTriggerAlertsAboveThreshold(t *testing.T) {
	cex := &stubCollector{name: "binance", kind: collectors.KindCEX, quotes: []collectors.Quote{
		cexQuote("binance", "ETH", "100"),
		cexQuote("binance", "BTC", "100"),
	}}
	dex := &stubCollector{name: "dex:ethereum", kind: collectors.KindDEX, quotes: []collectors.Quote{
		dexQuote("ethereum", "ETH", "100.8"),
		dexQuote("ethereum", "BTC", "100.5"),
	}}
	n := &recordingNotifier{}
	rec := &memRecorder{}
	s := New(testConfig(), []collectors.Collector{cex}, []collectors.Collector{dex},
		WithNotifier(n), WithRecorder(rec), WithClock(newClock().Now))

	sum, ran := s.Trigger(context.Background())
	require.True(t, ran)
	assert.Equal(t, 2, sum.CEXQuotes)
	assert.Equal(t, 2, sum.DEXQuotes)
	assert.Equal(t, 2, sum.Pairs)
	assert.Equal(t, 1, sum.Alerts)

	require.Len(t, n.alerts, 1)
	assert.Equal(t, "ETH", n.alerts[0].Base)
	assert.Equal(t, matches.DirectionBuyCEXSellDEX, n.alerts[0].Direction)
	assert.True(t, n.alerts[0].SpreadPct.Equal(decimal.RequireFromString("0.8")))

	assert.Equal(t, map[string]struct{}{"ETH": {}, "BTC": {}}, dex.seen.Bases)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, 1, rec.runs[0].Alerts)

	last, ok := s.LastSummary()
	require.True(t, ok)
	assert.Equal(t, sum.Pairs, last.Pairs)
	assert.False(t, s.State().Running())
}

func TestTriggerWithinCooldownIsNoop(t *testing.T) {
	clk := newClock()
	cex := &stubCollector{name: "okx", kind: collectors.KindCEX, quotes: []collectors.Quote{cexQuote("okx", "SOL", "150")}}
	s := New(testConfig(), []collectors.Collector{cex}, nil, WithClock(clk.Now))

	_, ran := s.Trigger(context.Background())
	require.True(t, ran)
	before := s.Quotes()

	cex.quotes = []collectors.Quote{cexQuote("okx", "SOL", "999"), cexQuote("okx", "ARB", "1")}
	clk.Advance(4 * time.Second)
	_, ran = s.Trigger(context.Background())
	assert.False(t, ran)
	assert.EqualValues(t, 1, cex.calls.Load())
	assert.Equal(t, before, s.Quotes(), "cache untouched by a rejected trigger")

	clk.Advance(time.Second)
	_, ran = s.Trigger(context.Background())
	assert.True(t, ran)
	assert.Len(t, s.Quotes(), 2)
}

func TestTriggerWhileRunningIsRejected(t *testing.T) {
	block := make(chan struct{})
	cex := &stubCollector{name: "gate", kind: collectors.KindCEX, block: block}
	s := New(testConfig(), []collectors.Collector{cex}, nil)

	done := make(chan bool)
	go func() {
		_, ran := s.Trigger(context.Background())
		done <- ran
	}()
	require.Eventually(t, func() bool { return cex.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, ran := s.Trigger(context.Background())
	assert.False(t, ran)

	close(block)
	assert.True(t, <-done)
}

func TestFailingVenueIsIsolated(t *testing.T) {
	bad := &stubCollector{name: "okx", kind: collectors.KindCEX, err: errors.New("okx API 503 Service Unavailable")}
	good := &stubCollector{name: "bybit", kind: collectors.KindCEX, quotes: []collectors.Quote{cexQuote("bybit", "ETH", "100")}}
	badChain := &stubCollector{name: "dex:bsc", kind: collectors.KindDEX, err: errors.New("stable USDT not found on bsc")}
	goodChain := &stubCollector{name: "dex:base", kind: collectors.KindDEX, quotes: []collectors.Quote{dexQuote("base", "ETH", "99")}}
	n := &recordingNotifier{}
	s := New(testConfig(), []collectors.Collector{bad, good}, []collectors.Collector{badChain, goodChain}, WithNotifier(n))

	sum, ran := s.Trigger(context.Background())
	require.True(t, ran)
	assert.Equal(t, 1, sum.CEXQuotes)
	assert.Equal(t, 1, sum.DEXQuotes)
	assert.Contains(t, sum.VenueErrors["okx"], "503")
	assert.Contains(t, sum.VenueErrors, "dex:bsc")
	require.Len(t, n.alerts, 1)
	assert.Equal(t, matches.DirectionBuyDEXSellCEX, n.alerts[0].Direction)
}

func TestNotifyFailureDoesNotFailScan(t *testing.T) {
	cex := &stubCollector{name: "binance", kind: collectors.KindCEX, quotes: []collectors.Quote{
		cexQuote("binance", "ETH", "100"), cexQuote("binance", "LINK", "10"),
	}}
	dex := &stubCollector{name: "dex:ethereum", kind: collectors.KindDEX, quotes: []collectors.Quote{
		dexQuote("ethereum", "ETH", "102"), dexQuote("ethereum", "LINK", "9"),
	}}
	n := &recordingNotifier{err: errors.New("telegram API 429")}
	s := New(testConfig(), []collectors.Collector{cex}, []collectors.Collector{dex}, WithNotifier(n))

	sum, ran := s.Trigger(context.Background())
	require.True(t, ran)
	assert.Equal(t, 2, sum.Alerts)
	assert.Equal(t, 2, sum.NotifyFailures)
	assert.Len(t, n.alerts, 2, "every alert is attempted")
	assert.False(t, s.State().Running())
}

func TestDuplicateAlertsAreSuppressed(t *testing.T) {
	clk := newClock()
	cex := &stubCollector{name: "binance", kind: collectors.KindCEX, quotes: []collectors.Quote{cexQuote("binance", "ETH", "100")}}
	dex := &stubCollector{name: "dex:ethereum", kind: collectors.KindDEX, quotes: []collectors.Quote{dexQuote("ethereum", "ETH", "101")}}
	n := &recordingNotifier{}
	d := &memDeduper{seen: map[string]bool{}}
	s := New(testConfig(), []collectors.Collector{cex}, []collectors.Collector{dex},
		WithNotifier(n), WithDeduper(d), WithClock(clk.Now))

	first, _ := s.Trigger(context.Background())
	clk.Advance(time.Minute)
	second, _ := s.Trigger(context.Background())

	assert.Equal(t, 0, first.Suppressed)
	assert.Equal(t, 1, second.Suppressed)
	assert.Len(t, n.alerts, 1)

	d.err = errors.New("redis: connection refused")
	clk.Advance(time.Minute)
	third, _ := s.Trigger(context.Background())
	assert.Equal(t, 0, third.Suppressed, "dedup errors fail open")
	assert.Len(t, n.alerts, 2)
}

func TestTriggerSurvivesCancelledRequest(t *testing.T) {
	cex := &stubCollector{name: "binance", kind: collectors.KindCEX, quotes: []collectors.Quote{cexQuote("binance", "ETH", "100")}}
	s := New(testConfig(), []collectors.Collector{cex}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, ran := s.Trigger(ctx)
	require.True(t, ran)
	assert.Equal(t, 1, sum.CEXQuotes)
}

func TestPanicReturnsToIdle(t *testing.T) {
	s := New(testConfig(), nil, nil, WithNotifier(panicky{}))
	s.cex = []collectors.Collector{&stubCollector{name: "binance", kind: collectors.KindCEX, quotes: []collectors.Quote{cexQuote("binance", "ETH", "100")}}}
	s.dex = []collectors.Collector{&stubCollector{name: "dex:base", kind: collectors.KindDEX, quotes: []collectors.Quote{dexQuote("base", "ETH", "110")}}}
	s.cfg.NotifyConcurrency = 1

	_, ran := s.Trigger(context.Background())
	assert.True(t, ran)
	assert.False(t, s.State().Running())
}

func spreadQuotes(n int) (cex, dex []collectors.Quote) {
	for i := 0; i < n; i++ {
		base := fmt.Sprintf("TK%d", i)
		cex = append(cex, cexQuote("binance", base, "100"))
		dex = append(dex, dexQuote("ethereum", base, "102"))
	}
	return cex, dex
}

func TestRateLimitedSinkDoesNotHoldScan(t *testing.T) {
	var sent atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sent.Add(1)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cexQuotes, dexQuotes := spreadQuotes(7)
	cfg := testConfig()
	cfg.Cooldown = 0
	cfg.NotifyTimeout = 200 * time.Millisecond
	tg := notify.NewTelegram(notify.TelegramConfig{APIURL: srv.URL, Token: "t", ChatID: "c", PerMinute: 6})
	s := New(cfg,
		[]collectors.Collector{&stubCollector{name: "binance", kind: collectors.KindCEX, quotes: cexQuotes}},
		[]collectors.Collector{&stubCollector{name: "dex:ethereum", kind: collectors.KindDEX, quotes: dexQuotes}},
		WithNotifier(tg))

	start := time.Now()
	sum, ran := s.Trigger(context.Background())
	require.True(t, ran)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 7, sum.Alerts)
	assert.Equal(t, 1, sum.NotifyFailures, "the message over the burst is dropped")
	assert.EqualValues(t, 6, sent.Load())

	assert.False(t, s.State().Running())
	_, ran = s.Trigger(context.Background())
	assert.True(t, ran, "the gate is free as soon as the scan returns")
}

type hangingNotifier struct{}

func (hangingNotifier) Name() string { return "hanging" }
func (hangingNotifier) Notify(ctx context.Context, _ arb.Alert) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestHangingSinkIsBoundedPerDelivery(t *testing.T) {
	cexQuotes, dexQuotes := spreadQuotes(5)
	cfg := testConfig()
	cfg.NotifyTimeout = 50 * time.Millisecond
	cfg.NotifyConcurrency = 5
	s := New(cfg,
		[]collectors.Collector{&stubCollector{name: "binance", kind: collectors.KindCEX, quotes: cexQuotes}},
		[]collectors.Collector{&stubCollector{name: "dex:ethereum", kind: collectors.KindDEX, quotes: dexQuotes}},
		WithNotifier(hangingNotifier{}))

	done := make(chan Summary)
	go func() {
		sum, _ := s.Trigger(context.Background())
		done <- sum
	}()
	select {
	case sum := <-done:
		assert.Equal(t, 5, sum.NotifyFailures)
	case <-time.After(2 * time.Second):
		t.Fatal("scan stuck on a sink that never answers")
	}
}

type skippingCollector struct {
	*stubCollector
	skipped int64
}

func (s skippingCollector) Skipped() int64 { return s.skipped }

func TestSkippedTokensReachSummaryAndRecord(t *testing.T) {
	cex := &stubCollector{name: "binance", kind: collectors.KindCEX, quotes: []collectors.Quote{cexQuote("binance", "ETH", "100")}}
	eth := skippingCollector{stubCollector: &stubCollector{name: "dex:ethereum", kind: collectors.KindDEX}, skipped: 3}
	bsc := skippingCollector{stubCollector: &stubCollector{name: "dex:bsc", kind: collectors.KindDEX}, skipped: 2}
	rec := &memRecorder{}
	s := New(testConfig(), []collectors.Collector{cex}, []collectors.Collector{eth, bsc}, WithRecorder(rec))

	sum, ran := s.Trigger(context.Background())
	require.True(t, ran)
	assert.Equal(t, 5, sum.SkippedTokens)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, 5, rec.runs[0].SkippedTokens)
}

type panicky struct{}

func (panicky) Name() string                            { return "panicky" }
func (panicky) Notify(context.Context, arb.Alert) error { panic("boom") }

func TestStateGate(t *testing.T) {
	clk := newClock()
	st := NewState(5*time.Second, clk.Now)
	assert.True(t, st.LastStartedAt().IsZero())

	require.True(t, st.TryBegin())
	assert.False(t, st.TryBegin(), "running")
	st.End()
	assert.False(t, st.TryBegin(), "cooldown")
	clk.Advance(5 * time.Second)
	assert.True(t, st.TryBegin())
	assert.Equal(t, clk.Now(), st.LastStartedAt().UTC())
}

func TestRunLoopStopsOnCancel(t *testing.T) {
	cex := &stubCollector{name: "binance", kind: collectors.KindCEX}
	cfg := testConfig()
	cfg.Cooldown = 0
	s := New(cfg, []collectors.Collector{cex}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunLoop(ctx, 10*time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool { return cex.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunLoop did not stop")
	}
}
