package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/smart845/spre/internal/api"
	"github.com/smart845/spre/internal/cache"
	"github.com/smart845/spre/internal/cex"
	"github.com/smart845/spre/internal/collectors"
	"github.com/smart845/spre/internal/config"
	"github.com/smart845/spre/internal/dex"
	"github.com/smart845/spre/internal/kafka"
	"github.com/smart845/spre/internal/logging"
	"github.com/smart845/spre/internal/notify"
	"github.com/smart845/spre/internal/scanner"
	sqlstore "github.com/smart845/spre/internal/storage/sqlite"
)

func main() {
	configPath := pflag.String("config", "", "path to YAML config (optional)")
	pflag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logging.Errorf("[main] load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[main] config error: %v", err)
	}
	logging.SetLevel(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cexCollectors, err := cex.Build(cfg.CEX.Venues, func(name string) cex.Config {
		return cex.Config{
			Endpoint:   cfg.CEX.Endpoints[name],
			QuoteAsset: cfg.Scan.QuoteAsset,
			Timeout:    config.Millis(cfg.CEX.TimeoutMs),
		}
	})
	if err != nil {
		logging.Fatalf("[main] cex venues: %v", err)
	}

	var dexCollectors []collectors.Collector
	if cfg.DEX.Enabled {
		decimals := dex.NewRPCDecimals(config.Millis(cfg.DEX.TimeoutMs))
		defer decimals.Close()
		dexCollectors = buildDEX(cfg, decimals)
	}

	notifier, closeNotifier := buildNotifier(ctx, cfg)
	defer closeNotifier()
	opts := []scanner.Option{scanner.WithNotifier(notifier)}

	if cfg.Redis.Addr != "" && cfg.Redis.DedupTTLSec > 0 {
		dedup, err := cache.NewRedisAlertDeduper(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.DedupTTLSec)*time.Second, "spread_alert")
		if err != nil {
			logging.Fatalf("[main] redis dedup: %v", err)
		}
		defer dedup.Close()
		opts = append(opts, scanner.WithDeduper(dedup))
		logging.Infof("[main] alert dedup via redis %s (ttl=%ds)", cfg.Redis.Addr, cfg.Redis.DedupTTLSec)
	}

	var runs api.RunLister
	if cfg.Store.Sqlite.Path != "" {
		store, err := sqlstore.Open(cfg.Store.Sqlite.Path)
		if err != nil {
			logging.Fatalf("[main] open sqlite: %v", err)
		}
		defer store.Close()
		opts = append(opts, scanner.WithRecorder(store))
		runs = store
	}

	sc := scanner.New(scanner.Config{
		MinSpreadPct:  decimal.NewFromFloat(cfg.Scan.MinSpreadPct),
		MinVolumeUSD:  decimal.NewFromFloat(cfg.Scan.MinVolumeUSD),
		Cooldown:      cfg.Cooldown(),
		Concurrency:   cfg.Scan.Concurrency,
		OnlyCEXListed: cfg.DEX.OnlyCEXListed,
		NotifyTimeout: config.Millis(cfg.Scan.NotifyTimeoutMs),
	}, cexCollectors, dexCollectors, opts...)

	if cfg.Scan.IntervalSec > 0 {
		go sc.RunLoop(ctx, cfg.Interval())
		logging.Infof("[main] periodic scan every %s", cfg.Interval())
	}

	h := server.Default(server.WithHostPorts(cfg.Addr()), server.WithExitWaitTime(5*time.Second))
	api.RegisterRoutes(h, sc, runs)

	logging.Infof("[main] listening on %s (cex=%s, dex chains=%d, min_spread=%.2f%%, min_volume=%.0f)",
		cfg.Addr(), strings.Join(cfg.CEX.Venues, ","), len(dexCollectors), cfg.Scan.MinSpreadPct, cfg.Scan.MinVolumeUSD)
	// Spin handles SIGINT/SIGTERM itself and returns after shutdown.
	h.Spin()
}

func buildDEX(cfg *config.Config, decimals *dex.RPCDecimals) []collectors.Collector {
	timeout := config.Millis(cfg.DEX.TimeoutMs)
	oneInch := dex.NewOneInch(dex.OneInchConfig{
		BaseURL: cfg.DEX.OneInch.BaseURL,
		APIKey:  cfg.DEX.OneInch.APIKey,
		Timeout: timeout,
	})

	var quoter dex.Quoter = oneInch
	if strings.EqualFold(cfg.DEX.Quoter, "0x") {
		quoter = dex.NewZeroX(dex.ZeroXConfig{APIKey: cfg.DEX.ZeroX.APIKey, Timeout: timeout})
	}

	chains := make([]dex.Chain, 0, len(cfg.DEX.Chains))
	for _, ch := range cfg.DEX.Chains {
		chains = append(chains, dex.Chain{Name: ch.Name, ID: ch.ID, RPCURL: ch.RPCURL, ZeroXURL: ch.ZeroXURL})
	}
	return dex.Build(chains, oneInch, quoter, decimals, dex.Options{
		StableSymbol:     cfg.DEX.StableSymbol,
		QuoteConcurrency: cfg.DEX.QuoteConcurrency,
		MaxTokens:        cfg.DEX.MaxTokensPerChain,
		Aliases:          collectors.NewAliases(cfg.DEX.Aliases),
	})
}

func buildNotifier(ctx context.Context, cfg *config.Config) (notify.Notifier, func()) {
	sinks := notify.Multi{notify.Log{}}
	closer := func() {}

	if cfg.TelegramEnabled() {
		sinks = append(sinks, notify.NewTelegram(notify.TelegramConfig{
			APIURL:    cfg.Telegram.APIURL,
			Token:     cfg.Telegram.Token,
			ChatID:    cfg.Telegram.ChatID,
			PerMinute: cfg.Telegram.PerMinute,
			Timeout:   config.Millis(cfg.Telegram.TimeoutMs),
		}))
	} else {
		logging.Infof("[main] telegram not configured; alerts go to the log only")
	}

	if brokers := kafka.Brokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		topic := kafka.Topic(cfg.Kafka.Topic)
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := kafka.WaitForBroker(waitCtx, brokers); err != nil {
			logging.Errorf("[main] kafka broker warning: %v", err)
		} else if err := kafka.EnsureTopic(waitCtx, brokers, topic); err != nil {
			logging.Errorf("[main] ensure topic warning: %v", err)
		}
		cancel()
		writer := kafka.NewWriter(brokers, topic)
		closer = func() {
			if err := writer.Close(); err != nil {
				logging.Errorf("[main] close kafka writer: %v", err)
			}
		}
		sinks = append(sinks, notify.Kafka{Writer: writer})
		logging.Infof("[main] publishing alerts to kafka topic %s", topic)
	}
	return sinks, closer
}
