package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Scan     ScanConfig     `yaml:"scan"`
	CEX      CEXConfig      `yaml:"cex"`
	DEX      DEXConfig      `yaml:"dex"`
	Telegram TelegramConfig `yaml:"telegram"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Store    StoreConfig    `yaml:"store"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ScanConfig struct {
	MinSpreadPct float64 `yaml:"min_spread_pct"`
	MinVolumeUSD float64 `yaml:"min_volume_usd"`
	CooldownSec  int     `yaml:"cooldown_sec"`
	// IntervalSec > 0 enables periodic scans in addition to /scan.
	IntervalSec int    `yaml:"interval_sec"`
	Concurrency int    `yaml:"concurrency"`
	QuoteAsset  string `yaml:"quote_asset"`
	// NotifyTimeoutMs bounds each alert delivery.
	NotifyTimeoutMs int `yaml:"notify_timeout_ms"`
}

type CEXConfig struct {
	Venues    []string `yaml:"venues"`
	TimeoutMs int      `yaml:"timeout_ms"`
	// Endpoints overrides the ticker URL per venue name.
	Endpoints map[string]string `yaml:"endpoints"`
}

type DEXConfig struct {
	Enabled           bool              `yaml:"enabled"`
	Quoter            string            `yaml:"quoter"`
	StableSymbol      string            `yaml:"stable_symbol"`
	TimeoutMs         int               `yaml:"timeout_ms"`
	QuoteConcurrency  int               `yaml:"quote_concurrency"`
	MaxTokensPerChain int               `yaml:"max_tokens_per_chain"`
	OnlyCEXListed     bool              `yaml:"only_cex_listed"`
	Aliases           map[string]string `yaml:"aliases"`
	Chains            []ChainConfig     `yaml:"chains"`
	OneInch           OneInchConfig     `yaml:"oneinch"`
	ZeroX             ZeroXConfig       `yaml:"zerox"`
}

type ChainConfig struct {
	Name     string `yaml:"name"`
	ID       int64  `yaml:"id"`
	RPCURL   string `yaml:"rpc_url"`
	ZeroXURL string `yaml:"zerox_url"`
}

type OneInchConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type ZeroXConfig struct {
	APIKey string `yaml:"api_key"`
}

type TelegramConfig struct {
	Token     string `yaml:"token"`
	ChatID    string `yaml:"chat_id"`
	APIURL    string `yaml:"api_url"`
	PerMinute int    `yaml:"per_minute"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type RedisConfig struct {
	Addr        string `yaml:"addr"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	DedupTTLSec int    `yaml:"dedup_ttl_sec"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type StoreConfig struct {
	Sqlite SqliteConfig `yaml:"sqlite"`
}

type SqliteConfig struct {
	Path string `yaml:"path"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{Port: 3000},
		Log:    LogConfig{Level: "info"},
		Scan: ScanConfig{
			MinSpreadPct:    0.7,
			MinVolumeUSD:    100000,
			CooldownSec:     5,
			Concurrency:     4,
			QuoteAsset:      "USDT",
			NotifyTimeoutMs: 10000,
		},
		CEX: CEXConfig{
			Venues:    []string{"binance", "bybit", "okx", "kucoin", "gate", "bitget"},
			TimeoutMs: 10000,
		},
		DEX: DEXConfig{
			Enabled:          true,
			Quoter:           "1inch",
			StableSymbol:     "USDT",
			TimeoutMs:        10000,
			QuoteConcurrency: 8,
			OnlyCEXListed:    true,
			Aliases: map[string]string{
				"WETH":   "ETH",
				"WBTC":   "BTC",
				"WBNB":   "BNB",
				"WMATIC": "MATIC",
			},
			Chains: []ChainConfig{
				{Name: "ethereum", ID: 1, RPCURL: "https://rpc.ankr.com/eth", ZeroXURL: "https://api.0x.org"},
				{Name: "bsc", ID: 56, RPCURL: "https://bsc-dataseed.binance.org", ZeroXURL: "https://bsc.api.0x.org"},
				{Name: "polygon", ID: 137, RPCURL: "https://polygon-rpc.com", ZeroXURL: "https://polygon.api.0x.org"},
				{Name: "arbitrum", ID: 42161, RPCURL: "https://arb1.arbitrum.io/rpc", ZeroXURL: "https://arbitrum.api.0x.org"},
				{Name: "optimism", ID: 10, RPCURL: "https://mainnet.optimism.io", ZeroXURL: "https://optimism.api.0x.org"},
				{Name: "base", ID: 8453, RPCURL: "https://mainnet.base.org", ZeroXURL: "https://base.api.0x.org"},
			},
			OneInch: OneInchConfig{BaseURL: "https://api.1inch.dev/swap/v5.2"},
		},
		Telegram: TelegramConfig{
			APIURL:    "https://api.telegram.org",
			PerMinute: 20,
			TimeoutMs: 5000,
		},
		Redis: RedisConfig{DedupTTLSec: 300},
		Kafka: KafkaConfig{Topic: "spread.alerts"},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path means defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	var errs []error
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			errs = append(errs, fmt.Errorf("invalid PORT: %q", v))
		} else {
			cfg.Server.Port = p
		}
	}
	envString("LOG_LEVEL", &cfg.Log.Level)
	envString("TELEGRAM_TOKEN", &cfg.Telegram.Token)
	envString("CHAT_ID", &cfg.Telegram.ChatID)
	errs = append(errs,
		envFloat("MIN_SPREAD", &cfg.Scan.MinSpreadPct),
		envFloat("MIN_VOLUME", &cfg.Scan.MinVolumeUSD),
		envInt("SCAN_COOLDOWN_SEC", &cfg.Scan.CooldownSec),
		envInt("SCAN_INTERVAL_SEC", &cfg.Scan.IntervalSec),
		envInt("REDIS_DB", &cfg.Redis.DB),
	)
	envString("ONEINCH_API_KEY", &cfg.DEX.OneInch.APIKey)
	envString("ZEROX_API_KEY", &cfg.DEX.ZeroX.APIKey)
	envString("DEX_QUOTER", &cfg.DEX.Quoter)
	envString("REDIS_ADDR", &cfg.Redis.Addr)
	envString("REDIS_PASSWORD", &cfg.Redis.Password)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	envString("ALERTS_KAFKA_TOPIC", &cfg.Kafka.Topic)
	envString("SQLITE_PATH", &cfg.Store.Sqlite.Path)
	return errors.Join(errs...)
}

// Validate rejects values the scanner cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Scan.MinSpreadPct < 0 {
		errs = append(errs, fmt.Errorf("scan.min_spread_pct must be >= 0, got %v", c.Scan.MinSpreadPct))
	}
	if c.Scan.MinVolumeUSD < 0 {
		errs = append(errs, fmt.Errorf("scan.min_volume_usd must be >= 0, got %v", c.Scan.MinVolumeUSD))
	}
	if c.Scan.CooldownSec < 0 {
		errs = append(errs, fmt.Errorf("scan.cooldown_sec must be >= 0, got %d", c.Scan.CooldownSec))
	}
	if c.Scan.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("scan.concurrency must be > 0, got %d", c.Scan.Concurrency))
	}
	if strings.TrimSpace(c.Scan.QuoteAsset) == "" {
		errs = append(errs, errors.New("scan.quote_asset is required"))
	}
	switch strings.ToLower(c.DEX.Quoter) {
	case "1inch", "0x":
	default:
		errs = append(errs, fmt.Errorf("dex.quoter must be 1inch or 0x, got %q", c.DEX.Quoter))
	}
	seen := make(map[string]struct{}, len(c.DEX.Chains))
	for _, ch := range c.DEX.Chains {
		if ch.Name == "" || ch.ID <= 0 {
			errs = append(errs, fmt.Errorf("dex.chains entry needs name and id: %+v", ch))
			continue
		}
		if _, dup := seen[ch.Name]; dup {
			errs = append(errs, fmt.Errorf("dex.chains: duplicate chain %q", ch.Name))
		}
		seen[ch.Name] = struct{}{}
	}
	return errors.Join(errs...)
}

func (c *Config) Cooldown() time.Duration { return time.Duration(c.Scan.CooldownSec) * time.Second }
func (c *Config) Interval() time.Duration { return time.Duration(c.Scan.IntervalSec) * time.Second }

func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Server.Port) }

// TelegramEnabled reports whether both bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != "" && c.Telegram.ChatID != ""
}

func Millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, v)
	}
	*dst = parsed
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, v)
	}
	*dst = parsed
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
