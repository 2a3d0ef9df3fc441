package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/smart845/spre/internal/arb"
)

const defaultTelegramURL = "https://api.telegram.org"

type TelegramConfig struct {
	APIURL    string
	Token     string
	ChatID    string
	PerMinute int
	Timeout   time.Duration
}

// Telegram posts alerts through the Bot API sendMessage method.
type Telegram struct {
	apiURL     string
	token      string
	chatID     string
	limiter    *rate.Limiter
	httpClient *http.Client
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	api := strings.TrimRight(cfg.APIURL, "/")
	if api == "" {
		api = defaultTelegramURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.PerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), cfg.PerMinute)
	}
	return &Telegram{
		apiURL:     api,
		token:      cfg.Token,
		chatID:     cfg.ChatID,
		limiter:    limiter,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, alert arb.Alert) error {
	return t.Send(ctx, alert.Format())
}

// Send posts Markdown text to the configured chat. It waits for the rate
// limiter only within ctx: a wait that would pass ctx's deadline fails at
// once and the message is dropped.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if t.token == "" || t.chatID == "" {
		return fmt.Errorf("telegram token or chat id is empty")
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of logs.
		return fmt.Errorf("http request: %w", redact(err, t.token))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	var out telegramResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("telegram API %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	if !out.OK {
		return fmt.Errorf("telegram API %s: %s", resp.Status, out.Description)
	}
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "***"), err: err}
}
