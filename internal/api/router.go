package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/samber/lo"

	"github.com/smart845/spre/internal/collectors"
	"github.com/smart845/spre/internal/logging"
	"github.com/smart845/spre/internal/scanner"
	sqlstore "github.com/smart845/spre/internal/storage/sqlite"
)

const banner = "CEX–DEX Anomaly Scanner active"

// Scanner is what the HTTP layer needs from the orchestrator.
type Scanner interface {
	Trigger(ctx context.Context) (scanner.Summary, bool)
	Quotes() []collectors.Quote
	LastSummary() (scanner.Summary, bool)
}

// RunLister reads the scan audit log.
type RunLister interface {
	RecentScanRuns(ctx context.Context, limit int) ([]sqlstore.ScanRun, error)
}

type ScanResponse struct {
	OK      bool             `json:"ok"`
	Status  string           `json:"status"`
	Summary *scanner.Summary `json:"summary,omitempty"`
}

// RegisterRoutes wires the scanner endpoints. runs may be nil when no
// store is configured.
func RegisterRoutes(h *server.Hertz, sc Scanner, runs RunLister) {
	h.GET("/", func(_ context.Context, c *app.RequestContext) {
		c.String(http.StatusOK, banner)
	})

	h.GET("/healthz", func(_ context.Context, c *app.RequestContext) {
		c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	h.GET("/scan", func(ctx context.Context, c *app.RequestContext) {
		sum, ran := sc.Trigger(ctx)
		if !ran {
			c.JSON(http.StatusOK, ScanResponse{OK: true, Status: "skipped"})
			return
		}
		c.JSON(http.StatusOK, ScanResponse{OK: true, Status: "completed", Summary: &sum})
	})

	h.GET("/api/v1/quotes", func(_ context.Context, c *app.RequestContext) {
		quotes := sc.Quotes()
		if base := collectors.NormalizeTicker(c.Query("base")); base != "" {
			quotes = lo.Filter(quotes, func(q collectors.Quote, _ int) bool { return q.Base == base })
		}
		if kind := strings.ToUpper(strings.TrimSpace(c.Query("kind"))); kind != "" {
			quotes = lo.Filter(quotes, func(q collectors.Quote, _ int) bool { return string(q.Kind) == kind })
		}
		resp := map[string]any{"ok": true, "count": len(quotes), "quotes": quotes}
		if last, ok := sc.LastSummary(); ok {
			resp["as_of"] = last.FinishedAt
		}
		c.JSON(http.StatusOK, resp)
	})

	h.GET("/api/v1/scans", func(ctx context.Context, c *app.RequestContext) {
		if runs == nil {
			c.JSON(http.StatusNotFound, map[string]any{
				"ok":    false,
				"error": "scan store not configured",
			})
			return
		}
		limit := 20
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, map[string]any{
					"ok":    false,
					"error": "limit must be a positive integer",
				})
				return
			}
			limit = n
		}
		list, err := runs.RecentScanRuns(ctx, limit)
		if err != nil {
			logging.Errorf("[api] recent scans: %v", err)
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "failed to read scan runs",
			})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"ok": true, "scans": list})
	})
}
