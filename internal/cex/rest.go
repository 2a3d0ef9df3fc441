package cex

import (
	"context"
	"net/http"
	"time"

	"github.com/smart845/spre/internal/collectors"
)

// decodeFunc turns one venue's ticker response into the neutral shape.
type decodeFunc func(ctx context.Context, client *http.Client, name, url string) ([]ticker, error)

// RESTVenue is a CEX collector backed by a single public ticker endpoint.
type RESTVenue struct {
	name   string
	cfg    Config
	http   *http.Client
	decode decodeFunc
	now    func() time.Time
}

func newREST(name, endpoint string, cfg Config, decode decodeFunc) *RESTVenue {
	cfg = cfg.withDefaults(endpoint)
	return &RESTVenue{
		name:   name,
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		decode: decode,
		now:    time.Now,
	}
}

func (v *RESTVenue) Name() string               { return v.name }
func (v *RESTVenue) Kind() collectors.VenueKind { return collectors.KindCEX }
func (v *RESTVenue) Endpoint() string           { return v.cfg.Endpoint }

func (v *RESTVenue) Fetch(ctx context.Context, opts collectors.FetchOptions) ([]collectors.Quote, error) {
	tickers, err := v.decode(ctx, v.http, v.name, v.cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	return toQuotes(v.name, v.cfg.QuoteAsset, tickers, opts.MinVolumeUSD, v.now()), nil
}
