// Package sources implements the news source clients and the per-cycle fetch fan-out.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/cosmosbot/internal/config"
	"github.com/deusflow/cosmosbot/internal/news"
)

const userAgent = "cosmosbot/1.0 (+https://github.com/deusflow/cosmosbot)"

// Options are shared by every source client.
type Options struct {
	Client  *http.Client
	Timeout time.Duration // per fetch
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: o.Timeout}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Build creates one client per configured source, keeping the configured order.
func Build(cfgs []config.SourceConfig, opts Options) ([]news.Source, error) {
	opts = opts.withDefaults()

	out := make([]news.Source, 0, len(cfgs))
	for _, c := range cfgs {
		switch c.Kind {
		case "rss", "":
			out = append(out, NewRSSSource(c, opts))
		case "spaceflight":
			out = append(out, NewSpaceflightSource(c, opts))
		default:
			return nil, fmt.Errorf("source %s: unknown kind %q", c.ID, c.Kind)
		}
	}
	return out, nil
}

// FetchAll queries every source with at most concurrency requests in flight
// and returns one result per source in the order of srcs. It never fails:
// a broken source is reported through its SourceResult.Err.
func FetchAll(ctx context.Context, srcs []news.Source, concurrency int, logger *slog.Logger) []news.SourceResult {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = len(srcs)
	}

	results := make([]news.SourceResult, len(srcs))

	var g errgroup.Group
	g.SetLimit(max(concurrency, 1))
	for i, src := range srcs {
		g.Go(func() error {
			results[i] = fetchOne(ctx, src)
			r := results[i]
			if r.Err != nil {
				logger.Warn("source failed", "source", r.SourceID, "error", r.Err)
			} else {
				logger.Debug("source fetched", "source", r.SourceID, "items", len(r.Items))
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func fetchOne(ctx context.Context, src news.Source) (res news.SourceResult) {
	res.SourceID = src.ID()
	defer func() {
		if p := recover(); p != nil {
			res.Items = nil
			res.Err = fmt.Errorf("source %s panicked: %v", res.SourceID, p)
		}
	}()

	items, err := src.Fetch(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.Items = items
	return res
}
