package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/cosmosbot/internal/config"
	"github.com/deusflow/cosmosbot/internal/news"
)

// RSSSource reads one RSS/Atom feed.
type RSSSource struct {
	cfg     config.SourceConfig
	parser  *gofeed.Parser
	client  *http.Client
	logger  *slog.Logger
	timeout time.Duration
}

func NewRSSSource(cfg config.SourceConfig, opts Options) *RSSSource {
	opts = opts.withDefaults()

	parser := gofeed.NewParser()
	parser.Client = opts.Client
	parser.UserAgent = userAgent

	return &RSSSource{cfg: cfg, parser: parser, client: opts.Client, logger: opts.Logger, timeout: opts.Timeout}
}

func (s *RSSSource) ID() string { return s.cfg.ID }

// Fetch downloads the feed and converts its newest entries to news items.
func (s *RSSSource) Fetch(ctx context.Context) ([]news.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	feed, err := s.parser.ParseURLWithContext(s.cfg.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", s.cfg.URL, err)
	}

	name := s.cfg.Name
	if name == "" {
		name = strings.TrimSpace(feed.Title)
	}

	items := make([]news.Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		if s.cfg.Limit > 0 && len(items) >= s.cfg.Limit {
			break
		}

		title := htmlText(it.Title)
		if title == "" {
			continue
		}

		body := it.Description
		if body == "" {
			body = it.Content
		}

		published := it.Published
		if published == "" {
			published = it.Updated
		}

		item := news.Item{
			Title:            title,
			Description:      htmlText(body),
			Link:             strings.TrimSpace(it.Link),
			PublishedAt:      published,
			SourceID:         s.cfg.ID,
			SourceName:       name,
			ImageHint:        feedImage(it),
			NeedsTranslation: s.cfg.Translate,
		}
		if s.cfg.Enrich {
			s.enrich(ctx, &item)
		}
		items = append(items, item)
	}

	return items, nil
}

// feedImage looks for an image in the item metadata, then in its HTML.
func feedImage(it *gofeed.Item) string {
	if it.Image != nil && isHTTPURL(it.Image.URL) {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && isHTTPURL(enc.URL) {
			return enc.URL
		}
	}
	if src := firstImage(it.Description); src != "" {
		return src
	}
	return firstImage(it.Content)
}
