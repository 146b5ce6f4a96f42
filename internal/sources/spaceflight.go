package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deusflow/cosmosbot/internal/config"
	"github.com/deusflow/cosmosbot/internal/news"
)

// SpaceflightSource reads the Spaceflight News API (v4 articles endpoint).
type SpaceflightSource struct {
	cfg     config.SourceConfig
	client  *http.Client
	timeout time.Duration
}

type spaceflightResponse struct {
	Results []spaceflightArticle `json:"results"`
}

type spaceflightArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
	NewsSite    string `json:"news_site"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"published_at"`
}

func NewSpaceflightSource(cfg config.SourceConfig, opts Options) *SpaceflightSource {
	opts = opts.withDefaults()
	return &SpaceflightSource{cfg: cfg, client: opts.Client, timeout: opts.Timeout}
}

func (s *SpaceflightSource) ID() string { return s.cfg.ID }

func (s *SpaceflightSource) Fetch(ctx context.Context) ([]news.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	endpoint, err := s.endpoint()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spaceflight request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spaceflight api returned status: %d", resp.StatusCode)
	}

	var payload spaceflightResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode spaceflight response: %w", err)
	}

	name := s.cfg.Name
	if name == "" {
		name = "Space Flight News"
	}

	items := make([]news.Item, 0, len(payload.Results))
	for _, a := range payload.Results {
		if s.cfg.Limit > 0 && len(items) >= s.cfg.Limit {
			break
		}
		title := strings.TrimSpace(a.Title)
		if title == "" {
			continue
		}
		hint := ""
		if isHTTPURL(a.ImageURL) {
			hint = a.ImageURL
		}
		items = append(items, news.Item{
			Title:            title,
			Description:      strings.TrimSpace(a.Summary),
			Link:             a.URL,
			PublishedAt:      a.PublishedAt,
			SourceID:         s.cfg.ID,
			SourceName:       name,
			ImageHint:        hint,
			NeedsTranslation: s.cfg.Translate,
		})
	}
	return items, nil
}

func (s *SpaceflightSource) endpoint() (string, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("source %s: bad url: %w", s.cfg.ID, err)
	}
	q := u.Query()
	if q.Get("limit") == "" && s.cfg.Limit > 0 {
		q.Set("limit", strconv.Itoa(s.cfg.Limit))
	}
	if q.Get("ordering") == "" {
		q.Set("ordering", "-published_at")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
