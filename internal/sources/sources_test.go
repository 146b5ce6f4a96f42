package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deusflow/cosmosbot/internal/config"
	"github.com/deusflow/cosmosbot/internal/logger"
	"github.com/deusflow/cosmosbot/internal/news"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Новости космонавтики</title>
  <item>
    <title>Запуск Союз-2</title>
    <link>https://example.com/soyuz</link>
    <description><![CDATA[<p><img src="https://example.com/soyuz.jpg"/>Ракета &laquo;Союз-2&raquo; стартовала.</p>]]></description>
    <pubDate>Mon, 06 Jan 2025 10:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Марс: новая миссия</title>
    <link>https://example.com/mars</link>
    <description>Plain text summary</description>
    <enclosure url="https://example.com/mars.png" type="image/png" length="10"/>
  </item>
  <item>
    <title>   </title>
    <link>https://example.com/empty</link>
  </item>
  <item>
    <title>Третья новость</title>
    <link>https://example.com/third</link>
  </item>
</channel>
</rss>`

func TestRSSSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	src := NewRSSSource(config.SourceConfig{ID: "nk", URL: srv.URL, Limit: 2}, Options{Timeout: 5 * time.Second})
	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items (limit), got %d", len(items))
	}

	first := items[0]
	if first.Title != "Запуск Союз-2" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if first.Description != "Ракета «Союз-2» стартовала." {
		t.Errorf("html was not stripped: %q", first.Description)
	}
	if first.ImageHint != "https://example.com/soyuz.jpg" {
		t.Errorf("expected image from description, got %q", first.ImageHint)
	}
	if first.SourceName != "Новости космонавтики" {
		t.Errorf("expected feed title as source name, got %q", first.SourceName)
	}
	if first.SourceID != "nk" || first.PublishedAt == "" {
		t.Errorf("unexpected metadata %+v", first)
	}

	if items[1].ImageHint != "https://example.com/mars.png" {
		t.Errorf("expected enclosure image, got %q", items[1].ImageHint)
	}
}

func TestRSSSourceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewRSSSource(config.SourceConfig{ID: "bad", URL: srv.URL}, Options{})
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestSpaceflightSourceFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count":2,"results":[
			{"title":"Starship flies again","url":"https://example.com/starship","image_url":"https://example.com/starship.jpg","news_site":"SpaceNews","summary":"SpaceX launched Starship.","published_at":"2025-01-06T10:00:00Z"},
			{"title":"","url":"https://example.com/empty"},
			{"title":"Artemis update","url":"https://example.com/artemis","image_url":"not-a-url","summary":"NASA says..."}
		]}`))
	}))
	defer srv.Close()

	src := NewSpaceflightSource(config.SourceConfig{ID: "sfn", URL: srv.URL + "/v4/articles/", Limit: 5, Translate: true}, Options{})
	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(gotQuery, "limit=5") || !strings.Contains(gotQuery, "ordering=-published_at") {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ImageHint != "https://example.com/starship.jpg" || !items[0].NeedsTranslation {
		t.Errorf("unexpected first item %+v", items[0])
	}
	if items[0].SourceName != "Space Flight News" {
		t.Errorf("unexpected source name %q", items[0].SourceName)
	}
	if items[1].ImageHint != "" {
		t.Errorf("invalid image url should be dropped, got %q", items[1].ImageHint)
	}
}

func TestSpaceflightSourceBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [`))
	}))
	defer srv.Close()

	src := NewSpaceflightSource(config.SourceConfig{ID: "sfn", URL: srv.URL}, Options{})
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

type stubSource struct {
	id    string
	items []news.Item
	err   error
	delay time.Duration
	panic bool
}

func (s stubSource) ID() string { return s.id }

func (s stubSource) Fetch(ctx context.Context) ([]news.Item, error) {
	if s.panic {
		panic("broken parser")
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.items, s.err
}

func TestFetchAllKeepsOrderAndIsolatesFailures(t *testing.T) {
	srcs := []news.Source{
		stubSource{id: "slow", items: []news.Item{{Title: "a"}}, delay: 20 * time.Millisecond},
		stubSource{id: "broken", err: errors.New("timeout")},
		stubSource{id: "panics", panic: true},
		stubSource{id: "fast", items: []news.Item{{Title: "b"}, {Title: "c"}}},
	}

	results := FetchAll(context.Background(), srcs, 2, logger.Discard())
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	wantIDs := []string{"slow", "broken", "panics", "fast"}
	for i, id := range wantIDs {
		if results[i].SourceID != id {
			t.Errorf("result %d: expected %s, got %s", i, id, results[i].SourceID)
		}
	}
	if results[1].Err == nil || results[2].Err == nil {
		t.Error("expected errors for broken and panicking sources")
	}
	if len(results[3].Items) != 2 {
		t.Errorf("expected 2 items from fast source, got %d", len(results[3].Items))
	}
}

type countingSource struct {
	id       string
	inFlight *int32
	peak     *int32
}

func (s countingSource) ID() string { return s.id }

func (s countingSource) Fetch(ctx context.Context) ([]news.Item, error) {
	n := atomic.AddInt32(s.inFlight, 1)
	for {
		p := atomic.LoadInt32(s.peak)
		if n <= p || atomic.CompareAndSwapInt32(s.peak, p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	atomic.AddInt32(s.inFlight, -1)
	return nil, nil
}

func TestFetchAllBoundedConcurrency(t *testing.T) {
	var inFlight, peak int32
	var srcs []news.Source
	for i := 0; i < 6; i++ {
		srcs = append(srcs, countingSource{id: string(rune('a' + i)), inFlight: &inFlight, peak: &peak})
	}

	FetchAll(context.Background(), srcs, 2, logger.Discard())
	if peak > 2 {
		t.Errorf("expected at most 2 concurrent fetches, saw %d", peak)
	}
}

func TestBuildUnknownKind(t *testing.T) {
	_, err := Build([]config.SourceConfig{{ID: "x", Kind: "gopher", URL: "u"}}, Options{})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}

	srcs, err := Build(config.DefaultSources(), Options{})
	if err != nil {
		t.Fatalf("build defaults: %v", err)
	}
	if len(srcs) != len(config.DefaultSources()) {
		t.Errorf("unexpected source count %d", len(srcs))
	}
}

func TestHTMLText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"No tags here", "No tags here"},
		{"<div>  Multiple   spaces  </div>", "Multiple spaces"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"<script>var x;</script>Text", "Text"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := htmlText(tt.input); got != tt.want {
			t.Errorf("htmlText(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFirstImage(t *testing.T) {
	if got := firstImage(`<img src="/relative.jpg"><img src="https://cdn.example.com/a.jpg">`); got != "https://cdn.example.com/a.jpg" {
		t.Errorf("unexpected image %q", got)
	}
	if got := firstImage("no images"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

const articlePage = `<html><head>
<meta property="og:image" content="https://example.com/third-og.jpg">
</head><body>
<nav><p>Главная страница сайта и меню навигации</p></nav>
<article>
  <p>Первый абзац статьи о запуске нового спутника.</p>
  <p>Второй абзац с подробностями о ракете-носителе.</p>
</article>
</body></html>`

func TestRSSSourceEnrichesFromArticle(t *testing.T) {
	var articleHits atomic.Int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	feed := strings.ReplaceAll(sampleRSS, "https://example.com/third", srv.URL+"/third")
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	})
	mux.HandleFunc("/third", func(w http.ResponseWriter, r *http.Request) {
		articleHits.Add(1)
		_, _ = w.Write([]byte(articlePage))
	})

	src := NewRSSSource(config.SourceConfig{ID: "nk", URL: srv.URL + "/feed", Enrich: true}, Options{Timeout: 5 * time.Second})
	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	third := items[2]
	if third.ImageHint != "https://example.com/third-og.jpg" {
		t.Errorf("expected og:image hint, got %q", third.ImageHint)
	}
	want := "Первый абзац статьи о запуске нового спутника. Второй абзац с подробностями о ракете-носителе."
	if third.Description != want {
		t.Errorf("unexpected summary %q", third.Description)
	}
	if articleHits.Load() != 1 {
		t.Errorf("expected one article request, got %d", articleHits.Load())
	}
	// complete items are left alone
	if items[0].ImageHint != "https://example.com/soyuz.jpg" {
		t.Errorf("complete item changed: %+v", items[0])
	}
}

func TestRSSSourceEnrichFailureKeepsItem(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	feed := strings.ReplaceAll(sampleRSS, "https://example.com/third", srv.URL+"/gone")
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	})

	src := NewRSSSource(config.SourceConfig{ID: "nk", URL: srv.URL + "/feed", Enrich: true},
		Options{Timeout: 5 * time.Second, Logger: logger.Discard()})
	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 3 || items[2].Title != "Третья новость" || items[2].ImageHint != "" {
		t.Errorf("unexpected items %+v", items)
	}
}
