package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/cosmosbot/internal/news"
)

const maxArticleSummary = 600

// articleInfo is what a linked article page contributes to a feed item.
type articleInfo struct {
	Image   string
	Summary string
}

// fetchArticle loads the item's page and pulls its preview image and
// leading paragraphs.
func fetchArticle(ctx context.Context, client *http.Client, link string) (*articleInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	return &articleInfo{
		Image:   previewImage(doc),
		Summary: articleSummary(doc),
	}, nil
}

func previewImage(doc *goquery.Document) string {
	for _, sel := range []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
		`link[rel="image_src"]`,
	} {
		node := doc.Find(sel).First()
		v := strings.TrimSpace(node.AttrOr("content", node.AttrOr("href", "")))
		if isHTTPURL(v) {
			return v
		}
	}
	return ""
}

// articleSummary joins the first paragraphs of the article body, stopping at
// three paragraphs or maxArticleSummary runes.
func articleSummary(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, aside").Remove()

	selectors := []string{
		"article p",
		".article p",
		".content p",
		".post-content p",
		".entry-content p",
		"main p",
		"#content p",
		"p",
	}

	var paragraphs []string
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.Join(strings.Fields(s.Text()), " ")
			if len([]rune(text)) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			break
		}
	}
	if len(paragraphs) > 3 {
		paragraphs = paragraphs[:3]
	}

	var b strings.Builder
	for _, p := range paragraphs {
		if b.Len() > 0 && len([]rune(b.String()))+len([]rune(p)) > maxArticleSummary {
			break
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(p)
	}
	return news.Truncate(b.String(), maxArticleSummary)
}

// enrich fills a missing image hint or description from the item's page.
// Failures leave the item untouched.
func (s *RSSSource) enrich(ctx context.Context, item *news.Item) {
	if item.ImageHint != "" && item.Description != "" {
		return
	}
	if !isHTTPURL(item.Link) {
		return
	}

	info, err := fetchArticle(ctx, s.client, item.Link)
	if err != nil {
		s.logger.Debug("article enrichment failed", "link", item.Link, "error", err)
		return
	}
	if item.ImageHint == "" {
		item.ImageHint = info.Image
	}
	if item.Description == "" {
		item.Description = info.Summary
	}
}
