// Package imagesearch finds a themed background photo for a post.
package imagesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrUnavailable means the search service is not configured.
	ErrUnavailable = errors.New("image search unavailable")
	// ErrNoResult means the query returned nothing usable.
	ErrNoResult = errors.New("image search returned no results")
)

const defaultUnsplashURL = "https://api.unsplash.com"

// Unsplash searches photos through the Unsplash API.
type Unsplash struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type unsplashResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
			Full    string `json:"full"`
		} `json:"urls"`
	} `json:"results"`
}

// NewUnsplash returns a client; baseURL may be empty for the public API.
func NewUnsplash(apiKey, baseURL string, timeout time.Duration) *Unsplash {
	if baseURL == "" {
		baseURL = defaultUnsplashURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Unsplash{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Search returns the URL of the first landscape photo matching query.
func (u *Unsplash) Search(ctx context.Context, query string) (string, error) {
	if u == nil || u.apiKey == "" {
		return "", ErrUnavailable
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+u.apiKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("unsplash request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unsplash returned status: %d", resp.StatusCode)
	}

	var payload unsplashResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode unsplash response: %w", err)
	}

	for _, r := range payload.Results {
		if r.URLs.Regular != "" {
			return r.URLs.Regular, nil
		}
		if r.URLs.Full != "" {
			return r.URLs.Full, nil
		}
	}
	return "", ErrNoResult
}
