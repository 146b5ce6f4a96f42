// Package publish delivers finished posts to a social network.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/deusflow/cosmosbot/internal/retry"
)

// Publisher posts a message with an optional image file. An empty imagePath
// means a text-only post. It reports success and never panics.
type Publisher interface {
	Publish(ctx context.Context, message, imagePath string) bool
}

type Options struct {
	BaseURL string // overrides the public API root
	Client  *http.Client
	Retry   retry.RetryConfig
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// apiError is a non-2xx reply. Client errors other than 429 are permanent.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Body)
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	err := &apiError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}

// postMultipart uploads fields plus the file at path under fileField.
func postMultipart(ctx context.Context, client *http.Client, url string, fields map[string]string, fileField, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return retry.Permanent(fmt.Errorf("read image: %w", err))
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return retry.Permanent(fmt.Errorf("write field %s: %w", k, err))
		}
	}
	part, err := w.CreateFormFile(fileField, filepath.Base(path))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create form file: %w", err))
	}
	if _, err := part.Write(data); err != nil {
		return retry.Permanent(fmt.Errorf("write image: %w", err))
	}
	if err := w.Close(); err != nil {
		return retry.Permanent(fmt.Errorf("close multipart: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return retry.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return do(client, req)
}

func do(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	return checkResponse(resp)
}
