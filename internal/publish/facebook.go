package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/deusflow/cosmosbot/internal/retry"
)

const defaultGraphURL = "https://graph.facebook.com/v18.0"

// Facebook posts to a group through the Graph API.
type Facebook struct {
	token   string
	groupID string
	baseURL string
	client  *http.Client
	retry   retry.RetryConfig
	logger  *slog.Logger
}

func NewFacebook(token, groupID string, opts Options) *Facebook {
	opts = opts.withDefaults()
	base := opts.BaseURL
	if base == "" {
		base = defaultGraphURL
	}
	return &Facebook{
		token:   token,
		groupID: groupID,
		baseURL: strings.TrimRight(base, "/"),
		client:  opts.Client,
		retry:   opts.Retry,
		logger:  opts.Logger.With("publisher", "facebook"),
	}
}

// Publish uploads the image to /photos with the message as caption, or posts the
// message to /feed when imagePath is empty.
func (f *Facebook) Publish(ctx context.Context, message, imagePath string) bool {
	var send func(ctx context.Context) error
	if imagePath != "" {
		send = func(ctx context.Context) error {
			return postMultipart(ctx, f.client, f.baseURL+"/"+f.groupID+"/photos", map[string]string{
				"message":      message,
				"access_token": f.token,
			}, "source", imagePath)
		}
	} else {
		send = func(ctx context.Context) error {
			return f.postForm(ctx, "/feed", url.Values{
				"message":      {message},
				"access_token": {f.token},
			})
		}
	}

	if err := retry.WithRetry(ctx, f.retry, send); err != nil {
		f.logger.Error("facebook post failed", "with_image", imagePath != "", "error", err)
		return false
	}
	f.logger.Info("posted to facebook", "with_image", imagePath != "")
	return true
}

// GroupInfo fetches the group's name and privacy, for checking credentials.
func (f *Facebook) GroupInfo(ctx context.Context) (map[string]interface{}, error) {
	params := url.Values{"access_token": {f.token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/"+f.groupID+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	info := map[string]interface{}{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode group info: %w", err)
	}
	return info, nil
}

func (f *Facebook) postForm(ctx context.Context, edge string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/"+f.groupID+edge, strings.NewReader(form.Encode()))
	if err != nil {
		return retry.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(f.client, req)
}
