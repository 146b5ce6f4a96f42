package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/deusflow/cosmosbot/internal/news"
	"github.com/deusflow/cosmosbot/internal/retry"
)

const (
	defaultTelegramURL = "https://api.telegram.org"
	captionLimit       = 1024
	messageLimit       = 4096
)

// Telegram posts to a chat or channel through the Bot API.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	retry   retry.RetryConfig
	logger  *slog.Logger
}

func NewTelegram(token, chatID string, opts Options) *Telegram {
	opts = opts.withDefaults()
	base := opts.BaseURL
	if base == "" {
		base = defaultTelegramURL
	}
	return &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: strings.TrimRight(base, "/"),
		client:  opts.Client,
		retry:   opts.Retry,
		logger:  opts.Logger.With("publisher", "telegram"),
	}
}

// Publish sends the image with the message as caption, or a plain message when
// imagePath is empty. Messages are sent as plain text.
func (t *Telegram) Publish(ctx context.Context, message, imagePath string) bool {
	var send func(ctx context.Context) error
	if imagePath != "" {
		caption := news.Truncate(message, captionLimit-3)
		send = func(ctx context.Context) error {
			return postMultipart(ctx, t.client, t.method("sendPhoto"), map[string]string{
				"chat_id": t.chatID,
				"caption": caption,
			}, "photo", imagePath)
		}
	} else {
		text := news.Truncate(message, messageLimit-3)
		send = func(ctx context.Context) error {
			return t.sendMessage(ctx, text)
		}
	}

	err := retry.WithRetry(ctx, t.retry, func(ctx context.Context) error {
		if err := send(ctx); err != nil {
			t.logger.Warn("telegram send attempt failed", "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		t.logger.Error("telegram post failed", "with_image", imagePath != "", "error", err)
		return false
	}
	t.logger.Info("posted to telegram", "with_image", imagePath != "")
	return true
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     text,
		"disable_web_page_preview": false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("error make JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.method("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	return do(t.client, req)
}

func (t *Telegram) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, name)
}
