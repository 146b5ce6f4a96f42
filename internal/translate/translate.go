// Package translate turns foreign-language headlines into the target locale.
// Providers are tried in order; when all of them fail the original text is kept.
package translate

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/cosmosbot/internal/cache"
	"github.com/deusflow/cosmosbot/internal/metrics"
	"github.com/deusflow/cosmosbot/internal/ratelimit"
)

const maxInputRunes = 4000

// Provider is one translation backend.
type Provider interface {
	Name() string
	Translate(ctx context.Context, text, locale string) (string, error)
}

// Metered is implemented by providers that draw from the daily AI budget.
type Metered interface {
	Metered() bool
}

type Options struct {
	Cache   *cache.Cache
	Budget  *ratelimit.Budget
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Timeout time.Duration // per provider call
}

// Translator runs the provider chain. It is safe for concurrent use when the
// providers are.
type Translator struct {
	providers []Provider
	cache     *cache.Cache
	budget    *ratelimit.Budget
	metrics   *metrics.Metrics
	logger    *slog.Logger
	timeout   time.Duration
}

func New(opts Options, providers ...Provider) *Translator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	var chain []Provider
	for _, p := range providers {
		if p != nil {
			chain = append(chain, p)
		}
	}
	return &Translator{
		providers: chain,
		cache:     opts.Cache,
		budget:    opts.Budget,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		timeout:   opts.Timeout,
	}
}

// Translate returns text in locale, or text itself if no provider succeeded.
func (t *Translator) Translate(ctx context.Context, text, locale string) string {
	clean := strings.TrimSpace(text)
	if clean == "" || locale == "" || len(t.providers) == 0 {
		return text
	}

	key := cache.GenerateKey(locale, clean)
	if t.cache != nil {
		if v, ok := t.cache.Get(key); ok {
			t.logger.Debug("translation cache hit", "locale", locale)
			return v
		}
	}

	input := limitRunes(clean, maxInputRunes)
	for _, p := range t.providers {
		if ctx.Err() != nil {
			break
		}
		if m, ok := p.(Metered); ok && m.Metered() && t.budget != nil {
			if err := t.budget.Take(ctx, p.Name()); err != nil {
				t.logger.Warn("translation provider skipped", "provider", p.Name(), "error", err)
				continue
			}
		}

		pctx, cancel := context.WithTimeout(ctx, t.timeout)
		out, err := p.Translate(pctx, input, locale)
		cancel()
		if err != nil {
			t.logger.Warn("translation failed", "provider", p.Name(), "locale", locale, "error", err)
			continue
		}
		out = SanitizeAIText(out)
		if out == "" {
			t.logger.Warn("translation empty", "provider", p.Name(), "locale", locale)
			continue
		}

		t.logger.Info("translated", "provider", p.Name(), "locale", locale)
		if t.metrics != nil {
			t.metrics.IncrementSuccessfulTranslations()
		}
		if t.cache != nil {
			t.cache.Set(key, out)
		}
		return out
	}

	t.logger.Warn("all translation providers failed, keeping original", "locale", locale)
	if t.metrics != nil {
		t.metrics.IncrementFailedTranslations()
	}
	return text
}

// LanguageName maps a locale code to the English language name used in prompts.
func LanguageName(locale string) string {
	switch strings.ToLower(locale) {
	case "ru", "russian":
		return "Russian"
	case "uk", "ukrainian":
		return "Ukrainian"
	case "en", "english":
		return "English"
	case "de":
		return "German"
	case "da":
		return "Danish"
	default:
		return locale
	}
}

func limitRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
