// Package app wires the configured collaborators into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/cosmosbot/internal/cache"
	"github.com/deusflow/cosmosbot/internal/config"
	"github.com/deusflow/cosmosbot/internal/gemini"
	"github.com/deusflow/cosmosbot/internal/imagesearch"
	"github.com/deusflow/cosmosbot/internal/logger"
	"github.com/deusflow/cosmosbot/internal/metrics"
	"github.com/deusflow/cosmosbot/internal/news"
	"github.com/deusflow/cosmosbot/internal/pipeline"
	"github.com/deusflow/cosmosbot/internal/publish"
	"github.com/deusflow/cosmosbot/internal/ratelimit"
	"github.com/deusflow/cosmosbot/internal/render"
	"github.com/deusflow/cosmosbot/internal/retry"
	"github.com/deusflow/cosmosbot/internal/sources"
	"github.com/deusflow/cosmosbot/internal/storage"
	"github.com/deusflow/cosmosbot/internal/theme"
	"github.com/deusflow/cosmosbot/internal/translate"
)

// App holds everything one process needs. Build it with New, release it with Close.
type App struct {
	Config       *config.Config
	Metrics      *metrics.Metrics
	Orchestrator *pipeline.Orchestrator
	Composer     *render.Composer
	Translator   *translate.Translator
	Publisher    publish.Publisher
	History      storage.History
	Budget       *ratelimit.Budget

	sources  []news.Source
	resolver *theme.Resolver
	gemini   *gemini.Client
	logger   *slog.Logger
}

// New builds the object graph from cfg. It does not validate publisher
// credentials, so commands that never publish can use it too.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*App, error) {
	if m == nil {
		m = metrics.Global
	}
	a := &App{
		Config:   cfg,
		Metrics:  m,
		resolver: theme.NewResolver(nil),
		logger:   logger.Component("app"),
	}

	srcs, err := sources.Build(cfg.Sources, sources.Options{Timeout: cfg.RequestTimeout, Logger: logger.Component("sources")})
	if err != nil {
		return nil, err
	}
	a.sources = srcs

	a.Translator = a.buildTranslator(ctx)

	var searcher render.ImageSearcher
	if cfg.UnsplashAPIKey != "" {
		searcher = imagesearch.NewUnsplash(cfg.UnsplashAPIKey, "", cfg.RequestTimeout)
	}
	a.Composer = render.NewComposer(render.Options{
		Width:            cfg.ImageWidth,
		Height:           cfg.ImageHeight,
		TitleFontPath:    cfg.TitleFontPath,
		SubtitleFontPath: cfg.SubtitleFontPath,
		TitleFontSize:    cfg.TitleFontSize,
		SubtitleFontSize: cfg.SubtitleFontSize,
		StarCount:        cfg.StarCount,
		FetchTimeout:     cfg.RequestTimeout,
	}, searcher, logger.Component("render"))

	a.Publisher = a.buildPublisher()

	if cfg.HistoryBackend != "none" {
		h, err := storage.Open(ctx, storage.Config{
			Backend:     cfg.HistoryBackend,
			Path:        cfg.HistoryPath,
			DatabaseURL: cfg.DatabaseURL,
			Limit:       cfg.HistoryLimit,
			TTL:         time.Duration(cfg.HistoryTTLHours) * time.Hour,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.History = h
	}

	deps := pipeline.Deps{
		Sources:    a.sources,
		Resolver:   a.resolver,
		Composer:   a.Composer,
		Publisher:  a.Publisher,
		Translator: a.Translator,
		Metrics:    m,
		Logger:     logger.Component("pipeline"),
	}
	if a.History != nil {
		deps.History = a.History
	}
	a.Orchestrator = pipeline.New(deps, pipeline.Options{
		Interval:         cfg.PostInterval,
		RunOnStart:       cfg.RunOnStart,
		FetchConcurrency: cfg.FetchConcurrency,
		TargetLocale:     cfg.TargetLocale,
		ImagePath:        cfg.ImageOutputPath,
		Post:             news.PostOptions{DescriptionLimit: cfg.DescriptionLimit},
	})

	return a, nil
}

func (a *App) buildTranslator(ctx context.Context) *translate.Translator {
	cfg := a.Config
	providers := []translate.Provider{translate.NewGoogle("", cfg.RequestTimeout)}

	if cfg.GeminiAPIKey != "" {
		g, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, "")
		if err != nil {
			a.logger.Warn("gemini disabled", "error", err)
		} else {
			a.gemini = g
			providers = append(providers, g)
		}
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, translate.NewOpenAI(cfg.OpenAIAPIKey, ""))
	}

	a.Budget = ratelimit.NewBudget(map[string]int{
		"gemini": cfg.MaxAIRequests,
		"openai": cfg.MaxAIRequests,
	}, 0, 1)

	return translate.New(translate.Options{
		Cache:   cache.New(24*time.Hour, 500),
		Budget:  a.Budget,
		Metrics: a.Metrics,
		Logger:  logger.Component("translate"),
		Timeout: 2 * cfg.RequestTimeout,
	}, providers...)
}

func (a *App) buildPublisher() publish.Publisher {
	cfg := a.Config
	opts := publish.Options{
		Retry: retry.RetryConfig{
			MaxAttempts: cfg.RetryAttempts,
			Delay:       cfg.RetryDelay,
			Backoff:     true,
		},
		Logger: logger.Component("publish"),
	}
	if cfg.Publisher == "telegram" {
		return publish.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, opts)
	}
	return publish.NewFacebook(cfg.FacebookAccessToken, cfg.FacebookGroupID, opts)
}

// Run schedules cycles until ctx is cancelled, serving /health and /metrics
// alongside when monitoring is enabled.
func (a *App) Run(ctx context.Context) error {
	if a.Config.EnableMonitoring {
		srv := a.monitoringServer()
		go func() {
			a.logger.Info("starting monitoring server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("monitoring server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
	return a.Orchestrator.Run(ctx)
}

// RunOnce runs a single cycle.
func (a *App) RunOnce(ctx context.Context) pipeline.CycleResult {
	res, _ := a.Orchestrator.TryRunCycle(ctx)
	return res
}

// Render composes the image for title without fetching or publishing.
func (a *App) Render(ctx context.Context, item news.Item, out string) (*render.ComposedImage, error) {
	key := a.resolver.Resolve(item.Title)
	img, err := a.Composer.Compose(ctx, item, key)
	if err != nil {
		return nil, err
	}
	a.Composer.OverlayText(img, item.Title, item.Attribution())
	if err := a.Composer.Save(img, out); err != nil {
		return nil, err
	}
	a.logger.Info("image rendered", "path", out, "theme", key.String(), "background", img.Background.String())
	return img, nil
}

// RecentPosts lists the newest n history records.
func (a *App) RecentPosts(ctx context.Context, n int) ([]storage.Record, error) {
	if a.History == nil {
		return nil, errors.New("history is disabled (HISTORY_BACKEND=none)")
	}
	return a.History.Recent(ctx, n)
}

// TranslateText runs text through the provider chain. The original comes
// back when every provider fails.
func (a *App) TranslateText(ctx context.Context, text, locale string) string {
	if locale == "" {
		locale = a.Config.TargetLocale
	}
	return a.Translator.Translate(ctx, text, locale)
}

// Check validates the configuration and, for Facebook, confirms the token can
// read the target group.
func (a *App) Check(ctx context.Context) (map[string]interface{}, error) {
	if err := a.Config.Validate(); err != nil {
		return nil, err
	}
	fb, ok := a.Publisher.(*publish.Facebook)
	if !ok {
		return map[string]interface{}{"publisher": a.Config.Publisher}, nil
	}
	info, err := fb.GroupInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("facebook group check: %w", err)
	}
	return info, nil
}

func (a *App) monitoringServer() *http.Server {
	return &http.Server{
		Addr:              ":" + a.Config.MonitoringPort,
		Handler:           metrics.Handler(a.Metrics, metrics.Section{Name: "ai_budget", Stats: a.Budget.GetStats}),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (a *App) Close() {
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			a.logger.Warn("failed to close history", "error", err)
		}
	}
	if a.gemini != nil {
		a.gemini.Close()
	}
	if a.Composer != nil {
		a.Composer.Close()
	}
}
