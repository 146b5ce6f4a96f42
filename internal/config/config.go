// Package config reads the process configuration once at start-up.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Scheduling
	PostInterval time.Duration
	RunOnStart   bool

	// Image composition
	ImageWidth       int
	ImageHeight      int
	TitleFontPath    string
	SubtitleFontPath string
	TitleFontSize    float64
	SubtitleFontSize float64
	StarCount        int
	ImageOutputPath  string

	// Sources
	SourcesConfigPath string
	Sources           []SourceConfig
	FetchConcurrency  int
	RequestTimeout    time.Duration

	// Translation
	TargetLocale  string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	MaxAIRequests int // per provider per day, 0 = unlimited

	// Image search
	UnsplashAPIKey string

	// Publishing
	Publisher           string // facebook | telegram
	FacebookAccessToken string
	FacebookGroupID     string
	TelegramToken       string
	TelegramChatID      string
	RetryAttempts       int
	RetryDelay          time.Duration
	DescriptionLimit    int

	// Posted-title history
	HistoryBackend  string // file | postgres | sqlite | memory | none
	HistoryPath     string
	DatabaseURL     string
	HistoryLimit    int
	HistoryTTLHours int

	// App settings
	Debug            bool
	EnableMonitoring bool
	MonitoringPort   string
}

// SourceConfig describes one news endpoint from the sources YAML file.
type SourceConfig struct {
	ID        string `yaml:"id"`
	Kind      string `yaml:"kind"` // rss | spaceflight
	URL       string `yaml:"url"`
	Name      string `yaml:"name"`
	Limit     int    `yaml:"limit"`
	Translate bool   `yaml:"translate"`
	Enrich    bool   `yaml:"enrich"` // read the linked page for a missing image or summary
}

// SourcesFile is the YAML layout:
//
//	sources:
//	  - id: roscosmos
//	    kind: rss
//	    url: https://...
type SourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// DefaultSources mirrors the feeds the bot was originally built around.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{ID: "roscosmos", Kind: "rss", URL: "https://www.roscosmos.ru/rss/", Name: "Роскосмос", Limit: 3},
		{ID: "novosti-kosmonavtiki", Kind: "rss", URL: "https://novosti-kosmonavtiki.ru/feed/", Name: "Новости космонавтики", Limit: 3},
		{ID: "universemagazine", Kind: "rss", URL: "https://universemagazine.com/ru/feed/", Name: "Universe Magazine", Limit: 3},
		{ID: "spaceflightnews", Kind: "spaceflight", URL: "https://api.spaceflightnewsapi.net/v4/articles/", Name: "Space Flight News", Limit: 5, Translate: true},
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		PostInterval:      6 * time.Hour,
		ImageWidth:        1200,
		ImageHeight:       630,
		TitleFontPath:     "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
		SubtitleFontPath:  "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		TitleFontSize:     48,
		SubtitleFontSize:  28,
		StarCount:         100,
		SourcesConfigPath: "configs/sources.yaml",
		FetchConcurrency:  4,
		RequestTimeout:    10 * time.Second,
		TargetLocale:      "ru",
		MaxAIRequests:     20,
		Publisher:         "facebook",
		RetryAttempts:     3,
		RetryDelay:        2 * time.Second,
		DescriptionLimit:  300,
		HistoryBackend:    "file",
		HistoryLimit:      500,
		HistoryTTLHours:   24 * 7,
		MonitoringPort:    "8080",
	}

	cfg.PostInterval = getEnvDurationOrDefault("POST_INTERVAL", cfg.PostInterval)
	cfg.RunOnStart = os.Getenv("RUN_ON_START") == "true"

	cfg.ImageWidth = getEnvIntOrDefault("IMAGE_WIDTH", cfg.ImageWidth)
	cfg.ImageHeight = getEnvIntOrDefault("IMAGE_HEIGHT", cfg.ImageHeight)
	cfg.TitleFontPath = getEnvOrDefault("TITLE_FONT_PATH", cfg.TitleFontPath)
	cfg.SubtitleFontPath = getEnvOrDefault("SUBTITLE_FONT_PATH", cfg.SubtitleFontPath)
	cfg.StarCount = getEnvIntOrDefault("STAR_COUNT", cfg.StarCount)
	cfg.ImageOutputPath = getEnvOrDefault("IMAGE_OUTPUT_PATH", "")

	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)
	cfg.FetchConcurrency = getEnvIntOrDefault("FETCH_CONCURRENCY", cfg.FetchConcurrency)
	cfg.RequestTimeout = getEnvDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)

	cfg.TargetLocale = getEnvOrDefault("TARGET_LOCALE", cfg.TargetLocale)
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.MaxAIRequests = getEnvIntOrDefault("MAX_AI_REQUESTS", cfg.MaxAIRequests)

	cfg.UnsplashAPIKey = os.Getenv("UNSPLASH_API_KEY")

	cfg.Publisher = strings.ToLower(getEnvOrDefault("PUBLISHER", cfg.Publisher))
	cfg.FacebookAccessToken = os.Getenv("FACEBOOK_ACCESS_TOKEN")
	cfg.FacebookGroupID = os.Getenv("FACEBOOK_GROUP_ID")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.RetryDelay = getEnvDurationOrDefault("RETRY_DELAY", cfg.RetryDelay)
	cfg.DescriptionLimit = getEnvIntOrDefault("DESCRIPTION_LIMIT", cfg.DescriptionLimit)

	cfg.HistoryBackend = strings.ToLower(getEnvOrDefault("HISTORY_BACKEND", cfg.HistoryBackend))
	cfg.HistoryPath = os.Getenv("HISTORY_PATH")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.HistoryLimit = getEnvIntOrDefault("HISTORY_LIMIT", cfg.HistoryLimit)
	cfg.HistoryTTLHours = getEnvIntOrDefault("HISTORY_TTL_HOURS", cfg.HistoryTTLHours)

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}
	cfg.EnableMonitoring = os.Getenv("ENABLE_HTTP_MONITORING") == "true"
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	sources, err := LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources

	return cfg, nil
}

// LoadSources reads the source list from a YAML file. A missing file yields
// DefaultSources.
func LoadSources(path string) ([]SourceConfig, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSources(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sources %s: %w", path, err)
	}

	var file SourcesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse sources %s: %w", path, err)
	}
	if len(file.Sources) == 0 {
		return DefaultSources(), nil
	}

	for i := range file.Sources {
		s := &file.Sources[i]
		if s.Kind == "" {
			s.Kind = "rss"
		}
		if s.ID == "" {
			s.ID = s.URL
		}
		if s.Limit <= 0 {
			s.Limit = 3
		}
	}
	return file.Sources, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// Validate checks the settings the scheduler cannot run without.
func (c *Config) Validate() error {
	if c.PostInterval <= 0 {
		return fmt.Errorf("POST_INTERVAL must be positive")
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return fmt.Errorf("IMAGE_WIDTH and IMAGE_HEIGHT must be positive")
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one news source is required")
	}
	for _, s := range c.Sources {
		if s.URL == "" {
			return fmt.Errorf("source %q has no url", s.ID)
		}
		if s.Kind != "rss" && s.Kind != "spaceflight" {
			return fmt.Errorf("source %q: unknown kind %q", s.ID, s.Kind)
		}
	}

	switch c.Publisher {
	case "facebook":
		if c.FacebookAccessToken == "" {
			return fmt.Errorf("FACEBOOK_ACCESS_TOKEN is required")
		}
		if c.FacebookGroupID == "" {
			return fmt.Errorf("FACEBOOK_GROUP_ID is required")
		}
	case "telegram":
		if c.TelegramToken == "" {
			return fmt.Errorf("TELEGRAM_TOKEN is required")
		}
		if c.TelegramChatID == "" {
			return fmt.Errorf("TELEGRAM_CHAT_ID is required")
		}
	default:
		return fmt.Errorf("PUBLISHER must be 'facebook' or 'telegram'")
	}

	switch c.HistoryBackend {
	case "file", "sqlite", "memory", "none":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres history backend")
		}
	default:
		return fmt.Errorf("HISTORY_BACKEND must be one of file, postgres, sqlite, memory, none")
	}
	return nil
}
