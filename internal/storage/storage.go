// Package storage remembers which headlines were already posted, so a restart
// or an unchanged feed does not publish the same story twice.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown history backend")

// Record is one published item. Key is news.TitleKey of the title.
type Record struct {
	Key      string    `json:"key"`
	Title    string    `json:"title"`
	Link     string    `json:"link"`
	SourceID string    `json:"source_id"`
	PostedAt time.Time `json:"posted_at"`
}

// History is the posted-title store used by the pipeline.
type History interface {
	Contains(ctx context.Context, key string) (bool, error)
	Add(ctx context.Context, rec Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Config selects and sizes a history backend.
type Config struct {
	Backend     string // file, sqlite, postgres or memory
	Path        string // file and sqlite; empty means the XDG state dir
	DatabaseURL string // postgres
	Limit       int    // records kept, newest first
	TTL         time.Duration
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg Config) (History, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "file":
		path, err := statePath(cfg.Path, "history.json")
		if err != nil {
			return nil, err
		}
		return NewFileStore(path, cfg.Limit, cfg.TTL)
	case "memory":
		return NewFileStore("", cfg.Limit, cfg.TTL)
	case "sqlite":
		path, err := statePath(cfg.Path, "history.db")
		if err != nil {
			return nil, err
		}
		return OpenSQLite(ctx, path, cfg.Limit, cfg.TTL)
	case "postgres", "postgresql":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("postgres history requires DATABASE_URL")
		}
		return OpenPostgres(ctx, cfg.DatabaseURL, cfg.Limit, cfg.TTL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// statePath returns path, or a file under $XDG_STATE_HOME/cosmosbot when empty.
func statePath(path, name string) (string, error) {
	if path != "" {
		return path, nil
	}
	p, err := xdg.StateFile("cosmosbot/" + name)
	if err != nil {
		return "", fmt.Errorf("resolve state dir: %w", err)
	}
	return p, nil
}
