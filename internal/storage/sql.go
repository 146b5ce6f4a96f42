package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const historyTable = "posted_news"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS posted_news (
		title_key VARCHAR(64) PRIMARY KEY,
		title TEXT NOT NULL,
		link TEXT NOT NULL DEFAULT '',
		source_id VARCHAR(100) NOT NULL DEFAULT '',
		posted_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posted_news_posted_at ON posted_news(posted_at)`,
}

// SQLStore keeps the history in PostgreSQL or SQLite. Timestamps are stored as
// unix milliseconds so both dialects share the same statements.
type SQLStore struct {
	db    *sql.DB
	sb    sq.StatementBuilderType
	limit int
	ttl   time.Duration
	now   func() time.Time
}

// OpenPostgres connects with lib/pq and creates the schema.
func OpenPostgres(ctx context.Context, dsn string, limit int, ttl time.Duration) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newSQLStore(ctx, db, sq.Dollar, limit, ttl)
}

// OpenSQLite opens (or creates) a database file with the pure-Go driver.
func OpenSQLite(ctx context.Context, path string, limit int, ttl time.Duration) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, sq.Question, limit, ttl)
}

func newSQLStore(ctx context.Context, db *sql.DB, ph sq.PlaceholderFormat, limit int, ttl time.Duration) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &SQLStore{
		db:    db,
		sb:    sq.StatementBuilder.PlaceholderFormat(ph),
		limit: limit,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

func (s *SQLStore) Contains(ctx context.Context, key string) (bool, error) {
	q := s.sb.Select("COUNT(*)").From(historyTable).Where(sq.Eq{"title_key": key})
	if s.ttl > 0 {
		q = q.Where(sq.Gt{"posted_at": s.cutoff()})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check history: %w", err)
	}
	return count > 0, nil
}

// Add upserts rec and trims the table to the TTL and size bound.
func (s *SQLStore) Add(ctx context.Context, rec Record) error {
	if rec.Key == "" {
		return fmt.Errorf("history record without key")
	}
	if rec.PostedAt.IsZero() {
		rec.PostedAt = s.now()
	}

	query, args, err := s.sb.Insert(historyTable).
		Columns("title_key", "title", "link", "source_id", "posted_at").
		Values(rec.Key, rec.Title, rec.Link, rec.SourceID, rec.PostedAt.UnixMilli()).
		Suffix("ON CONFLICT (title_key) DO UPDATE SET posted_at = excluded.posted_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record posted item: %w", err)
	}

	return s.prune(ctx)
}

func (s *SQLStore) prune(ctx context.Context) error {
	var stmts []sq.Sqlizer
	if s.ttl > 0 {
		stmts = append(stmts, s.sb.Delete(historyTable).Where(sq.Lt{"posted_at": s.cutoff()}))
	}
	if s.limit > 0 {
		stmts = append(stmts, s.sb.Delete(historyTable).Where(sq.Expr(
			"title_key NOT IN (SELECT title_key FROM "+historyTable+" ORDER BY posted_at DESC, title_key LIMIT ?)", s.limit)))
	}

	for _, stmt := range stmts {
		query, args, err := stmt.ToSql()
		if err != nil {
			return fmt.Errorf("build cleanup: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to cleanup history: %w", err)
		}
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	query, args, err := s.sb.Select("title_key", "title", "link", "source_id", "posted_at").
		From(historyTable).
		OrderBy("posted_at DESC", "title_key").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r  Record
			ms int64
		)
		if err := rows.Scan(&r.Key, &r.Title, &r.Link, &r.SourceID, &ms); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		r.PostedAt = time.UnixMilli(ms)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) cutoff() int64 {
	return s.now().Add(-s.ttl).UnixMilli()
}
