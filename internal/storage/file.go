package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileStore keeps the history in memory and mirrors it to a JSON file after
// every Add. An empty path keeps it in memory only.
type FileStore struct {
	filePath string
	limit    int
	ttl      time.Duration
	items    map[string]Record
	mu       sync.RWMutex
	now      func() time.Time
}

// NewFileStore loads existing records from path, dropping expired ones.
func NewFileStore(path string, limit int, ttl time.Duration) (*FileStore, error) {
	fs := &FileStore{
		filePath: path,
		limit:    limit,
		ttl:      ttl,
		items:    make(map[string]Record),
		now:      time.Now,
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) load() error {
	if fs.filePath == "" {
		return nil
	}

	data, err := os.ReadFile(fs.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read history file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, r := range records {
		if r.Key != "" {
			fs.items[r.Key] = r
		}
	}
	fs.pruneLocked()
	return nil
}

func (fs *FileStore) Contains(ctx context.Context, key string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	r, ok := fs.items[key]
	if !ok {
		return false, nil
	}
	return !fs.expired(r), nil
}

// Add records rec (PostedAt defaults to now) and persists the file.
func (fs *FileStore) Add(ctx context.Context, rec Record) error {
	if rec.Key == "" {
		return fmt.Errorf("history record without key")
	}
	if rec.PostedAt.IsZero() {
		rec.PostedAt = fs.now()
	}

	fs.mu.Lock()
	fs.items[rec.Key] = rec
	fs.pruneLocked()
	records := fs.sortedLocked()
	fs.mu.Unlock()

	return fs.save(records)
}

// Recent returns up to limit records, newest first.
func (fs *FileStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	fs.mu.RLock()
	records := fs.sortedLocked()
	fs.mu.RUnlock()

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (fs *FileStore) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.items)
}

func (fs *FileStore) Close() error { return nil }

// save writes through a temp file so a crash never leaves half a JSON document.
func (fs *FileStore) save(records []Record) error {
	if fs.filePath == "" {
		return nil
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(fs.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.filePath); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

func (fs *FileStore) expired(r Record) bool {
	return fs.ttl > 0 && r.PostedAt.Before(fs.now().Add(-fs.ttl))
}

// pruneLocked drops expired records and everything beyond the newest limit.
func (fs *FileStore) pruneLocked() {
	for k, r := range fs.items {
		if fs.expired(r) {
			delete(fs.items, k)
		}
	}
	if fs.limit <= 0 || len(fs.items) <= fs.limit {
		return
	}
	for _, r := range fs.sortedLocked()[fs.limit:] {
		delete(fs.items, r.Key)
	}
}

func (fs *FileStore) sortedLocked() []Record {
	records := make([]Record, 0, len(fs.items))
	for _, r := range fs.items {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].PostedAt.Equal(records[j].PostedAt) {
			return records[i].PostedAt.After(records[j].PostedAt)
		}
		return records[i].Key < records[j].Key
	})
	return records
}
