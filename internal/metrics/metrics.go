package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	CyclesStarted          int64
	CyclesSkipped          int64
	PostsPublished         int64
	PublishFailures        int64
	NoNewsCycles           int64
	CompositionFailures    int64
	InternalFailures       int64
	SourceFailures         int64
	DuplicatesFiltered     int64
	AlreadyPosted          int64
	SuccessfulTranslations int64
	FailedTranslations     int64
	FallbackBackgrounds    int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime     time.Time
	LastErrorTime   time.Time
	LastError       string
	LastPostedTitle string
	IsHealthy       bool
}

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

var Global = New()

func (m *Metrics) add(counter *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter++
}

func (m *Metrics) IncrementCyclesStarted() { m.add(&m.CyclesStarted) }
func (m *Metrics) IncrementCyclesSkipped() { m.add(&m.CyclesSkipped) }
func (m *Metrics) IncrementNoNews() { m.add(&m.NoNewsCycles) }
func (m *Metrics) IncrementSourceFailures() { m.add(&m.SourceFailures) }
func (m *Metrics) IncrementAlreadyPosted() { m.add(&m.AlreadyPosted) }
func (m *Metrics) IncrementFallbackBackgrounds() { m.add(&m.FallbackBackgrounds) }
func (m *Metrics) IncrementSuccessfulTranslations() { m.add(&m.SuccessfulTranslations) }
func (m *Metrics) IncrementFailedTranslations() { m.add(&m.FailedTranslations) }

func (m *Metrics) AddDuplicatesFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += int64(n)
}

func (m *Metrics) RecordPublished(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PostsPublished++
	m.LastPostedTitle = title
	m.IsHealthy = true
}

// RecordFailure counts a failed cycle by stage and marks the bot unhealthy.
func (m *Metrics) RecordFailure(stage, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch stage {
	case "publish":
		m.PublishFailures++
	case "composition":
		m.CompositionFailures++
	default:
		m.InternalFailures++
	}
	m.LastError = stage + ": " + reason
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"cycles_started":             m.CyclesStarted,
		"cycles_skipped":             m.CyclesSkipped,
		"posts_published":            m.PostsPublished,
		"publish_failures":           m.PublishFailures,
		"no_news_cycles":             m.NoNewsCycles,
		"composition_failures":       m.CompositionFailures,
		"internal_failures":          m.InternalFailures,
		"source_failures":            m.SourceFailures,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"already_posted":             m.AlreadyPosted,
		"successful_translations":    m.SuccessfulTranslations,
		"failed_translations":        m.FailedTranslations,
		"fallback_backgrounds":       m.FallbackBackgrounds,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"last_posted_title":          m.LastPostedTitle,
		"is_healthy":                 m.IsHealthy,
	}
}
