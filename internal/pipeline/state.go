package pipeline

import (
	"sync"
	"time"

	"github.com/deusflow/cosmosbot/internal/news"
	"github.com/deusflow/cosmosbot/internal/theme"
)

// State is where the orchestrator is within a cycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateSelecting
	StateComposing
	StatePublishing
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateSelecting:
		return "selecting"
	case StateComposing:
		return "composing"
	case StatePublishing:
		return "publishing"
	default:
		return "idle"
	}
}

// Stage names how a cycle ended. StageNone means the post went out.
type Stage int

const (
	StageNone Stage = iota
	StageNoNews
	StageComposition
	StagePublish
	StageInternal
)

func (s Stage) String() string {
	switch s {
	case StageNoNews:
		return "no_news"
	case StageComposition:
		return "composition"
	case StagePublish:
		return "publish"
	case StageInternal:
		return "internal"
	default:
		return "none"
	}
}

// CycleResult describes one orchestration attempt. It lives only as long as
// the logs and metrics that report it.
type CycleResult struct {
	ID             string
	Item           *news.Item
	Theme          theme.Key
	Background     string
	ImageProduced  bool
	Published      bool
	Stage          Stage
	Reason         string
	SourceFailures int
	Candidates     int
	AlreadyPosted  int
	StartedAt      time.Time
	Duration       time.Duration
}

// runState is the "cycle in progress" flag plus the current state.
type runState struct {
	mu      sync.Mutex
	running bool
	state   State
}

// begin sets the flag; false means a cycle is already running.
func (r *runState) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *runState) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.state = StateIdle
}

func (r *runState) set(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

func (r *runState) snapshot() (bool, State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running, r.state
}
