// Package pipeline runs the posting cycle: fetch, pick one unseen item,
// render its image and publish it, at most one cycle at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/cosmosbot/internal/metrics"
	"github.com/deusflow/cosmosbot/internal/news"
	"github.com/deusflow/cosmosbot/internal/render"
	"github.com/deusflow/cosmosbot/internal/sources"
	"github.com/deusflow/cosmosbot/internal/storage"
	"github.com/deusflow/cosmosbot/internal/theme"
)

type Composer interface {
	Compose(ctx context.Context, item news.Item, key theme.Key) (*render.ComposedImage, error)
	OverlayText(img *render.ComposedImage, title, subtitle string) *render.ComposedImage
	Save(img *render.ComposedImage, path string) error
}

type Publisher interface {
	Publish(ctx context.Context, message, imagePath string) bool
}

type Translator interface {
	Translate(ctx context.Context, text, locale string) string
}

type History interface {
	Contains(ctx context.Context, key string) (bool, error)
	Add(ctx context.Context, rec storage.Record) error
}

// Deps are the collaborators of a cycle. Translator and History are optional.
type Deps struct {
	Sources    []news.Source
	Resolver   *theme.Resolver
	Composer   Composer
	Publisher  Publisher
	Translator Translator
	History    History
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

type Options struct {
	Interval         time.Duration
	RunOnStart       bool
	FetchConcurrency int
	TargetLocale     string
	ImagePath        string // transient file handed to the publisher
	Post             news.PostOptions
}

// Orchestrator owns its run state, so several instances never interfere.
type Orchestrator struct {
	deps Deps
	opts Options
	run  runState
	now  func() time.Time
}

func New(deps Deps, opts Options) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Resolver == nil {
		deps.Resolver = theme.NewResolver(nil)
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 4
	}
	if opts.ImagePath == "" {
		opts.ImagePath = filepath.Join(os.TempDir(), "cosmosbot_post.jpg")
	}
	return &Orchestrator{deps: deps, opts: opts, now: time.Now}
}

// State reports the current state of the cycle, StateIdle between cycles.
func (o *Orchestrator) State() State {
	_, s := o.run.snapshot()
	return s
}

// Running reports whether a cycle is in progress.
func (o *Orchestrator) Running() bool {
	r, _ := o.run.snapshot()
	return r
}

// Run triggers a cycle on every tick until ctx is cancelled. Ticks that arrive
// while a cycle is running are dropped. Run returns once the in-flight cycle
// has finished.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.opts.Interval <= 0 {
		return errors.New("post interval must be positive")
	}

	var wg sync.WaitGroup
	dispatch := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.TryRunCycle(ctx)
		}()
	}

	o.deps.Logger.Info("scheduler started", "interval", o.opts.Interval, "run_on_start", o.opts.RunOnStart)
	if o.opts.RunOnStart {
		dispatch()
	}

	ticker := time.NewTicker(o.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.deps.Logger.Info("scheduler stopping, waiting for running cycle")
			wg.Wait()
			return nil
		case <-ticker.C:
			dispatch()
		}
	}
}

// TryRunCycle runs one cycle unless another one is in progress, in which case
// it returns false immediately. Every outcome, a panic included, ends with the
// run flag cleared.
func (o *Orchestrator) TryRunCycle(ctx context.Context) (res CycleResult, ran bool) {
	if !o.run.begin() {
		o.deps.Metrics.IncrementCyclesSkipped()
		o.deps.Logger.Info("cycle already running, tick skipped")
		return CycleResult{}, false
	}
	defer o.run.end()

	ran = true
	res = CycleResult{ID: uuid.NewString(), StartedAt: o.now()}
	o.deps.Metrics.IncrementCyclesStarted()

	defer func() {
		if p := recover(); p != nil {
			res.Stage = StageInternal
			res.Reason = fmt.Sprintf("panic: %v", p)
			res.Published = false
			o.deps.Logger.Error("cycle panicked", "cycle", res.ID, "panic", p, "stack", string(debug.Stack()))
		}
		res.Duration = o.now().Sub(res.StartedAt)
		o.report(res)
	}()

	o.cycle(ctx, &res)
	return res, ran
}

func (o *Orchestrator) cycle(ctx context.Context, res *CycleResult) {
	log := o.deps.Logger.With("cycle", res.ID)
	log.Info("starting news posting cycle")

	o.run.set(StateFetching)
	results := sources.FetchAll(ctx, o.deps.Sources, o.opts.FetchConcurrency, log)
	for _, r := range results {
		if r.Err != nil {
			res.SourceFailures++
			o.deps.Metrics.IncrementSourceFailures()
		}
	}
	items := news.Aggregate(results)
	o.deps.Metrics.AddDuplicatesFiltered(news.Duplicates(results, items))
	res.Candidates = len(items)

	o.run.set(StateSelecting)
	item, ok := o.selectItem(ctx, items, res, log)
	if !ok {
		res.Stage = StageNoNews
		res.Reason = "no unseen news"
		return
	}
	res.Item = &item
	res.Theme = o.deps.Resolver.Resolve(item.Title)
	// history is keyed by the title as fetched, before translation
	key := news.TitleKey(item.Title)

	if item.NeedsTranslation && o.deps.Translator != nil && o.opts.TargetLocale != "" {
		item.Title = o.deps.Translator.Translate(ctx, item.Title, o.opts.TargetLocale)
		if item.Description != "" {
			item.Description = o.deps.Translator.Translate(ctx, item.Description, o.opts.TargetLocale)
		}
		res.Item = &item
	}
	log.Info("processing news", "title", item.Title, "source", item.SourceID, "theme", res.Theme.String())

	o.run.set(StateComposing)
	img, err := o.deps.Composer.Compose(ctx, item, res.Theme)
	if err != nil {
		res.Stage = StageComposition
		res.Reason = err.Error()
		return
	}
	res.ImageProduced = true
	res.Background = img.Background.String()
	if img.Background == render.BackgroundStarfield {
		o.deps.Metrics.IncrementFallbackBackgrounds()
	}
	o.deps.Composer.OverlayText(img, item.Title, item.Attribution())

	imagePath := o.opts.ImagePath
	if err := o.deps.Composer.Save(img, imagePath); err != nil {
		log.Warn("image not saved, posting text only", "error", err)
		imagePath = ""
	} else {
		defer os.Remove(imagePath)
	}

	o.run.set(StatePublishing)
	message := news.FormatPost(item, o.opts.Post)
	if !o.deps.Publisher.Publish(ctx, message, imagePath) {
		res.Stage = StagePublish
		res.Reason = "publisher reported failure"
		return
	}
	res.Published = true

	if o.deps.History != nil {
		rec := storage.Record{
			Key:      key,
			Title:    item.Title,
			Link:     item.Link,
			SourceID: item.SourceID,
			PostedAt: o.now(),
		}
		if err := o.deps.History.Add(ctx, rec); err != nil {
			log.Warn("failed to record posted item", "error", err)
		}
	}
}

// selectItem returns the first item not present in the history. History
// errors are logged and treated as "not seen".
func (o *Orchestrator) selectItem(ctx context.Context, items []news.Item, res *CycleResult, log *slog.Logger) (news.Item, bool) {
	for _, it := range items {
		if o.deps.History == nil {
			return it, true
		}
		seen, err := o.deps.History.Contains(ctx, news.TitleKey(it.Title))
		if err != nil {
			log.Warn("history lookup failed", "error", err)
			return it, true
		}
		if !seen {
			return it, true
		}
		res.AlreadyPosted++
		o.deps.Metrics.IncrementAlreadyPosted()
	}
	return news.Item{}, false
}

func (o *Orchestrator) report(res CycleResult) {
	m := o.deps.Metrics
	m.RecordProcessingTime(res.Duration)
	m.SetLastRun()

	log := o.deps.Logger.With(
		"cycle", res.ID,
		"duration", res.Duration,
		"candidates", res.Candidates,
		"source_failures", res.SourceFailures,
	)

	switch res.Stage {
	case StageNone:
		m.RecordPublished(res.Item.Title)
		log.Info("news posted successfully", "title", res.Item.Title, "background", res.Background)
	case StageNoNews:
		m.IncrementNoNews()
		log.Warn("no news found", "already_posted", res.AlreadyPosted)
	default:
		m.RecordFailure(res.Stage.String(), res.Reason)
		log.Error("cycle failed", "stage", res.Stage.String(), "reason", res.Reason)
	}
}
