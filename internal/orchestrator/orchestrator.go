// Package orchestrator runs every source concurrently against the
// catalog, bounded by a worker budget, and survives individual source
// failures: one crashing source never aborts its siblings.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pricegrid/internal/catalog"
	"pricegrid/internal/config"
	"pricegrid/internal/sites"
	"pricegrid/internal/source"
	"pricegrid/internal/store"
)

// Status is the run state machine. There is no failed terminal state:
// a run that loses sources still completes with whatever succeeded.
type Status string

const (
	StatusPending               Status = "pending"
	StatusRunning               Status = "running"
	StatusCompleted             Status = "completed"
	StatusCompletedWithFailures Status = "completed_with_failures"
)

// MissingPrice is one structured audit event: a row had a usable link
// but no price came back. Operational follow-up, never control flow.
type MissingPrice struct {
	Source string
	URL    string
}

// SourceOutcome records how one source fared at the orchestration
// boundary. Err is set only for boundary failures (panic, artifact
// write); row-level extraction failures live in the stats.
type SourceOutcome struct {
	Source   string
	Stats    source.Stats
	Duration time.Duration
	Err      error
}

// RunResult is everything a run produced.
type RunResult struct {
	ID           string
	Status       Status
	Outcomes     []SourceOutcome
	Missing      []MissingPrice
	CombinedPath string
	Dir          string
}

// BuildRunners assembles runners from the source registry, applying
// per-source configuration overrides. only filters to a single source
// identity when non-empty.
func BuildRunners(cfg *config.Config, env sites.Env, only string) ([]*source.Runner, error) {
	var runners []*source.Runner
	for _, entry := range sites.All() {
		// Source identities are case-insensitive, matching the registry.
		if only != "" && !strings.EqualFold(entry.Name, only) {
			continue
		}
		pattern := entry.Pattern
		if sc, ok := cfg.SourceOverride(entry.Name); ok {
			if sc.Disabled {
				continue
			}
			if sc.Pattern != "" {
				pattern = sc.Pattern
			}
		}
		ex, err := entry.New(env)
		if err != nil {
			return nil, fmt.Errorf("build source %s: %w", entry.Name, err)
		}
		r, err := source.NewRunner(entry.Name, pattern, ex, cfg.SourceDelay(entry.Name))
		if err != nil {
			return nil, err
		}
		runners = append(runners, r)
	}
	if only != "" && len(runners) == 0 {
		return nil, fmt.Errorf("unknown source %q", only)
	}
	return runners, nil
}

// Orchestrator coordinates one run.
type Orchestrator struct {
	workers int
	sink    *store.Sink
	log     *logrus.Logger
}

// New builds an orchestrator writing artifacts through sink, running at
// most workers sources at once.
func New(sink *store.Sink, workers int, log *logrus.Logger) *Orchestrator {
	if workers <= 0 {
		workers = 8
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{workers: workers, sink: sink, log: log}
}

// Run executes every runner against the catalog rows. Each source's
// artifact is persisted as that source completes; the combined artifact
// is derived at the end from whatever is on disk. Cancelling ctx stops
// new row processing in every runner promptly.
func (o *Orchestrator) Run(ctx context.Context, rows []catalog.Row, runners []*source.Runner) *RunResult {
	runTime := time.Now()
	res := &RunResult{
		ID:     uuid.NewString(),
		Status: StatusPending,
		Dir:    o.sink.Dir(),
	}

	res.Status = StatusRunning
	o.log.WithFields(logrus.Fields{
		"run":     res.ID,
		"sources": len(runners),
		"rows":    len(rows),
		"workers": o.workers,
	}).Info("run started")

	sem := make(chan struct{}, o.workers)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
	)

	for _, r := range runners {
		wg.Add(1)
		go func(r *source.Runner) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			outcome, missing := o.runSource(ctx, r, rows)

			mu.Lock()
			res.Outcomes = append(res.Outcomes, outcome)
			res.Missing = append(res.Missing, missing...)
			if outcome.Err != nil {
				failures++
			}
			mu.Unlock()
		}(r)
	}
	wg.Wait()

	combined, err := o.sink.Combine(runTime)
	if err != nil {
		o.log.WithError(err).Error("combine failed")
		failures++
	} else {
		res.CombinedPath = combined
	}

	if failures > 0 {
		res.Status = StatusCompletedWithFailures
	} else {
		res.Status = StatusCompleted
	}

	o.log.WithFields(logrus.Fields{
		"run":            res.ID,
		"status":         res.Status,
		"missing_prices": len(res.Missing),
	}).Info("run finished")

	return res
}

// runSource executes one runner with panic containment. A panicking
// source is logged and treated as having produced zero rows.
func (o *Orchestrator) runSource(ctx context.Context, r *source.Runner, rows []catalog.Row) (outcome SourceOutcome, missing []MissingPrice) {
	outcome.Source = r.Name()
	log := o.log.WithField("source", r.Name())

	defer func() {
		if err := r.Close(); err != nil {
			log.WithError(err).Warn("closing source")
		}
		if p := recover(); p != nil {
			outcome.Err = fmt.Errorf("source %s panicked: %v", r.Name(), p)
			log.WithField("panic", p).Error("source crashed; continuing without it")
		}
	}()

	result := r.Run(ctx, rows)
	outcome.Stats = result.Stats
	outcome.Duration = result.Duration

	if err := o.sink.WriteSource(result); err != nil {
		outcome.Err = err
		log.WithError(err).Error("writing source artifact")
		return outcome, nil
	}

	for _, rr := range result.Rows {
		if rr.NoLink || rr.RawPrice != "" {
			continue
		}
		ev := MissingPrice{Source: r.Name(), URL: rr.Row.ProductLink}
		missing = append(missing, ev)
		fields := logrus.Fields{"source": ev.Source, "url": ev.URL}
		if rr.Err != nil {
			fields["reason"] = rr.Err.Error()
		}
		log.WithFields(fields).Warn("missing price")
	}

	log.WithFields(logrus.Fields{
		"total":     result.Stats.Total,
		"links":     result.Stats.ValidLinks,
		"extracted": result.Stats.Extracted,
		"duration":  result.Duration.Round(time.Millisecond).String(),
	}).Info("source finished")

	return outcome, missing
}
