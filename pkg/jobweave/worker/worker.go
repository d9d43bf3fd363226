// Package worker implements the Scheduler/Worker: it binds registered
// jobs to cron triggers, executes them on fire, tracks in-flight runs,
// and performs bounded graceful shutdown. It generalizes the teacher's
// devclaw/scheduler/scheduler.go — cron.Cron + per-job running-guard
// map + context-bounded Stop() — into a component that works against
// jobweave's own cronexpr.Ticker (for pause/resume and manual
// getNextRun queries) instead of robfig/cron's all-or-nothing
// Start/Stop, and tracks in-flight handles by runId instead of jobId so
// concurrent fires of the same job never collide.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jholhewres/jobweave/pkg/jobweave/cronexpr"
	"github.com/jholhewres/jobweave/pkg/jobweave/engine"
	"github.com/jholhewres/jobweave/pkg/jobweave/eventbus"
	"github.com/jholhewres/jobweave/pkg/jobweave/jerrors"
	"github.com/jholhewres/jobweave/pkg/jobweave/job"
	"github.com/jholhewres/jobweave/pkg/jobweave/registry"
)

// trigger bundles a job's compiled schedule with the goroutine driving it.
type trigger struct {
	cancel   context.CancelFunc
	ticker   *cronexpr.Ticker
	schedule *cronexpr.Schedule
}

// inflight is an in-flight run handle, keyed by runId.
type inflight struct {
	jobID string
	done  chan job.ExecutionResult
}

// ShutdownReport is returned by Shutdown: which in-flight runs settled
// before the deadline, and which were still outstanding when it elapsed.
type ShutdownReport struct {
	Completed  []string
	Interrupted []string
}

// Worker wraps a Registry and Engine with cron-driven lifecycle.
type Worker struct {
	registry        *registry.Registry
	engine          *engine.Engine
	bus             *eventbus.Bus
	logger          *slog.Logger
	defaultTimezone string

	mu           sync.Mutex
	running      bool
	shuttingDown bool
	triggers     map[string]*trigger   // jobID -> trigger
	inflight     map[string]*inflight  // runID -> handle
}

// New creates a Worker. defaultTimezone is used for any job schedule
// that does not specify its own IANA timezone ("" means UTC).
func New(reg *registry.Registry, eng *engine.Engine, bus *eventbus.Bus, logger *slog.Logger, defaultTimezone string) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		registry:        reg,
		engine:          eng,
		bus:             bus,
		logger:          logger,
		defaultTimezone: defaultTimezone,
		triggers:        make(map[string]*trigger),
		inflight:        make(map[string]*inflight),
	}
}

// Add registers rec and arms a cron trigger for it. If a job with the
// same id already exists it is replaced. The trigger is created paused
// unless the Worker is currently running.
func (w *Worker) Add(rec job.Record) error {
	tz := rec.Schedule.Timezone
	if tz == "" {
		tz = w.defaultTimezone
	}
	sched, err := cronexpr.Parse(rec.Schedule.Cron, tz)
	if err != nil {
		return err
	}

	w.registry.Replace(rec)

	w.mu.Lock()
	defer w.mu.Unlock()

	if old, exists := w.triggers[rec.ID]; exists {
		old.cancel()
		delete(w.triggers, rec.ID)
	}

	ticker := cronexpr.NewTicker(sched, !w.running)
	ctx, cancel := context.WithCancel(context.Background())
	w.triggers[rec.ID] = &trigger{cancel: cancel, ticker: ticker, schedule: sched}

	go ticker.Run(ctx, time.Now(), func(scheduledAt time.Time) {
		if rec, ok := w.registry.Get(rec.ID); ok {
			w.ExecuteJob(rec)
		}
	})

	return nil
}

// Remove stops and detaches jobID's trigger and deletes it from the registry.
func (w *Worker) Remove(jobID string) error {
	w.mu.Lock()
	t, exists := w.triggers[jobID]
	if exists {
		t.cancel()
		delete(w.triggers, jobID)
	}
	w.mu.Unlock()

	if !w.registry.Remove(jobID) && !exists {
		return fmt.Errorf("job %q: %w", jobID, jerrors.ErrNotFound)
	}
	return nil
}

// Start resumes every trigger.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = true
	for _, t := range w.triggers {
		t.ticker.Resume()
	}
}

// Stop pauses every trigger without cancelling in-flight runs.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = false
	for _, t := range w.triggers {
		t.ticker.Pause()
	}
}

// ExecuteJob runs rec through the engine, tracking an in-flight handle
// keyed by the run's id. While the Worker is shutting down it returns a
// synthetic failure result immediately without touching the engine.
func (w *Worker) ExecuteJob(rec job.Record) job.ExecutionResult {
	w.mu.Lock()
	if w.shuttingDown {
		w.mu.Unlock()
		return job.ExecutionResult{
			JobID:       rec.ID,
			RunID:       fmt.Sprintf("skipped_%d", time.Now().UnixMilli()),
			Status:      job.StatusFailure,
			StartedAt:   time.Now(),
			CompletedAt: time.Now(),
			Attempt:     0,
			Error:       &job.ExecutionError{Message: jerrors.ErrShuttingDown.Error()},
		}
	}

	runID := job.NewRunID()
	handle := &inflight{jobID: rec.ID, done: make(chan job.ExecutionResult, 1)}
	w.inflight[runID] = handle
	w.mu.Unlock()

	result := w.engine.Run(rec, runID, time.Now())

	w.mu.Lock()
	delete(w.inflight, runID)
	w.mu.Unlock()
	handle.done <- result

	return result
}

// Trigger manually fires jobID, taking the same path as a cron fire.
// Unlike ExecuteJob's internal callers, Trigger surfaces "not found" to
// the caller.
func (w *Worker) Trigger(jobID string) (job.ExecutionResult, error) {
	rec, ok := w.registry.Get(jobID)
	if !ok {
		return job.ExecutionResult{}, fmt.Errorf("job %q: %w", jobID, jerrors.ErrNotFound)
	}
	return w.ExecuteJob(rec), nil
}

// GetNextRun delegates to the cron evaluator for jobID's schedule.
func (w *Worker) GetNextRun(jobID string) (time.Time, error) {
	w.mu.Lock()
	t, exists := w.triggers[jobID]
	w.mu.Unlock()
	if !exists {
		return time.Time{}, fmt.Errorf("job %q: %w", jobID, jerrors.ErrNotFound)
	}
	return t.schedule.Next(time.Now()), nil
}

// Shutdown sets shuttingDown, stops every trigger (no new fires), and
// waits for in-flight handles up to timeout. Runs that settle before
// the deadline are reported as Completed; anything still outstanding
// when the deadline elapses is Interrupted. shuttingDown is cleared
// before Shutdown returns.
func (w *Worker) Shutdown(timeout time.Duration) ShutdownReport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	w.mu.Lock()
	w.shuttingDown = true
	for _, t := range w.triggers {
		t.cancel()
	}
	w.running = false
	pending := make(map[string]*inflight, len(w.inflight))
	for id, h := range w.inflight {
		pending[id] = h
	}
	w.mu.Unlock()

	report := ShutdownReport{}
	deadline := time.After(timeout)

	remaining := make(map[string]*inflight, len(pending))
	for id, h := range pending {
		remaining[id] = h
	}

	for len(remaining) > 0 {
		settledThisRound := false
		for id, h := range remaining {
			select {
			case <-h.done:
				report.Completed = append(report.Completed, id)
				delete(remaining, id)
				settledThisRound = true
			default:
			}
		}
		if len(remaining) == 0 {
			break
		}
		select {
		case <-deadline:
			for id := range remaining {
				report.Interrupted = append(report.Interrupted, id)
			}
			remaining = nil
		default:
			if !settledThisRound {
				time.Sleep(10 * time.Millisecond)
			}
		}
	}

	w.mu.Lock()
	w.shuttingDown = false
	w.mu.Unlock()

	return report
}
