// Package engine implements the Execution Engine: run a single job
// through attempt-with-timeout, retry-with-backoff, event emission,
// and success/failure callbacks, producing an ExecutionResult. The
// attempt/timeout race is grounded on the teacher's
// context.WithTimeout(s.ctx, timeout) pattern in
// devclaw/scheduler/scheduler.go's executeJob, generalized into an
// explicit retry state machine with an event bus instead of a single
// best-effort fire-and-log call.
package engine

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/jholhewres/jobweave/pkg/jobweave/eventbus"
	"github.com/jholhewres/jobweave/pkg/jobweave/jerrors"
	"github.com/jholhewres/jobweave/pkg/jobweave/job"
	"github.com/jholhewres/jobweave/pkg/jobweave/schedule"
)

// Engine runs jobs and reports their lifecycle through an event bus.
type Engine struct {
	bus    *eventbus.Bus
	logger *slog.Logger
}

// New creates an Engine. bus may be nil (events are simply not
// emitted); logger defaults to slog.Default() when nil.
func New(bus *eventbus.Bus, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{bus: bus, logger: logger}
}

// Run executes rec to completion: one or more sequential attempts,
// bounded by rec.Config's retry policy, each racing a per-attempt
// timeout. Attempts never run concurrently. Run never returns an error
// itself — every outcome is reified into the returned ExecutionResult
// and the event stream, per §7's propagation rule.
//
// runID is supplied by the caller (rather than generated internally)
// so that a Scheduler/Worker can register an in-flight handle keyed by
// the same id before the run's first event is observable.
func (e *Engine) Run(rec job.Record, runID string, scheduledAt time.Time) job.ExecutionResult {
	startedAt := time.Now()
	name := rec.EffectiveName()

	e.emit(job.ExecutionEvent{
		Type: job.EventStart, JobID: rec.ID, RunID: runID,
		Timestamp: startedAt, Attempt: 1,
	})

	timeout, err := rec.Config.EffectiveTimeout()
	if err != nil {
		// A previously-validated Config should never fail here; if it
		// does, fail the run immediately rather than attempt a handler
		// call with an undefined timeout.
		return e.abort(rec, runID, startedAt, err)
	}
	retry := rec.Config.EffectiveRetry()
	initialDelay := mustDuration(retry.InitialDelay)

	attempt := 1
	for {
		jctx := job.Context{
			JobID: rec.ID, JobName: name, RunID: runID,
			ScheduledAt: scheduledAt, StartedAt: time.Now(), Attempt: attempt,
		}

		attemptErr := e.runAttempt(rec.Handler, &jctx, timeout)
		if attemptErr == nil {
			return e.succeed(rec, runID, startedAt, attempt, jctx)
		}

		isTimeout := jerrors.IsTimeout(attemptErr)
		if attempt < retry.Attempts {
			e.emit(job.ExecutionEvent{
				Type: job.EventRetry, JobID: rec.ID, RunID: runID,
				Timestamp: time.Now(), Attempt: attempt,
			})
			time.Sleep(retryDelay(attempt, retry, initialDelay))
			attempt++
			continue
		}

		return e.fail(rec, runID, startedAt, attempt, isTimeout, attemptErr, jctx)
	}
}

// runAttempt races handler(ctx) against a timer set to timeout. The
// per-attempt context is cancelled the moment the timer wins, giving a
// handler that honors it a chance to shorten its cleanup; the engine
// does not wait for it beyond that.
func (e *Engine) runAttempt(handler job.Handler, jctx *job.Context, timeout time.Duration) error {
	attemptCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	jctx.Signal = attemptCtx

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- jerrors.NewHandlerError(r, string(debug.Stack()))
			}
		}()
		done <- handler(*jctx)
	}()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		if _, ok := err.(*jerrors.HandlerError); ok {
			return err
		}
		return jerrors.NewHandlerError(err, "")
	case <-attemptCtx.Done():
		return &jerrors.TimeoutError{Timeout: timeout}
	}
}

func (e *Engine) succeed(rec job.Record, runID string, startedAt time.Time, attempt int, jctx job.Context) job.ExecutionResult {
	completedAt := time.Now()
	result := job.ExecutionResult{
		JobID: rec.ID, RunID: runID, Status: job.StatusSuccess,
		StartedAt: startedAt, CompletedAt: completedAt,
		Duration: completedAt.Sub(startedAt), Attempt: attempt,
	}
	e.emit(job.ExecutionEvent{
		Type: job.EventSuccess, JobID: rec.ID, RunID: runID,
		Timestamp: completedAt, Attempt: attempt, Duration: result.Duration,
	})
	if rec.Config.OnSuccess != nil {
		e.runCallback("onSuccess", func() error { return rec.Config.OnSuccess(jctx) })
	}
	return result
}

func (e *Engine) fail(rec job.Record, runID string, startedAt time.Time, attempt int, isTimeout bool, cause error, jctx job.Context) job.ExecutionResult {
	completedAt := time.Now()
	status := job.StatusFailure
	evType := job.EventFailure
	if isTimeout {
		status = job.StatusTimeout
		evType = job.EventTimeout
	}

	execErr := &job.ExecutionError{Message: cause.Error()}
	if he, ok := cause.(*jerrors.HandlerError); ok {
		execErr.Stack = he.Stack
	}

	result := job.ExecutionResult{
		JobID: rec.ID, RunID: runID, Status: status,
		StartedAt: startedAt, CompletedAt: completedAt,
		Duration: completedAt.Sub(startedAt), Attempt: attempt, Error: execErr,
	}
	e.emit(job.ExecutionEvent{
		Type: evType, JobID: rec.ID, RunID: runID,
		Timestamp: completedAt, Attempt: attempt, Duration: result.Duration, Error: execErr,
	})
	if rec.Config.OnFailure != nil {
		e.runCallback("onFailure", func() error { return rec.Config.OnFailure(cause, jctx) })
	}
	return result
}

// abort produces a terminal failure result without ever invoking the
// handler — used only when the job's own config can't be resolved.
func (e *Engine) abort(rec job.Record, runID string, startedAt time.Time, cause error) job.ExecutionResult {
	completedAt := time.Now()
	execErr := &job.ExecutionError{Message: cause.Error()}
	result := job.ExecutionResult{
		JobID: rec.ID, RunID: runID, Status: job.StatusFailure,
		StartedAt: startedAt, CompletedAt: completedAt,
		Duration: completedAt.Sub(startedAt), Attempt: 0, Error: execErr,
	}
	e.emit(job.ExecutionEvent{
		Type: job.EventFailure, JobID: rec.ID, RunID: runID,
		Timestamp: completedAt, Attempt: 0, Error: execErr,
	})
	return result
}

// runCallback invokes an onSuccess/onFailure callback, swallowing both
// panics and returned errors: callback failures never change the
// result or the emitted events (§4.3).
func (e *Engine) runCallback(phase string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("job callback panicked", "phase", phase, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		e.logger.Warn("job callback returned error", "phase", phase, "error", err)
	}
}

func (e *Engine) emit(event job.ExecutionEvent) {
	if e.bus != nil {
		e.bus.Emit(event)
	}
}

// retryDelay implements §4.3: linear → d0*attempt, exponential → d0*2^(attempt-1).
func retryDelay(attempt int, cfg job.RetryConfig, initialDelay time.Duration) time.Duration {
	if cfg.Backoff == job.BackoffExponential {
		return initialDelay * time.Duration(1<<uint(attempt-1))
	}
	return initialDelay * time.Duration(attempt)
}

// mustDuration parses a retry.initialDelay normalized by
// RetryConfig.Normalized(), which fills an empty value with "1s" but
// leaves an explicit value as given; an unparseable value falls back
// to one second here.
func mustDuration(s string) time.Duration {
	ms, err := schedule.ParseDurationMillis(s)
	if err != nil {
		return time.Second
	}
	return time.Duration(ms) * time.Millisecond
}
