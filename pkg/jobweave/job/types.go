// Package job holds the data model shared by every jobweave component:
// the immutable job configuration a user declares, the per-attempt
// context handed to handlers and callbacks, and the results/events the
// execution engine produces. It mirrors the Job struct the teacher
// keeps alongside its scheduler (devclaw/scheduler/scheduler.go) but
// splits "what the user declared" from "what happened on a run",
// matching the Registry/Engine split in the design.
package job

import (
	"context"
	"time"

	"github.com/jholhewres/jobweave/pkg/jobweave/schedule"
)

// Backoff selects the retry delay growth strategy.
type Backoff string

const (
	BackoffLinear      Backoff = "linear"
	BackoffExponential Backoff = "exponential"
)

// RetryConfig controls how many attempts a run gets and how long it
// waits between them.
type RetryConfig struct {
	// Attempts is the total number of attempts, not the number of
	// retries. A value of 1 (the default) means no retry.
	Attempts int
	Backoff  Backoff
	// InitialDelay is a Go-style duration string, default "1s".
	InitialDelay string
}

// Normalized returns a copy of cfg with every zero-value field filled
// in per §4.3's defaults: attempts=1, backoff=linear, initialDelay="1s".
func (cfg RetryConfig) Normalized() RetryConfig {
	out := cfg
	if out.Attempts < 1 {
		out.Attempts = 1
	}
	if out.Backoff == "" {
		out.Backoff = BackoffLinear
	}
	if out.InitialDelay == "" {
		out.InitialDelay = "1s"
	}
	return out
}

// SuccessCallback runs after a job completes successfully. Its error
// return is logged but never changes the run's outcome.
type SuccessCallback func(ctx Context) error

// FailureCallback runs after a job's attempts are exhausted. Its error
// return is logged but never changes the run's outcome.
type FailureCallback func(err error, ctx Context) error

// Config is the user-declared configuration attached to a job.
type Config struct {
	// Name is a human label; defaults to the job id when empty.
	Name string
	// Retry controls attempts/backoff; nil means RetryConfig{}.Normalized().
	Retry *RetryConfig
	// Timeout is a Go-style duration string for a single attempt;
	// "" defaults to 5 minutes.
	Timeout string

	OnSuccess SuccessCallback
	OnFailure FailureCallback
}

// EffectiveTimeout returns the parsed per-attempt timeout, defaulting
// to 5 minutes when Config.Timeout is empty.
func (c Config) EffectiveTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 5 * time.Minute, nil
	}
	ms, err := schedule.ParseDurationMillis(c.Timeout)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// EffectiveRetry returns the normalized retry configuration, defaulting
// to a single attempt with linear backoff when Config.Retry is nil.
func (c Config) EffectiveRetry() RetryConfig {
	if c.Retry == nil {
		return RetryConfig{}.Normalized()
	}
	return c.Retry.Normalized()
}

// Handler is the callable a job fires into. It receives the per-attempt
// Context and returns an error on failure (nil on success). A handler
// that wants to honor cancellation should select on ctx.Signal.Done().
type Handler func(ctx Context) error

// Record is a fully-declared job: its schedule, its config, and the
// handler that runs when it fires. The Registry owns Records
// exclusively; every other component holds the id only.
type Record struct {
	ID       string
	Name     string
	Schedule schedule.Descriptor
	Config   Config
	Handler  Handler
	FilePath string
}

// EffectiveName returns Record.Name, falling back to Config.Name and
// then to the job id.
func (r Record) EffectiveName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.Config.Name != "" {
		return r.Config.Name
	}
	return r.ID
}

// Context is created fresh for every attempt and passed to the handler
// and to OnSuccess/OnFailure.
type Context struct {
	JobID       string
	JobName     string
	RunID       string
	ScheduledAt time.Time
	StartedAt   time.Time
	Attempt     int
	// Signal is cancelled when the attempt's timeout fires. Handlers
	// that ignore it simply keep running in the background — the
	// engine does not await them past the timeout window.
	Signal context.Context
}

// Status is the terminal state of an ExecutionResult.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusTimeout Status = "timeout"
)

// ExecutionError carries a handler or callback failure's message and,
// when available, a stack trace.
type ExecutionError struct {
	Message string
	Stack   string `json:",omitempty"`
}

// ExecutionResult is what engine.Run returns for a single run.
type ExecutionResult struct {
	JobID       string
	RunID       string
	Status      Status
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	// Attempt is the attempt number of the terminal outcome.
	Attempt int
	Error   *ExecutionError
}

// EventType tags an ExecutionEvent's variant.
type EventType string

const (
	EventStart   EventType = "job:start"
	EventSuccess EventType = "job:success"
	EventFailure EventType = "job:failure"
	EventTimeout EventType = "job:timeout"
	EventRetry   EventType = "job:retry"
)

// ExecutionEvent is the event-bus payload emitted through a run's
// lifecycle. Duration and Error are populated only where applicable.
type ExecutionEvent struct {
	Type      EventType
	JobID     string
	RunID     string
	Timestamp time.Time
	Attempt   int
	Duration  time.Duration    `json:",omitempty"`
	Error     *ExecutionError  `json:",omitempty"`
}
