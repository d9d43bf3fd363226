package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/jholhewres/jobweave/pkg/jobweave/engine"
	"github.com/jholhewres/jobweave/pkg/jobweave/eventbus"
	"github.com/jholhewres/jobweave/pkg/jobweave/jerrors"
	"github.com/jholhewres/jobweave/pkg/jobweave/job"
	"github.com/jholhewres/jobweave/pkg/jobweave/registry"
	"github.com/jholhewres/jobweave/pkg/jobweave/schedule"
)

func newTestWorker() (*Worker, *registry.Registry) {
	reg := registry.New()
	bus := eventbus.New()
	eng := engine.New(bus, nil)
	return New(reg, eng, bus, nil, "UTC"), reg
}

func dailyRecord(t *testing.T, id string, handler job.Handler) job.Record {
	t.Helper()
	desc, err := schedule.Daily("09:00")
	if err != nil {
		t.Fatalf("schedule.Daily: %v", err)
	}
	return job.Record{ID: id, Schedule: desc, Handler: handler}
}

func TestAddAndTrigger(t *testing.T) {
	t.Parallel()

	w, _ := newTestWorker()
	ran := make(chan struct{}, 1)
	rec := dailyRecord(t, "job-1", func(job.Context) error {
		ran <- struct{}{}
		return nil
	})

	if err := w.Add(rec); err != nil {
		t.Fatalf("Add: unexpected error: %v", err)
	}

	result, err := w.Trigger("job-1")
	if err != nil {
		t.Fatalf("Trigger: unexpected error: %v", err)
	}
	if result.Status != job.StatusSuccess {
		t.Errorf("Status = %q, want success", result.Status)
	}

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestTriggerUnknownJob(t *testing.T) {
	t.Parallel()

	w, _ := newTestWorker()
	_, err := w.Trigger("missing")
	if !errors.Is(err, jerrors.ErrNotFound) {
		t.Errorf("Trigger(missing): err = %v, want ErrNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	w, reg := newTestWorker()
	rec := dailyRecord(t, "job-1", func(job.Context) error { return nil })
	_ = w.Add(rec)

	if err := w.Remove("job-1"); err != nil {
		t.Fatalf("Remove: unexpected error: %v", err)
	}
	if _, ok := reg.Get("job-1"); ok {
		t.Error("job-1 still present in registry after Remove")
	}
}

func TestExecuteJobWhileShuttingDownIsSynthetic(t *testing.T) {
	t.Parallel()

	w, _ := newTestWorker()
	called := make(chan struct{}, 1)
	rec := dailyRecord(t, "job-1", func(job.Context) error {
		called <- struct{}{}
		return nil
	})
	_ = w.Add(rec)

	// Start a long-running job to keep Shutdown busy, then try
	// ExecuteJob on the other job — it must be rejected without invoking
	// its handler.
	blocker := dailyRecord(t, "job-2", func(ctx job.Context) error {
		<-ctx.Signal.Done()
		return nil
	})
	blocker.Config.Timeout = "300ms"
	_ = w.Add(blocker)

	done := make(chan ShutdownReport, 1)
	go func() {
		go w.ExecuteJob(blocker)
		time.Sleep(20 * time.Millisecond)
		done <- w.Shutdown(200 * time.Millisecond)
	}()

	// Give Shutdown a moment to flip shuttingDown before probing.
	time.Sleep(50 * time.Millisecond)
	result := w.ExecuteJob(rec)
	if result.Status != job.StatusFailure {
		t.Errorf("Status = %q, want failure", result.Status)
	}
	if result.Error == nil || result.Error.Message != jerrors.ErrShuttingDown.Error() {
		t.Errorf("Error = %+v, want message %q", result.Error, jerrors.ErrShuttingDown.Error())
	}

	select {
	case <-called:
		t.Error("handler ran despite shuttingDown being set")
	default:
	}

	<-done
}

func TestShutdownReportsSlowRunAsInterrupted(t *testing.T) {
	t.Parallel()

	w, _ := newTestWorker()

	fast := dailyRecord(t, "fast", func(job.Context) error { return nil })
	slow := dailyRecord(t, "slow", func(ctx job.Context) error {
		select {
		case <-time.After(2 * time.Second):
			return nil
		case <-ctx.Signal.Done():
			return ctx.Signal.Err()
		}
	})
	slow.Config.Timeout = "300ms"
	_ = w.Add(fast)
	_ = w.Add(slow)

	go w.ExecuteJob(fast)
	go w.ExecuteJob(slow)
	time.Sleep(20 * time.Millisecond)

	report := w.Shutdown(100 * time.Millisecond)
	if len(report.Interrupted) == 0 {
		t.Error("expected the slow run to be reported as interrupted")
	}
}
