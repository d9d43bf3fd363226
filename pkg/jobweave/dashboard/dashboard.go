// Package dashboard implements the read-only HTTP/SSE projection of
// the worker's state: job listing, per-job run history, manual
// trigger, and a live event stream. It is grounded on the teacher's
// pkg/devclaw/gateway/gateway.go for the http.ServeMux + CORS
// middleware shape, and on its webui/server.go for the SSE
// writeEvent/heartbeat pattern — adapted here to jobweave's
// `data: <json>\n\n` framing (no `event:` line) and to
// github.com/google/uuid for client ids, rather than the teacher's
// own id generator.
package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jholhewres/jobweave/pkg/jobweave/eventbus"
	"github.com/jholhewres/jobweave/pkg/jobweave/job"
	"github.com/jholhewres/jobweave/pkg/jobweave/registry"
	"github.com/jholhewres/jobweave/pkg/jobweave/worker"
)

const historyLimit = 50

// runEntry is one ring-buffer slot of job execution history.
type runEntry struct {
	RunID       string              `json:"runId"`
	Status      job.Status          `json:"status"`
	StartedAt   time.Time           `json:"startedAt"`
	CompletedAt time.Time           `json:"completedAt"`
	Duration    time.Duration       `json:"duration"`
	Attempt     int                 `json:"attempt"`
	Error       *job.ExecutionError `json:"error,omitempty"`
}

// Dashboard owns the in-memory ring of run history and serves the §6
// HTTP surface over a registry/worker pair.
type Dashboard struct {
	registry *registry.Registry
	worker   *worker.Worker
	bus      *eventbus.Bus
	logger   *slog.Logger

	mu      sync.Mutex
	history map[string][]runEntry // jobID -> entries, newest first
	running map[string]bool       // jobID -> has an in-flight run

	unsubscribe eventbus.Unsubscribe
}

// New creates a Dashboard and subscribes it to bus so history and
// running-state stay current without polling.
func New(reg *registry.Registry, w *worker.Worker, bus *eventbus.Bus, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dashboard{
		registry: reg,
		worker:   w,
		bus:      bus,
		logger:   logger,
		history:  make(map[string][]runEntry),
		running:  make(map[string]bool),
	}
	if bus != nil {
		d.unsubscribe = bus.OnAny(d.onEvent)
	}
	return d
}

// Close detaches the Dashboard from its event bus.
func (d *Dashboard) Close() {
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
}

func (d *Dashboard) onEvent(event job.ExecutionEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch event.Type {
	case job.EventStart:
		d.running[event.JobID] = true
	case job.EventSuccess, job.EventFailure, job.EventTimeout:
		delete(d.running, event.JobID)
		entry := runEntry{
			RunID: event.RunID, StartedAt: event.Timestamp.Add(-event.Duration),
			CompletedAt: event.Timestamp, Duration: event.Duration,
			Attempt: event.Attempt, Error: event.Error,
		}
		switch event.Type {
		case job.EventSuccess:
			entry.Status = job.StatusSuccess
		case job.EventFailure:
			entry.Status = job.StatusFailure
		case job.EventTimeout:
			entry.Status = job.StatusTimeout
		}
		entries := append([]runEntry{entry}, d.history[event.JobID]...)
		if len(entries) > historyLimit {
			entries = entries[:historyLimit]
		}
		d.history[event.JobID] = entries
	}
}

// jobSummary is the §6 /api/jobs projection.
type jobSummary struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"`
	Cron     string     `json:"cron"`
	Timezone string     `json:"timezone,omitempty"`
	Status   string     `json:"status"`
	LastRun  *runEntry  `json:"lastRun"`
	NextRun  *time.Time `json:"nextRun"`
}

type jobDetail struct {
	jobSummary
	Config struct {
		Retry   *job.RetryConfig `json:"retry,omitempty"`
		Timeout string           `json:"timeout,omitempty"`
	} `json:"config"`
}

func (d *Dashboard) summarize(rec job.Record) jobSummary {
	d.mu.Lock()
	running := d.running[rec.ID]
	var last *runEntry
	if entries := d.history[rec.ID]; len(entries) > 0 {
		e := entries[0]
		last = &e
	}
	d.mu.Unlock()

	status := "idle"
	switch {
	case running:
		status = "running"
	case last != nil && last.Status == job.StatusSuccess:
		status = "success"
	case last != nil:
		status = "failed"
	}

	var nextRun *time.Time
	if d.worker != nil {
		if t, err := d.worker.GetNextRun(rec.ID); err == nil {
			nextRun = &t
		}
	}

	return jobSummary{
		ID: rec.ID, Name: rec.EffectiveName(),
		Schedule: rec.Schedule.HumanReadable, Cron: rec.Schedule.Cron,
		Timezone: rec.Schedule.Timezone, Status: status,
		LastRun: last, NextRun: nextRun,
	}
}

// Handler returns the §6 HTTP surface mounted on a fresh ServeMux,
// wrapped with permissive CORS, mirroring gateway.corsMiddleware.
func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/jobs", d.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", d.handleGetJob)
	mux.HandleFunc("GET /api/jobs/{id}/runs", d.handleGetRuns)
	mux.HandleFunc("POST /api/jobs/{id}/trigger", d.handleTrigger)
	mux.HandleFunc("GET /api/events", d.handleEvents)
	return d.corsMiddleware(mux)
}

func (d *Dashboard) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (d *Dashboard) handleListJobs(w http.ResponseWriter, r *http.Request) {
	recs := d.registry.GetAll()
	out := make([]jobSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, d.summarize(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (d *Dashboard) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, ok := d.registry.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	detail := jobDetail{jobSummary: d.summarize(rec)}
	retry := rec.Config.EffectiveRetry()
	detail.Config.Retry = &retry
	timeout, err := rec.Config.EffectiveTimeout()
	if err == nil {
		detail.Config.Timeout = timeout.String()
	}
	writeJSON(w, http.StatusOK, detail)
}

func (d *Dashboard) handleGetRuns(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := d.registry.Get(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	d.mu.Lock()
	entries := append([]runEntry(nil), d.history[id]...)
	d.mu.Unlock()
	writeJSON(w, http.StatusOK, entries)
}

func (d *Dashboard) handleTrigger(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := d.registry.Get(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	go func() {
		if _, err := d.worker.Trigger(id); err != nil {
			d.logger.Warn("manual trigger failed", "job", id, "error", err)
		}
	}()
	writeJSON(w, http.StatusOK, map[string]string{"message": "triggered", "jobId": id})
}

func (d *Dashboard) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientID := uuid.NewString()
	writeSSE(w, map[string]string{"type": "connected", "clientId": clientID})
	flusher.Flush()

	events := make(chan job.ExecutionEvent, 32)
	unsubscribe := d.bus.OnAny(func(event job.ExecutionEvent) {
		select {
		case events <- event:
		default:
		}
	})
	defer unsubscribe()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			writeSSE(w, event)
			flusher.Flush()
		case <-heartbeat.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSSE(w http.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	w.Write([]byte("data: "))
	w.Write(data)
	w.Write([]byte("\n\n"))
}
