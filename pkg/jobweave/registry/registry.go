// Package registry implements the process-wide job id → Record
// mapping. It mirrors the Add/Remove/List/Get shape of the teacher's
// Scheduler (devclaw/scheduler/scheduler.go) but isolated into its own
// component, since the spec splits "what jobs exist" (Registry) from
// "what runs them" (Scheduler/Worker).
package registry

import (
	"fmt"
	"sync"

	"github.com/jholhewres/jobweave/pkg/jobweave/jerrors"
	"github.com/jholhewres/jobweave/pkg/jobweave/job"
)

// Registry is the exclusive owner of Records; every other component
// holds only an id.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]job.Record
	// order preserves insertion order so GetAll returns a stable
	// snapshot even though jobs is a map.
	order []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{jobs: make(map[string]job.Record)}
}

// Register inserts rec. Fails with jerrors.ErrAlreadyRegistered if
// rec.ID is already present.
func (r *Registry) Register(rec job.Record) error {
	if rec.ID == "" {
		return jerrors.NewInputError("registry.Register", "", "job id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[rec.ID]; exists {
		return fmt.Errorf("job %q: %w", rec.ID, jerrors.ErrAlreadyRegistered)
	}
	r.jobs[rec.ID] = rec
	r.order = append(r.order, rec.ID)
	return nil
}

// Replace overwrites an existing Record (or inserts if absent),
// without touching insertion order for an existing id.
func (r *Registry) Replace(rec job.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[rec.ID]; !exists {
		r.order = append(r.order, rec.ID)
	}
	r.jobs[rec.ID] = rec
}

// Remove deletes id, reporting whether an entry was actually removed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[id]; !exists {
		return false
	}
	delete(r.jobs, id)
	r.order = removeString(r.order, id)
	return true
}

// Get returns the Record for id.
func (r *Registry) Get(id string) (job.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.jobs[id]
	return rec, ok
}

// GetAll returns a stable-order snapshot of every registered Record.
func (r *Registry) GetAll() []job.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]job.Record, 0, len(r.order))
	for _, id := range r.order {
		if rec, ok := r.jobs[id]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// Size is O(1).
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Clear removes every Record. Tests use this to reset registry state
// between cases without constructing a fresh Registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = make(map[string]job.Record)
	r.order = nil
}

func removeString(in []string, target string) []string {
	out := in[:0:0]
	for _, s := range in {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
