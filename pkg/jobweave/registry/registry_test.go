package registry

import (
	"errors"
	"testing"

	"github.com/jholhewres/jobweave/pkg/jobweave/jerrors"
	"github.com/jholhewres/jobweave/pkg/jobweave/job"
)

func TestRegisterAndGet(t *testing.T) {
	t.Parallel()

	r := New()
	rec := job.Record{ID: "job-1", Name: "first"}
	if err := r.Register(rec); err != nil {
		t.Fatalf("Register: unexpected error: %v", err)
	}

	got, ok := r.Get("job-1")
	if !ok {
		t.Fatal("Get: expected job-1 to exist")
	}
	if got.Name != "first" {
		t.Errorf("Get().Name = %q, want first", got.Name)
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	t.Parallel()

	r := New()
	_ = r.Register(job.Record{ID: "job-1"})

	err := r.Register(job.Record{ID: "job-1"})
	if !errors.Is(err, jerrors.ErrAlreadyRegistered) {
		t.Errorf("Register duplicate: err = %v, want ErrAlreadyRegistered", err)
	}
}

func TestReplaceKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	r := New()
	_ = r.Register(job.Record{ID: "a"})
	_ = r.Register(job.Record{ID: "b"})
	r.Replace(job.Record{ID: "a", Name: "updated"})

	all := r.GetAll()
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Fatalf("GetAll() = %+v, want [a(updated) b]", all)
	}
	if all[0].Name != "updated" {
		t.Errorf("Replace did not update the record in place")
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	r := New()
	_ = r.Register(job.Record{ID: "job-1"})

	if !r.Remove("job-1") {
		t.Error("Remove(job-1) = false, want true")
	}
	if r.Remove("job-1") {
		t.Error("second Remove(job-1) = true, want false")
	}
	if _, ok := r.Get("job-1"); ok {
		t.Error("Get(job-1) found an entry after Remove")
	}
}

func TestSizeAndClear(t *testing.T) {
	t.Parallel()

	r := New()
	_ = r.Register(job.Record{ID: "a"})
	_ = r.Register(job.Record{ID: "b"})

	if r.Size() != 2 {
		t.Errorf("Size() = %d, want 2", r.Size())
	}
	r.Clear()
	if r.Size() != 0 {
		t.Errorf("Size() after Clear() = %d, want 0", r.Size())
	}
}
