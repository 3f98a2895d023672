package orchestrator

import (
	"context"
	"errors"
	"sync"
)

// ErrDuplicateJob is returned when registering an asset id that is already tracked.
var ErrDuplicateJob = errors.New("job already registered")

// Registry is a concurrency-safe view of in-flight and unreported jobs.
// Callers only ever receive copies. A terminal job is dropped the first time
// it is handed out by Take or Wait.
type Registry struct {
	mu    sync.RWMutex
	store Store
	done  map[string]chan struct{}
}

// NewRegistry constructs a registry with a default in-memory store.
func NewRegistry() *Registry {
	return NewRegistryWithStore(NewInMemoryStore())
}

// NewRegistryWithStore constructs a registry that uses the given Store.
func NewRegistryWithStore(store Store) *Registry {
	return &Registry{store: store, done: make(map[string]chan struct{})}
}

// Add starts tracking a copy of job.
func (r *Registry) Add(job TranscodeJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store.GetJob(job.AssetID); exists {
		return ErrDuplicateJob
	}
	r.store.SetJob(&job)
	r.done[job.AssetID] = make(chan struct{})
	return nil
}

// Update replaces the tracked copy. The first terminal update wakes waiters;
// updates for jobs no longer tracked are ignored.
func (r *Registry) Update(job TranscodeJob) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, exists := r.store.GetJob(job.AssetID)
	if !exists || prev.State.Terminal() {
		return
	}
	r.store.SetJob(&job)
	if job.State.Terminal() {
		close(r.done[job.AssetID])
	}
}

// Take returns a copy of the job. A terminal job is removed once taken.
func (r *Registry) Take(id string) (TranscodeJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.takeLocked(id)
}

// Wait blocks until the job is terminal or ctx ends, then takes it.
func (r *Registry) Wait(ctx context.Context, id string) (TranscodeJob, error) {
	r.mu.RLock()
	done, ok := r.done[id]
	r.mu.RUnlock()
	if !ok {
		return TranscodeJob{}, ErrJobNotFound
	}

	select {
	case <-done:
	case <-ctx.Done():
		return TranscodeJob{}, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.takeLocked(id)
	if !ok {
		return TranscodeJob{}, ErrJobNotFound
	}
	return job, nil
}

// ActiveCount returns the number of tracked jobs that are not terminal.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, id := range r.store.ListJobIDs() {
		if j, ok := r.store.GetJob(id); ok && !j.State.Terminal() {
			n++
		}
	}
	return n
}

// takeLocked returns a copy and drops terminal jobs.
// Caller must hold r.mu in write mode.
func (r *Registry) takeLocked(id string) (TranscodeJob, bool) {
	j, ok := r.store.GetJob(id)
	if !ok {
		return TranscodeJob{}, false
	}
	job := *j
	if job.State.Terminal() {
		r.store.DeleteJob(id)
		delete(r.done, id)
	}
	return job, true
}
