package job

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the process-wide map of live jobs. It holds exclusive rights
// over job existence: creation allocates the job and its working directory,
// removal deletes both. Job content is mutated only by the pipeline.
type Registry struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	workRoot string
}

// NewRegistry creates a registry placing job working directories under
// workRoot.
func NewRegistry(workRoot string) *Registry {
	return &Registry{
		jobs:     make(map[string]*Job),
		workRoot: workRoot,
	}
}

// Create allocates a new job in the created state with its own working
// directory keyed by the job id.
func (r *Registry) Create(params Params) (*Job, error) {
	id := uuid.New().String()
	workDir := filepath.Join(r.workRoot, id)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, err
	}

	j := &Job{
		ID:        id,
		WorkDir:   workDir,
		Params:    params,
		state:     StateCreated,
		label:     "Created",
		createdAt: time.Now(),
	}

	r.mu.Lock()
	r.jobs[id] = j
	r.mu.Unlock()

	log.Printf("[registry] created job %s (workdir %s)", id, workDir)
	return j, nil
}

// Get returns the job for id, if it exists.
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	return j, ok
}

// List returns snapshots of all live jobs, newest first.
func (r *Registry) List() []Status {
	r.mu.RLock()
	statuses := make([]Status, 0, len(r.jobs))
	for _, j := range r.jobs {
		statuses = append(statuses, j.Status())
	}
	r.mu.RUnlock()

	sort.Slice(statuses, func(i, k int) bool {
		return statuses[i].CreatedAt.After(statuses[k].CreatedAt)
	})
	return statuses
}

// Remove deletes the job and recursively removes its working directory.
// Removing an unknown id is a no-op. A pipeline stage still in flight keeps
// mutating its own Job value, which is simply no longer reachable here.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	_, existed := r.jobs[id]
	delete(r.jobs, id)
	r.mu.Unlock()

	if !existed {
		return
	}

	workDir := filepath.Join(r.workRoot, id)
	if err := os.RemoveAll(workDir); err != nil {
		log.Printf("[registry] failed to remove workdir for job %s: %v", id, err)
	}
	log.Printf("[registry] removed job %s", id)
}

// StartJanitor reaps terminal jobs older than maxAge on a fixed interval
// until ctx is cancelled. Working directories can hold a full audio track
// plus hundreds of clips, so abandoned jobs must not pile up.
func (r *Registry) StartJanitor(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.reap(maxAge)
			}
		}
	}()
}

func (r *Registry) reap(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	r.mu.RLock()
	var stale []string
	for id, j := range r.jobs {
		if finished := j.FinishedAt(); !finished.IsZero() && finished.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		log.Printf("[registry] reaping stale job %s", id)
		r.Remove(id)
	}
}
