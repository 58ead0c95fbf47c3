package service

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"ecourt-scraper/internal/entity"
)

// Registry is the in-memory job table. Every read returns a deep copy and
// every write happens under the lock, so readers never see a half-applied
// transition.
type Registry struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*entity.Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[uuid.UUID]*entity.Job)}
}

// Add stores a new job; it returns false if the id is already taken.
func (r *Registry) Add(job *entity.Job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; ok {
		return false
	}
	r.jobs[job.ID] = job.Clone()
	return true
}

func (r *Registry) Get(id uuid.UUID) (*entity.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, false
	}
	return j.Clone(), true
}

// List returns snapshots ordered by submission time, oldest first.
func (r *Registry) List() []*entity.Job {
	r.mu.RLock()
	out := make([]*entity.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].SubmittedAt.Equal(out[b].SubmittedAt) {
			return out[a].ID.String() < out[b].ID.String()
		}
		return out[a].SubmittedAt.Before(out[b].SubmittedAt)
	})
	return out
}

// Update applies fn to the stored job atomically. fn returns an error to
// leave the job untouched. The returned job is a snapshot taken after fn.
func (r *Registry) Update(id uuid.UUID, fn func(j *entity.Job) error) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := j.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	r.jobs[id] = next
	return next.Clone(), nil
}
