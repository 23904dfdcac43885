// Package jobs tracks background scrape jobs: creation, bounded-pool
// execution, cooperative cancellation, and status reads. The registry is
// the only shared mutable state in the module; everything reads snapshot
// copies.
package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/law-makers/reviewlens/pkg/models"
)

var (
	// ErrJobNotFound is returned when a job id resolves to nothing.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidJobState is returned when a transition is requested on a
	// job whose status does not admit it, e.g. cancelling a finished job.
	ErrInvalidJobState = errors.New("invalid job state")
)

// Store is the job registry contract. Get returns a snapshot copy;
// mutations go through Update so status monotonicity is enforced in one
// place.
type Store interface {
	Insert(ctx context.Context, job *models.ScrapeJob) error
	Get(ctx context.Context, jobID string) (*models.ScrapeJob, error)
	Update(ctx context.Context, jobID string, mutate func(*models.ScrapeJob)) (*models.ScrapeJob, error)
}

// MemoryStore is the in-process job registry.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.ScrapeJob
}

// NewMemoryStore returns an empty registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*models.ScrapeJob)}
}

// Insert registers a new job.
func (s *MemoryStore) Insert(_ context.Context, job *models.ScrapeJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.JobID] = &cp
	return nil
}

// Get returns a snapshot copy of the job.
func (s *MemoryStore) Get(_ context.Context, jobID string) (*models.ScrapeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

// Update applies mutate under the lock. A terminal job silently absorbs
// further mutations: a driver racing a cancel must not resurrect the job.
func (s *MemoryStore) Update(_ context.Context, jobID string, mutate func(*models.ScrapeJob)) (*models.ScrapeJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	if !job.Status.Terminal() {
		mutate(job)
	}
	cp := *job
	return &cp, nil
}
