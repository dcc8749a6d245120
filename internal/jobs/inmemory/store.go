package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/ledger-balance/internal/domain"
	"github.com/dvloznov/ledger-balance/internal/jobs"
)

// DefaultRetention is how many finished jobs a Store keeps by default.
const DefaultRetention = 1000

// Store is an in-memory implementation of JobStore.
// Data is lost on service restart. Once more than the retention limit of
// finished jobs is held, the oldest finished ones are dropped; pending,
// running and retrying jobs are never evicted.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*jobs.ProcessMessageJob
	retention int
	now       func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRetention caps how many completed or failed jobs are kept. Zero or
// less keeps everything.
func WithRetention(n int) StoreOption {
	return func(s *Store) {
		s.retention = n
	}
}

// NewStore creates a new in-memory job store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		jobs:      make(map[string]*jobs.ProcessMessageJob),
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func finished(status jobs.JobStatus) bool {
	return status == jobs.JobStatusCompleted || status == jobs.JobStatusFailed
}

// clone copies a job including its timestamps so neither side can mutate
// the other's copy.
func clone(job *jobs.ProcessMessageJob) *jobs.ProcessMessageJob {
	c := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// evict drops the oldest finished jobs beyond the retention limit.
// Callers hold s.mu.
func (s *Store) evict() {
	if s.retention <= 0 {
		return
	}
	var done []*jobs.ProcessMessageJob
	for _, job := range s.jobs {
		if finished(job.Status) {
			done = append(done, job)
		}
	}
	if len(done) <= s.retention {
		return
	}
	sort.Slice(done, func(i, j int) bool {
		return finishedAt(done[i]).Before(finishedAt(done[j]))
	})
	for _, job := range done[:len(done)-s.retention] {
		delete(s.jobs, job.JobID)
	}
}

func finishedAt(job *jobs.ProcessMessageJob) time.Time {
	if job.CompletedAt != nil {
		return *job.CompletedAt
	}
	return job.CreatedAt
}

// SaveJob implements the JobStore interface.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ProcessMessageJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.JobID] = clone(job)
	if finished(job.Status) {
		s.evict()
	}
	return nil
}

// GetJob implements the JobStore interface.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ProcessMessageJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}

	return clone(job), nil
}

// ListJobs implements the JobStore interface.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ProcessMessageJob, error) {
	s.mu.RLock()
	result := make([]*jobs.ProcessMessageJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Source != "" && job.Source != filter.Source {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		result = append(result, clone(job))
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].JobID < result[j].JobID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ProcessMessageJob{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// UpdateJobStatus implements the JobStore interface.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	if finished(status) {
		if job.CompletedAt == nil {
			now := s.now()
			job.CompletedAt = &now
		}
		s.evict()
	}
	return nil
}

// Ensure Store implements JobStore interface.
var _ jobs.JobStore = (*Store)(nil)
