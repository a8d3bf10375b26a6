package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Store owns the set of submitted jobs and enforces their lifecycle. It is
// created once at process start and injected into every component that
// touches jobs; there is no package-level instance.
//
// The single mutex is held only for map mutation, never across I/O or
// hashing, so store contention cannot stall a transfer.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
	seq  uint64
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// Create registers a new Pending job for the given spec with precomputed
// totals and returns a snapshot of it.
func (s *Store) Create(spec JobSpec, filesTotal int, bytesTotal int64) Job {
	job := &Job{
		ID:         uuid.NewString(),
		Spec:       spec,
		Status:     StatusPending,
		FilesTotal: filesTotal,
		BytesTotal: bytesTotal,
		CreatedAt:  time.Now(),
	}

	s.mu.Lock()
	s.seq++
	job.seq = s.seq
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return *job
}

// Get returns a snapshot of the job, or ErrNotFound.
func (s *Store) Get(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, errors.WithMessagef(ErrNotFound, "job %s", id)
	}
	return *job, nil
}

// Start atomically flips a Pending job to InProgress, stamps StartedAt and
// freezes its totals to the values enumerated for the run. Fails with
// ErrInvalidState if the job is not Pending.
func (s *Store) Start(id string, filesTotal int, bytesTotal int64) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, errors.WithMessagef(ErrNotFound, "job %s", id)
	}
	if job.Status != StatusPending {
		return Job{}, errors.WithMessagef(ErrInvalidState, "cannot start %s job %s", job.Status, id)
	}

	job.Status = StatusInProgress
	job.FilesTotal = filesTotal
	job.BytesTotal = bytesTotal
	job.StartedAt = time.Now()
	return *job, nil
}

// Update applies a counter mutation to the job under the store lock. A
// missing job is a no-op: a race with removal is not an error.
func (s *Store) Update(id string, mutate func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[id]; ok {
		mutate(job)
	}
}

// Finish sets a terminal status with CompletedAt and an optional error
// message. Finishing an already-terminal job is an idempotent no-op.
func (s *Store) Finish(id string, status Status, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}

	job.Status = status
	job.CompletedAt = time.Now()
	if errMsg != "" {
		job.Error = errMsg
	}
}

// Cancel moves a Pending job to Cancelled. In-flight jobs cannot be
// cancelled; that fails with ErrInvalidState.
func (s *Store) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return errors.WithMessagef(ErrNotFound, "job %s", id)
	}
	if job.Status != StatusPending {
		return errors.WithMessagef(ErrInvalidState, "cannot cancel %s job %s", job.Status, id)
	}

	job.Status = StatusCancelled
	job.CompletedAt = time.Now()
	return nil
}

// Remove deletes a job. An InProgress job cannot be removed; removing an
// unknown id is a no-op success.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	if job.Status == StatusInProgress {
		return errors.WithMessagef(ErrInvalidState, "cannot remove running job %s", id)
	}

	delete(s.jobs, id)
	return nil
}

// List returns snapshots of all jobs, newest-submitted first.
func (s *Store) List() []Job {
	return s.ListKind("")
}

// ListKind returns snapshots of jobs of the given kind, newest-submitted
// first. An empty kind matches every job. Ordering follows the sequence
// assigned under the store lock at submission, so it is exact even when
// CreatedAt timestamps collide.
func (s *Store) ListKind(kind Kind) []Job {
	s.mu.Lock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if kind != "" && job.Spec.Kind != kind {
			continue
		}
		jobs = append(jobs, *job)
	}
	s.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].seq > jobs[j].seq
	})
	return jobs
}
