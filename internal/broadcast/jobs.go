package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job states.
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobCancelled = "cancelled"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("broadcast job not found")

// Job is a snapshot of a background broadcast.
type Job struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Progress   Progress   `json:"progress"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

type jobEntry struct {
	job    Job
	cancel context.CancelFunc
}

// Jobs runs broadcasts in the background and tracks their progress.
type Jobs struct {
	engine *Engine
	base   context.Context
	now    func() time.Time

	mu   sync.RWMutex
	jobs map[string]*jobEntry
	wg   sync.WaitGroup
}

// NewJobs returns a registry whose jobs live as long as base.
func NewJobs(base context.Context, engine *Engine) *Jobs {
	return &Jobs{engine: engine, base: base, now: time.Now, jobs: make(map[string]*jobEntry)}
}

// Start validates and sizes req, then dispatches it in the background.
// Validation errors and ErrNoRecipients are returned synchronously.
func (j *Jobs) Start(ctx context.Context, req Request) (Job, error) {
	total, err := j.engine.Estimate(ctx, req)
	if err != nil {
		return Job{}, err
	}
	if total == 0 {
		return Job{}, ErrNoRecipients
	}

	runCtx, cancel := context.WithCancel(j.base)
	entry := &jobEntry{
		job: Job{
			ID:        uuid.NewString(),
			Status:    JobRunning,
			Progress:  Progress{Total: total},
			StartedAt: j.now().UTC(),
		},
		cancel: cancel,
	}
	j.mu.Lock()
	j.jobs[entry.job.ID] = entry
	j.mu.Unlock()

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer cancel()
		res, err := j.engine.Run(runCtx, req, func(p Progress) {
			j.mu.Lock()
			entry.job.Progress = p
			j.mu.Unlock()
		})

		finished := j.now().UTC()
		j.mu.Lock()
		defer j.mu.Unlock()
		entry.job.FinishedAt = &finished
		switch {
		case err == nil:
			entry.job.Status = JobCompleted
			entry.job.Progress = res
		case errors.Is(err, context.Canceled):
			entry.job.Status = JobCancelled
			entry.job.Progress = res
		default:
			entry.job.Status = JobFailed
			entry.job.Error = err.Error()
		}
	}()

	return j.snapshot(entry), nil
}

// Get returns the current state of job id.
func (j *Jobs) Get(id string) (Job, error) {
	j.mu.RLock()
	entry, ok := j.jobs[id]
	j.mu.RUnlock()
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return j.snapshot(entry), nil
}

// Cancel stops a running job between recipients.
func (j *Jobs) Cancel(id string) error {
	j.mu.RLock()
	entry, ok := j.jobs[id]
	j.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}
	entry.cancel()
	return nil
}

// Wait blocks until every started job has finished.
func (j *Jobs) Wait() {
	j.wg.Wait()
}

func (j *Jobs) snapshot(entry *jobEntry) Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	job := entry.job
	job.Progress.Errors = append([]DeliveryError(nil), entry.job.Progress.Errors...)
	return job
}
