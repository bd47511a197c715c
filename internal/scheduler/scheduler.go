// Package scheduler runs the periodic background tasks.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"botpanel/internal/metrics"

	"github.com/robfig/cron/v3"
)

// TaskFunc is the function signature for scheduled tasks.
type TaskFunc func(ctx context.Context) error

// DefaultTaskTimeout bounds a single task run.
const DefaultTaskTimeout = 5 * time.Minute

// Scheduler wraps robfig/cron with named tasks. A task still running when its
// next tick fires is skipped for that tick.
type Scheduler struct {
	cron    *cron.Cron
	log     *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu      sync.RWMutex
	tasks   map[string]cron.EntryID
	running bool

	ctx    context.Context
	cancel context.CancelFunc
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(log *slog.Logger, metricRegistry *metrics.Metrics) *Scheduler {
	log = log.With("component", "scheduler")
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    c,
		log:     log,
		metrics: metricRegistry,
		timeout: DefaultTaskTimeout,
		tasks:   make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins firing scheduled tasks.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.log.Info("scheduler started", "tasks", len(s.tasks))
}

// Stop cancels running tasks and waits for them until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
	s.running = false
}

// AddIntervalTask schedules task every interval, replacing a task with the
// same name.
func (s *Scheduler) AddIntervalTask(name string, interval time.Duration, task TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.tasks[name]; ok {
		s.cron.Remove(id)
		delete(s.tasks, name)
	}
	id, err := s.cron.AddFunc("@every "+interval.String(), func() { s.runTask(name, task) })
	if err != nil {
		return err
	}
	s.tasks[name] = id
	s.log.Info("added interval task", "name", name, "interval", interval)
	return nil
}

// RunNow executes a registered task synchronously, outside the schedule.
func (s *Scheduler) RunNow(name string) bool {
	s.mu.RLock()
	id, ok := s.tasks[name]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	s.cron.Entry(id).WrappedJob.Run()
	return true
}

func (s *Scheduler) runTask(name string, task TaskFunc) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	if err := task(ctx); err != nil {
		s.log.Error("scheduled task failed", "name", name, "error", err, "duration", time.Since(start))
		s.metrics.IncError("scheduler_" + name)
		return
	}
	s.log.Debug("scheduled task completed", "name", name, "duration", time.Since(start))
}

// ListTasks returns the registered task names, sorted.
func (s *Scheduler) ListTasks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRunning reports whether Start was called without a matching Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
