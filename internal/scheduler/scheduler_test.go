package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"botpanel/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMaintainer struct {
	refreshes atomic.Int32
	syncs     atomic.Int32
	syncErr   error
}

func (f *fakeMaintainer) RefreshStats(context.Context) error {
	f.refreshes.Add(1)
	return nil
}

func (f *fakeMaintainer) SyncAll(context.Context) error {
	f.syncs.Add(1)
	return f.syncErr
}

func TestRegisterTasks(t *testing.T) {
	s := NewScheduler(quietLogger(), nil)
	m := &fakeMaintainer{}
	require.NoError(t, RegisterTasks(s, m, 30*time.Second, time.Minute))
	assert.Equal(t, []string{TaskBotSync, TaskStatsRefresh}, s.ListTasks())

	assert.True(t, s.RunNow(TaskStatsRefresh))
	assert.True(t, s.RunNow(TaskBotSync))
	assert.False(t, s.RunNow("missing"))
	assert.Equal(t, int32(1), m.refreshes.Load())
	assert.Equal(t, int32(1), m.syncs.Load())
}

func TestAddIntervalTaskReplacesByName(t *testing.T) {
	s := NewScheduler(quietLogger(), nil)
	var first, second atomic.Int32
	require.NoError(t, s.AddIntervalTask("job", time.Minute, func(context.Context) error { first.Add(1); return nil }))
	require.NoError(t, s.AddIntervalTask("job", time.Minute, func(context.Context) error { second.Add(1); return nil }))

	assert.Equal(t, []string{"job"}, s.ListTasks())
	s.RunNow("job")
	assert.Zero(t, first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestTaskFailureCountsError(t *testing.T) {
	m := metrics.NewUnregistered("test")
	s := NewScheduler(quietLogger(), m)
	fm := &fakeMaintainer{syncErr: errors.New("boom")}
	require.NoError(t, RegisterTasks(s, fm, time.Minute, time.Minute))

	s.RunNow(TaskBotSync)
	assert.Equal(t, int32(1), fm.syncs.Load())
}

func TestOverlappingRunsAreSkipped(t *testing.T) {
	s := NewScheduler(quietLogger(), nil)
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var runs atomic.Int32
	require.NoError(t, s.AddIntervalTask("slow", time.Hour, func(context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		<-release
		return nil
	}))

	done := make(chan struct{})
	go func() {
		s.RunNow("slow")
		close(done)
	}()
	<-started
	s.RunNow("slow")
	close(release)
	<-done

	assert.Equal(t, int32(1), runs.Load())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(quietLogger(), nil)
	var runs atomic.Int32
	var once sync.Once
	cancelled := make(chan struct{})
	require.NoError(t, s.AddIntervalTask("tick", time.Second, func(ctx context.Context) error {
		runs.Add(1)
		<-ctx.Done()
		once.Do(func() { close(cancelled) })
		return ctx.Err()
	}))

	assert.False(t, s.IsRunning())
	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool { return runs.Load() > 0 }, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.False(t, s.IsRunning())
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running task was not cancelled on stop")
	}
}
