package scheduler

import (
	"context"
	"time"
)

const (
	TaskStatsRefresh = "stats_refresh"
	TaskBotSync      = "bot_sync"
)

// Maintainer is the bot service as seen by the periodic tasks.
type Maintainer interface {
	RefreshStats(ctx context.Context) error
	SyncAll(ctx context.Context) error
}

// RegisterTasks schedules stats refresh and bot sync.
func RegisterTasks(s *Scheduler, m Maintainer, statsEvery, syncEvery time.Duration) error {
	if err := s.AddIntervalTask(TaskStatsRefresh, statsEvery, m.RefreshStats); err != nil {
		return err
	}
	return s.AddIntervalTask(TaskBotSync, syncEvery, m.SyncAll)
}
