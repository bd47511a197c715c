package ingest

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSyncInProgress is returned when a sync for the same bot is already running.
var ErrSyncInProgress = errors.New("sync already in progress")

// waitInterval is how often AcquireWait retries a busy bot.
const waitInterval = 25 * time.Millisecond

// Locker provides cross-process exclusive locks. TryLock returns an owner
// token that Unlock must present; a lock held under another token is left
// alone.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, name, token string) error
}

// Guard ensures at most one writer per bot (a sync or a webhook delivery)
// runs at a time. The in-process map
// always applies; an optional Locker extends the guard across replicas.
type Guard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	locker   Locker
	ttl      time.Duration
}

// NewGuard returns a Guard. locker may be nil.
func NewGuard(locker Locker, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Guard{inFlight: make(map[string]struct{}), locker: locker, ttl: ttl}
}

// Acquire claims botID. The returned release func must be called when done.
func (g *Guard) Acquire(ctx context.Context, botID string) (func(), error) {
	g.mu.Lock()
	if _, busy := g.inFlight[botID]; busy {
		g.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	g.inFlight[botID] = struct{}{}
	g.mu.Unlock()

	local := func() {
		g.mu.Lock()
		delete(g.inFlight, botID)
		g.mu.Unlock()
	}

	if g.locker == nil {
		return local, nil
	}

	name := "sync:" + botID
	token, ok, err := g.locker.TryLock(ctx, name, g.ttl)
	if err != nil {
		local()
		return nil, err
	}
	if !ok {
		local()
		return nil, ErrSyncInProgress
	}
	return func() {
		_ = g.locker.Unlock(context.WithoutCancel(ctx), name, token)
		local()
	}, nil
}

// AcquireWait is Acquire that waits for a busy bot instead of failing.
func (g *Guard) AcquireWait(ctx context.Context, botID string) (func(), error) {
	for {
		release, err := g.Acquire(ctx, botID)
		if !errors.Is(err, ErrSyncInProgress) {
			return release, err
		}
		timer := time.NewTimer(waitInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
