package ingest

import (
	"context"
	"testing"
	"time"

	"botpanel/internal/store"
	"botpanel/internal/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestorHandleUpdate(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	ing := NewIngestor(st, nil, nil, discardLogger())

	saved, err := ing.HandleUpdate(ctx, "b1", textUpdate(20, 1, "/start"))
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = ing.HandleUpdate(ctx, "b1", textUpdate(20, 1, "/start"))
	require.NoError(t, err)
	assert.False(t, saved, "redelivered update is ignored")

	saved, err = ing.HandleUpdate(ctx, "b1", textUpdate(15, 1, "late"))
	require.NoError(t, err)
	assert.True(t, saved)

	cursor, err := st.Cursor(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), cursor, "cursor never regresses")

	events, err := st.QueryEvents(ctx, "b1", store.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestIngestorUserOnlyUpdate(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	ing := NewIngestor(st, nil, nil, discardLogger())

	saved, err := ing.HandleUpdate(ctx, "b1", textUpdate(1, 3, ""))
	require.NoError(t, err)
	assert.False(t, saved)

	users, err := st.ListUsers(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, users, 1)

	saved, err = ing.HandleUpdate(ctx, "b1", telegram.Update{UpdateID: 2})
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestIngestorWaitsForRunningSync(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	guard := NewGuard(nil, 0)
	fetcher := &fakeFetcher{
		pages:   [][]telegram.Update{{textUpdate(30, 1, "/start")}},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	syncer := NewSyncer(st, fetcher, guard, 0, nil, discardLogger())
	ing := NewIngestor(st, guard, nil, discardLogger())

	syncDone := make(chan error, 1)
	go func() {
		_, err := syncer.Sync(ctx, "b1", "tok")
		syncDone <- err
	}()
	<-fetcher.started

	hookDone := make(chan bool, 1)
	go func() {
		saved, err := ing.HandleUpdate(ctx, "b1", textUpdate(30, 1, "/start"))
		assert.NoError(t, err)
		hookDone <- saved
	}()

	select {
	case <-hookDone:
		t.Fatal("webhook update applied while a sync held the bot")
	case <-time.After(100 * time.Millisecond):
	}

	close(fetcher.block)
	require.NoError(t, <-syncDone)
	assert.False(t, <-hookDone, "update was already stored by the sync")

	events, err := st.QueryEvents(ctx, "b1", store.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestIngestorGivesUpWhenContextEnds(t *testing.T) {
	guard := NewGuard(nil, 0)
	release, err := guard.Acquire(context.Background(), "b1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err = NewIngestor(newStore(), guard, nil, discardLogger()).HandleUpdate(ctx, "b1", textUpdate(1, 1, "hi"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
