package delivery_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/project-delivery-backend/internal/delivery"
)

// ─── FAKE SCHEDULER ───────────────────────────────────────────────────────────

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) schedule(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		was := !t.stopped
		t.stopped = true
		return was
	}
}

// fire runs every timer that has not been stopped.
func (s *fakeScheduler) fire() {
	s.mu.Lock()
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped {
			t.stopped = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (s *fakeScheduler) last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[len(s.timers)-1]
}

func status(t *testing.T, b delivery.StatusBoard, id uuid.UUID) delivery.Status {
	t.Helper()
	e, ok, err := b.Get(context.Background(), id)
	require.NoError(t, err)
	if !ok {
		return ""
	}
	return e.Status
}

// ─── MemoryBoard ──────────────────────────────────────────────────────────────

func TestMemoryBoard_SuccessResetsAfterThreeSeconds(t *testing.T) {
	sched := &fakeScheduler{}
	b := delivery.NewMemoryBoard(sched.schedule)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, b.Begin(ctx, id))
	assert.Equal(t, delivery.StatusSending, status(t, b, id))

	require.NoError(t, b.Succeed(ctx, id))
	assert.Equal(t, delivery.StatusSuccess, status(t, b, id))
	assert.Equal(t, 3*time.Second, sched.last().d)

	sched.fire()
	assert.Equal(t, delivery.Status(""), status(t, b, id))
}

func TestMemoryBoard_ErrorResetsAfterFiveSeconds(t *testing.T) {
	sched := &fakeScheduler{}
	b := delivery.NewMemoryBoard(sched.schedule)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, b.Begin(ctx, id))
	require.NoError(t, b.Fail(ctx, id, "boom"))

	e, ok, err := b.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, delivery.StatusError, e.Status)
	assert.Equal(t, "boom", e.Message)
	assert.Equal(t, 5*time.Second, sched.last().d)

	sched.fire()
	assert.Equal(t, delivery.Status(""), status(t, b, id))
}

func TestMemoryBoard_RejectsSecondBegin(t *testing.T) {
	b := delivery.NewMemoryBoard(nil)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, b.Begin(ctx, id))
	assert.ErrorIs(t, b.Begin(ctx, id), delivery.ErrSendInProgress)
	assert.NoError(t, b.Begin(ctx, uuid.New()), "other orders are independent")
}

func TestMemoryBoard_RetryDuringDisplayWindow(t *testing.T) {
	sched := &fakeScheduler{}
	b := delivery.NewMemoryBoard(sched.schedule)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, b.Begin(ctx, id))
	require.NoError(t, b.Fail(ctx, id, "first"))
	stale := sched.last()

	require.NoError(t, b.Begin(ctx, id), "error status allows retry")
	assert.True(t, stale.stopped, "newer transition cancels the pending reset")

	// A timer that already fired concurrently must not revert the new status.
	stale.f()
	assert.Equal(t, delivery.StatusSending, status(t, b, id))

	require.NoError(t, b.Succeed(ctx, id))
	sched.fire()
	assert.Equal(t, delivery.Status(""), status(t, b, id))
}

func TestMemoryBoard_Snapshot(t *testing.T) {
	b := delivery.NewMemoryBoard(nil)
	ctx := context.Background()

	empty, err := b.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	a, c := uuid.New(), uuid.New()
	require.NoError(t, b.Begin(ctx, a))
	require.NoError(t, b.Begin(ctx, c))

	entries, err := b.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, delivery.StatusSending, e.Status)
	}
}

func TestMemoryBoard_WallClock(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the real display window")
	}
	b := delivery.NewMemoryBoard(nil)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, b.Begin(ctx, id))
	require.NoError(t, b.Succeed(ctx, id))

	time.Sleep(delivery.SuccessWindow - 500*time.Millisecond)
	assert.Equal(t, delivery.StatusSuccess, status(t, b, id))

	assert.Eventually(t, func() bool {
		_, ok, _ := b.Get(ctx, id)
		return !ok
	}, 2*time.Second, 50*time.Millisecond)
}
