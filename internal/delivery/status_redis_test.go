package delivery_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/project-delivery-backend/internal/delivery"
)

func newRedisBoard(t *testing.T) (*delivery.RedisBoard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return delivery.NewRedisBoard(rdb), mr
}

func TestRedisBoard_SuccessWindow(t *testing.T) {
	b, mr := newRedisBoard(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, b.Begin(ctx, id))
	assert.ErrorIs(t, b.Begin(ctx, id), delivery.ErrSendInProgress)

	require.NoError(t, b.Succeed(ctx, id))
	assert.Equal(t, delivery.StatusSuccess, status(t, b, id))

	mr.FastForward(delivery.SuccessWindow - 100*time.Millisecond)
	assert.Equal(t, delivery.StatusSuccess, status(t, b, id))

	mr.FastForward(100 * time.Millisecond)
	assert.Equal(t, delivery.Status(""), status(t, b, id))
}

func TestRedisBoard_ErrorWindowAndRetry(t *testing.T) {
	b, mr := newRedisBoard(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, b.Begin(ctx, id))
	require.NoError(t, b.Fail(ctx, id, "401 - bad token"))

	e, ok, err := b.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, delivery.StatusError, e.Status)
	assert.Equal(t, "401 - bad token", e.Message)
	assert.False(t, e.UpdatedAt.IsZero())

	mr.FastForward(delivery.SuccessWindow)
	assert.Equal(t, delivery.StatusError, status(t, b, id), "error outlives the success window")

	require.NoError(t, b.Begin(ctx, id), "retry allowed while error is displayed")
	assert.Equal(t, delivery.StatusSending, status(t, b, id))
}

func TestRedisBoard_StaleSendingClaimExpires(t *testing.T) {
	b, mr := newRedisBoard(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, b.Begin(ctx, id))
	mr.FastForward(delivery.SendingTTL)
	assert.NoError(t, b.Begin(ctx, id))
}

func TestRedisBoard_LateFinishKeepsNewerClaim(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	id := uuid.New()

	newBoard := func() *delivery.RedisBoard {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return delivery.NewRedisBoard(rdb)
	}
	slow, fast := newBoard(), newBoard()

	require.NoError(t, slow.Begin(ctx, id))
	mr.FastForward(delivery.SendingTTL)
	require.NoError(t, fast.Begin(ctx, id))

	assert.ErrorIs(t, slow.Succeed(ctx, id), delivery.ErrClaimLost)
	assert.Equal(t, delivery.StatusSending, status(t, fast, id))

	require.NoError(t, fast.Fail(ctx, id, "timeout"))
	assert.Equal(t, delivery.StatusError, status(t, fast, id))
}

func TestRedisBoard_FinishAfterClaimExpiredWritesNothing(t *testing.T) {
	b, mr := newRedisBoard(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, b.Begin(ctx, id))
	mr.FastForward(delivery.SendingTTL)

	assert.ErrorIs(t, b.Fail(ctx, id, "late"), delivery.ErrClaimLost)
	assert.Equal(t, delivery.Status(""), status(t, b, id))
}

func TestRedisBoard_Snapshot(t *testing.T) {
	b, mr := newRedisBoard(t)
	ctx := context.Background()

	a, c := uuid.New(), uuid.New()
	require.NoError(t, b.Begin(ctx, a))
	require.NoError(t, b.Begin(ctx, c))
	require.NoError(t, b.Succeed(ctx, c))
	mr.Set("unrelated", "x")

	entries, err := b.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	got := map[uuid.UUID]delivery.Status{}
	for _, e := range entries {
		got[e.OrderID] = e.Status
	}
	assert.Equal(t, map[uuid.UUID]delivery.Status{a: delivery.StatusSending, c: delivery.StatusSuccess}, got)
}
