package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/project-delivery-backend/internal/delivery"
	"github.com/nyashahama/project-delivery-backend/internal/worker"
)

type recordingSender struct {
	mu      sync.Mutex
	calls   [][]uuid.UUID
	running int
	maxSeen int
	err     error
}

func (s *recordingSender) SendBatch(_ context.Context, ids []uuid.UUID) (delivery.BatchReport, error) {
	s.mu.Lock()
	s.running++
	if s.running > s.maxSeen {
		s.maxSeen = s.running
	}
	s.calls = append(s.calls, ids)
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.running--
	s.mu.Unlock()

	if s.err != nil {
		return delivery.BatchReport{}, s.err
	}
	report := delivery.BatchReport{}
	for _, id := range ids {
		report.Outcomes = append(report.Outcomes, delivery.BatchOutcome{OrderID: id, Outcome: delivery.OutcomeSent})
		report.Sent++
	}
	return report, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startRunner(t *testing.T, sender worker.BatchSender, cfg worker.RunnerConfig) *worker.Runner {
	t.Helper()
	r := worker.NewRunner(worker.NewJob(sender, quietLogger()), cfg, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func waitFor(t *testing.T, r *worker.Runner, id uuid.UUID, state string) worker.BatchState {
	t.Helper()
	var got worker.BatchState
	require.Eventually(t, func() bool {
		b, ok := r.Batch(id)
		got = b
		return ok && b.State == state
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestRunner_RunsBatchesInOrderOneAtATime(t *testing.T) {
	sender := &recordingSender{}
	r := startRunner(t, sender, worker.RunnerConfig{})

	var ids []uuid.UUID
	var batches [][]uuid.UUID
	for range 3 {
		orders := []uuid.UUID{uuid.New(), uuid.New()}
		id, err := r.Enqueue(context.Background(), orders)
		require.NoError(t, err)
		ids = append(ids, id)
		batches = append(batches, orders)
	}

	for _, id := range ids {
		b := waitFor(t, r, id, worker.BatchDone)
		require.NotNil(t, b.Report)
		assert.Equal(t, 2, b.Report.Sent)
		assert.NotNil(t, b.FinishedAt)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, batches, sender.calls)
	assert.Equal(t, 1, sender.maxSeen)
}

func TestRunner_AbortedBatch(t *testing.T) {
	sender := &recordingSender{err: &delivery.ConfigurationError{Issues: []string{"EMAIL_SENDER is not set"}}}
	r := startRunner(t, sender, worker.RunnerConfig{})

	id, err := r.Enqueue(context.Background(), []uuid.UUID{uuid.New()})
	require.NoError(t, err)

	b := waitFor(t, r, id, worker.BatchAborted)
	assert.Contains(t, b.Error, "EMAIL_SENDER is not set")
	assert.Nil(t, b.Report)
}

func TestRunner_QueueFull(t *testing.T) {
	r := worker.NewRunner(worker.NewJob(&recordingSender{}, quietLogger()), worker.RunnerConfig{QueueSize: 1}, quietLogger())

	id, err := r.Enqueue(context.Background(), []uuid.UUID{uuid.New()})
	require.NoError(t, err)

	b, ok := r.Batch(id)
	require.True(t, ok)
	assert.Equal(t, worker.BatchQueued, b.State)

	_, err = r.Enqueue(context.Background(), []uuid.UUID{uuid.New()})
	assert.True(t, errors.Is(err, worker.ErrQueueFull))
}

func TestRunner_UnknownBatch(t *testing.T) {
	r := worker.NewRunner(worker.NewJob(&recordingSender{}, quietLogger()), worker.RunnerConfig{}, quietLogger())
	_, ok := r.Batch(uuid.New())
	assert.False(t, ok)
}

func TestDefaultRunnerConfig(t *testing.T) {
	cfg := worker.DefaultRunnerConfig()
	assert.Equal(t, 16, cfg.QueueSize)
	assert.Equal(t, 30*time.Minute, cfg.BatchTimeout)
	assert.Equal(t, 100, cfg.History)
}
