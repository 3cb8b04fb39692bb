// Package worker runs queued batch deliveries in the background. The api
// package holds a worker.Enqueuer and never imports the concrete Runner.
//
// Batches run one at a time on a single goroutine, in the order they were
// queued, so provider calls never overlap.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/project-delivery-backend/internal/delivery"
)

// ErrQueueFull is returned by Enqueue when the backlog is at capacity.
var ErrQueueFull = errors.New("worker: batch queue is full")

// ─── ENQUEUER INTERFACE ───────────────────────────────────────────────────────

// Enqueuer is the narrow interface the api package uses to hand off batches.
// In tests, any struct with these methods satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, orderIDs []uuid.UUID) (uuid.UUID, error)
	Batch(id uuid.UUID) (BatchState, bool)
}

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. Zero fields take the
// values from DefaultRunnerConfig.
type RunnerConfig struct {
	// QueueSize is how many batches may wait behind the running one.
	QueueSize int

	// BatchTimeout bounds a whole batch. Orders not reached in time are
	// reported as skipped.
	BatchTimeout time.Duration

	// History is how many finished batches stay queryable.
	History int
}

func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		QueueSize:    16,
		BatchTimeout: 30 * time.Minute,
		History:      100,
	}
}

// Batch states.
const (
	BatchQueued  = "queued"
	BatchRunning = "running"
	BatchDone    = "done"
	BatchAborted = "aborted"
)

// BatchState is the progress of one queued batch.
type BatchState struct {
	ID         uuid.UUID             `json:"id"`
	State      string                `json:"state"`
	OrderIDs   []uuid.UUID           `json:"order_ids"`
	Report     *delivery.BatchReport `json:"report,omitempty"`
	Error      string                `json:"error,omitempty"`
	QueuedAt   time.Time             `json:"queued_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
}

type request struct {
	id       uuid.UUID
	orderIDs []uuid.UUID
}

// Runner executes queued batches sequentially.
type Runner struct {
	job    *Job
	cfg    RunnerConfig
	logger *slog.Logger

	queue chan request

	mu      sync.Mutex
	batches map[uuid.UUID]*BatchState
	order   []uuid.UUID // insertion order, for trimming history
}

// NewRunner constructs a Runner. Call Start() to begin processing.
func NewRunner(job *Job, cfg RunnerConfig, logger *slog.Logger) *Runner {
	def := DefaultRunnerConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = def.BatchTimeout
	}
	if cfg.History <= 0 {
		cfg.History = def.History
	}

	return &Runner{
		job:     job,
		cfg:     cfg,
		logger:  logger,
		queue:   make(chan request, cfg.QueueSize),
		batches: make(map[uuid.UUID]*BatchState),
	}
}

// Enqueue queues orderIDs as one batch and returns its id. It never blocks
// the HTTP response: a full queue is an error.
func (r *Runner) Enqueue(_ context.Context, orderIDs []uuid.UUID) (uuid.UUID, error) {
	req := request{id: uuid.New(), orderIDs: append([]uuid.UUID(nil), orderIDs...)}

	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case r.queue <- req:
	default:
		return uuid.Nil, ErrQueueFull
	}

	r.batches[req.id] = &BatchState{
		ID:       req.id,
		State:    BatchQueued,
		OrderIDs: req.orderIDs,
		QueuedAt: time.Now(),
	}
	r.order = append(r.order, req.id)
	r.trim()

	r.logger.Info("worker: enqueued batch", "batch_id", req.id, "orders", len(orderIDs))
	return req.id, nil
}

// Batch returns a copy of the batch's current state.
func (r *Runner) Batch(id uuid.UUID) (BatchState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.batches[id]
	if !ok {
		return BatchState{}, false
	}
	return *b, true
}

// Start processes batches until ctx is cancelled. Call it in a goroutine from
// main:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting", "queue_size", r.cfg.QueueSize, "batch_timeout", r.cfg.BatchTimeout)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("worker: stopped")
			return
		case req := <-r.queue:
			r.run(ctx, req)
		}
	}
}

func (r *Runner) run(ctx context.Context, req request) {
	r.update(req.id, func(b *BatchState) { b.State = BatchRunning })

	jobCtx, cancel := context.WithTimeout(ctx, r.cfg.BatchTimeout)
	report, err := r.job.Run(jobCtx, req.id, req.orderIDs)
	cancel()

	now := time.Now()
	r.update(req.id, func(b *BatchState) {
		b.FinishedAt = &now
		if err != nil {
			b.State = BatchAborted
			b.Error = err.Error()
			return
		}
		b.State = BatchDone
		b.Report = &report
	})
}

func (r *Runner) update(id uuid.UUID, fn func(*BatchState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.batches[id]; ok {
		fn(b)
	}
}

// trim drops the oldest finished batches beyond History. r.mu must be held.
func (r *Runner) trim() {
	for len(r.order) > r.cfg.History {
		oldest := r.order[0]
		if b := r.batches[oldest]; b != nil && (b.State == BatchQueued || b.State == BatchRunning) {
			return
		}
		delete(r.batches, oldest)
		r.order = r.order[1:]
	}
}
