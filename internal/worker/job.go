package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/project-delivery-backend/internal/delivery"
)

// BatchSender is the part of *delivery.Orchestrator a Job needs.
type BatchSender interface {
	SendBatch(ctx context.Context, orderIDs []uuid.UUID) (delivery.BatchReport, error)
}

// Job runs one queued batch.
type Job struct {
	sender BatchSender
	logger *slog.Logger
}

func NewJob(sender BatchSender, logger *slog.Logger) *Job {
	return &Job{sender: sender, logger: logger}
}

// Run sends the batch and logs a summary. A configuration failure aborts the
// batch and is returned; per-order failures are in the report.
func (j *Job) Run(ctx context.Context, batchID uuid.UUID, orderIDs []uuid.UUID) (delivery.BatchReport, error) {
	log := j.logger.With("batch_id", batchID)
	log.Info("job: starting", "orders", len(orderIDs))
	start := time.Now()

	report, err := j.sender.SendBatch(ctx, orderIDs)
	if err != nil {
		log.Error("job: batch aborted", "error", err)
		return report, err
	}

	for _, o := range report.Outcomes {
		if o.Outcome != delivery.OutcomeSent {
			log.Warn("job: order not delivered", "order_id", o.OrderID, "outcome", o.Outcome, "error", o.Error)
		}
	}

	log.Info("job: complete",
		"sent", report.Sent,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}
