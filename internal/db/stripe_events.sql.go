package db

import (
	"context"
	"database/sql"

	"github.com/sqlc-dev/pqtype"
)

const stripeEventColumns = `stripe_event_id, type, payload, processed_at, error, created_at`

func scanStripeEvent(row *sql.Row) (StripeEvent, error) {
	var i StripeEvent
	err := row.Scan(
		&i.StripeEventID,
		&i.Type,
		&i.Payload,
		&i.ProcessedAt,
		&i.Error,
		&i.CreatedAt,
	)
	return i, err
}

const upsertStripeEvent = `-- name: UpsertStripeEvent :one
INSERT INTO stripe_events (stripe_event_id, type, payload)
VALUES ($1, $2, $3)
ON CONFLICT (stripe_event_id) DO UPDATE SET error = NULL
WHERE stripe_events.processed_at IS NULL
RETURNING ` + stripeEventColumns

type UpsertStripeEventParams struct {
	StripeEventID string
	Type          string
	Payload       pqtype.NullRawMessage
}

// UpsertStripeEvent returns sql.ErrNoRows when the event id was already
// processed. An event recorded by a failed delivery is returned again, with
// its error cleared, so the retry runs the handler.
func (q *Queries) UpsertStripeEvent(ctx context.Context, arg UpsertStripeEventParams) (StripeEvent, error) {
	return scanStripeEvent(q.db.QueryRowContext(ctx, upsertStripeEvent, arg.StripeEventID, arg.Type, arg.Payload))
}

const markStripeEventProcessed = `-- name: MarkStripeEventProcessed :one
UPDATE stripe_events SET processed_at = now(), error = NULL
WHERE stripe_event_id = $1
RETURNING ` + stripeEventColumns

func (q *Queries) MarkStripeEventProcessed(ctx context.Context, stripeEventID string) (StripeEvent, error) {
	return scanStripeEvent(q.db.QueryRowContext(ctx, markStripeEventProcessed, stripeEventID))
}

const markStripeEventFailed = `-- name: MarkStripeEventFailed :one
UPDATE stripe_events SET error = $2
WHERE stripe_event_id = $1
RETURNING ` + stripeEventColumns

type MarkStripeEventFailedParams struct {
	StripeEventID string
	Error         sql.NullString
}

func (q *Queries) MarkStripeEventFailed(ctx context.Context, arg MarkStripeEventFailedParams) (StripeEvent, error) {
	return scanStripeEvent(q.db.QueryRowContext(ctx, markStripeEventFailed, arg.StripeEventID, arg.Error))
}
