package db

import (
	"context"

	"github.com/google/uuid"
)

const orderColumns = `
	o.id, o.customer_name, o.customer_email, o.project_id, p.title,
	o.price, o.status, o.stripe_payment_intent, o.created_at
`

func scanOrderRow(row interface{ Scan(...interface{}) error }) (OrderRow, error) {
	var i OrderRow
	err := row.Scan(
		&i.ID,
		&i.CustomerName,
		&i.CustomerEmail,
		&i.ProjectID,
		&i.ProjectTitle,
		&i.Price,
		&i.Status,
		&i.StripePaymentIntent,
		&i.CreatedAt,
	)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT` + orderColumns + `
FROM orders o
JOIN projects p ON p.id = o.project_id
WHERE o.id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (OrderRow, error) {
	return scanOrderRow(q.db.QueryRowContext(ctx, getOrder, id))
}

const getOrderByPaymentIntent = `-- name: GetOrderByPaymentIntent :one
SELECT` + orderColumns + `
FROM orders o
JOIN projects p ON p.id = o.project_id
WHERE o.stripe_payment_intent = $1
`

func (q *Queries) GetOrderByPaymentIntent(ctx context.Context, stripePaymentIntent string) (OrderRow, error) {
	return scanOrderRow(q.db.QueryRowContext(ctx, getOrderByPaymentIntent, stripePaymentIntent))
}

const listOrders = `-- name: ListOrders :many
SELECT` + orderColumns + `
FROM orders o
JOIN projects p ON p.id = o.project_id
ORDER BY o.created_at DESC
`

func (q *Queries) ListOrders(ctx context.Context) ([]OrderRow, error) {
	rows, err := q.db.QueryContext(ctx, listOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderRow
	for rows.Next() {
		i, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// The write queries below re-select through the join so callers always get
// the project title back.

const markOrderProcessing = `-- name: MarkOrderProcessing :one
WITH updated AS (
	UPDATE orders SET status = 'processing', updated_at = now()
	WHERE id = $1 AND status = 'pending'
	RETURNING *
)
SELECT` + orderColumns + `
FROM updated o
JOIN projects p ON p.id = o.project_id
`

func (q *Queries) MarkOrderProcessing(ctx context.Context, id uuid.UUID) (OrderRow, error) {
	return scanOrderRow(q.db.QueryRowContext(ctx, markOrderProcessing, id))
}

const setOrderPaymentIntent = `-- name: SetOrderPaymentIntent :one
WITH updated AS (
	UPDATE orders SET stripe_payment_intent = $2, updated_at = now()
	WHERE id = $1
	RETURNING *
)
SELECT` + orderColumns + `
FROM updated o
JOIN projects p ON p.id = o.project_id
`

type SetOrderPaymentIntentParams struct {
	ID                  uuid.UUID
	StripePaymentIntent string
}

func (q *Queries) SetOrderPaymentIntent(ctx context.Context, arg SetOrderPaymentIntentParams) (OrderRow, error) {
	return scanOrderRow(q.db.QueryRowContext(ctx, setOrderPaymentIntent, arg.ID, arg.StripePaymentIntent))
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
WITH updated AS (
	UPDATE orders SET status = $2, updated_at = now()
	WHERE id = $1
	RETURNING *
)
SELECT` + orderColumns + `
FROM updated o
JOIN projects p ON p.id = o.project_id
`

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status OrderStatus
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (OrderRow, error) {
	return scanOrderRow(q.db.QueryRowContext(ctx, updateOrderStatus, arg.ID, arg.Status))
}
