package db

import (
	"context"

	"github.com/google/uuid"
)

type Querier interface {
	GetOrder(ctx context.Context, id uuid.UUID) (OrderRow, error)
	GetOrderByPaymentIntent(ctx context.Context, stripePaymentIntent string) (OrderRow, error)
	ListDocumentsByProject(ctx context.Context, projectID uuid.UUID) ([]ProjectDocument, error)
	ListOrders(ctx context.Context) ([]OrderRow, error)
	MarkOrderProcessing(ctx context.Context, id uuid.UUID) (OrderRow, error)
	MarkStripeEventFailed(ctx context.Context, arg MarkStripeEventFailedParams) (StripeEvent, error)
	MarkStripeEventProcessed(ctx context.Context, stripeEventID string) (StripeEvent, error)
	SetOrderPaymentIntent(ctx context.Context, arg SetOrderPaymentIntentParams) (OrderRow, error)
	UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (OrderRow, error)
	UpsertStripeEvent(ctx context.Context, arg UpsertStripeEventParams) (StripeEvent, error)
}

var _ Querier = (*Queries)(nil)
