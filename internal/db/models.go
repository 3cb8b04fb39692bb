package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sqlc-dev/pqtype"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (e OrderStatus) Valid() bool {
	switch e {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type ReviewStage string

const (
	ReviewStageReview1 ReviewStage = "review_1"
	ReviewStageReview2 ReviewStage = "review_2"
	ReviewStageReview3 ReviewStage = "review_3"
)

// OrderRow is an order joined with its project title.
type OrderRow struct {
	ID                  uuid.UUID
	CustomerName        string
	CustomerEmail       string
	ProjectID           uuid.UUID
	ProjectTitle        string
	Price               decimal.Decimal
	Status              OrderStatus
	StripePaymentIntent sql.NullString
	CreatedAt           time.Time
}

type ProjectDocument struct {
	ID               uuid.UUID
	ProjectID        uuid.UUID
	Name             string
	Url              string
	DocumentCategory string
	ReviewStage      ReviewStage
	Size             string
	Description      sql.NullString
	IsActive         bool
	CreatedAt        time.Time
}

type StripeEvent struct {
	StripeEventID string
	Type          string
	Payload       pqtype.NullRawMessage
	ProcessedAt   sql.NullTime
	Error         sql.NullString
	CreatedAt     time.Time
}
