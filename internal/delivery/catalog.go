package delivery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nyashahama/project-delivery-backend/internal/db"
)

// Catalog is the read side of the order and document store.
type Catalog interface {
	GetOrder(ctx context.Context, id uuid.UUID) (Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	ListProjectDocuments(ctx context.Context, projectID uuid.UUID) ([]Document, error)
}

// DBCatalog reads orders and documents through db.Querier.
type DBCatalog struct {
	q db.Querier
}

func NewCatalog(q db.Querier) *DBCatalog {
	return &DBCatalog{q: q}
}

func (c *DBCatalog) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row, err := c.q.GetOrder(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("delivery: get order: %w", err)
	}
	return OrderFromRow(row), nil
}

func (c *DBCatalog) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := c.q.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("delivery: list orders: %w", err)
	}
	out := make([]Order, len(rows))
	for i, r := range rows {
		out[i] = OrderFromRow(r)
	}
	return out, nil
}

func (c *DBCatalog) ListProjectDocuments(ctx context.Context, projectID uuid.UUID) ([]Document, error) {
	rows, err := c.q.ListDocumentsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("delivery: list documents: %w", err)
	}
	out := make([]Document, len(rows))
	for i, r := range rows {
		out[i] = DocumentFromRow(r)
	}
	return out, nil
}

// OrderFromRow maps a stored order.
func OrderFromRow(r db.OrderRow) Order {
	return Order{
		ID:            r.ID,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		ProjectID:     r.ProjectID,
		ProjectTitle:  r.ProjectTitle,
		Price:         r.Price,
		Status:        OrderStatus(r.Status),
		CreatedAt:     r.CreatedAt,
	}
}

// DocumentFromRow maps a stored document. A NULL description becomes "".
func DocumentFromRow(r db.ProjectDocument) Document {
	return Document{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		Name:        r.Name,
		URL:         r.Url,
		Category:    r.DocumentCategory,
		ReviewStage: ReviewStage(r.ReviewStage),
		Size:        r.Size,
		Description: r.Description.String,
		Active:      r.IsActive,
	}
}
