package delivery

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the order lifecycle as stored.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Order is read-only here; the storage layer owns it.
type Order struct {
	ID            uuid.UUID       `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	ProjectID     uuid.UUID       `json:"project_id"`
	ProjectTitle  string          `json:"project_title"`
	Price         decimal.Decimal `json:"price"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// FormattedPrice renders the price as "$1,234.50".
func (o Order) FormattedPrice() string {
	return FormatPrice(o.Price)
}

// FormatPrice renders d in dollars with thousands separators.
func FormatPrice(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac := fixed[:len(fixed)-3], fixed[len(fixed)-2:]

	var grouped []byte
	for i := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, whole[i])
	}
	return sign + "$" + string(grouped) + "." + frac
}

// Document is one entry of a project's document catalog.
type Document struct {
	ID          uuid.UUID   `json:"id"`
	ProjectID   uuid.UUID   `json:"project_id"`
	Name        string      `json:"name"`
	URL         string      `json:"url"`
	Category    string      `json:"document_category"`
	ReviewStage ReviewStage `json:"review_stage"`
	Size        string      `json:"size"`
	Description string      `json:"description,omitempty"`
	Active      bool        `json:"is_active"`
}
