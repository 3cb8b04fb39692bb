// Package stripe defines the interface for Stripe API calls and webhook
// verification, and provides the helpers the checkout and webhook handlers
// share.
package stripe

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/project-delivery-backend/internal/db"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// CreatePaymentIntentParams holds the inputs for creating a Stripe PI for one
// order.
type CreatePaymentIntentParams struct {
	AmountCents  int64
	Currency     string
	Email        string
	CustomerName string
	Description  string
	Metadata     map[string]string

	// IdempotencyKey makes a retried checkout for the same order return the
	// PaymentIntent Stripe already created.
	IdempotencyKey string
}

// PaymentIntent is the subset of a Stripe PaymentIntent that callers need.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	CustomerID   string
}

// Event is a parsed Stripe webhook event. DataRaw contains the raw JSON of the
// event's data.object so handlers can unmarshal only what they need.
type Event struct {
	ID      string
	Type    string
	DataRaw json.RawMessage
}

// ─── CLIENT INTERFACE ─────────────────────────────────────────────────────────

// Client is the interface the api package uses for all Stripe calls. Tests
// inject a stub.
type Client interface {
	// CreatePaymentIntent creates a new PI and returns its client_secret.
	CreatePaymentIntent(ctx context.Context, p CreatePaymentIntentParams) (PaymentIntent, error)

	// GetClientSecret retrieves the client_secret for an existing PI by ID.
	// Used when the order already has a PI attached.
	GetClientSecret(ctx context.Context, paymentIntentID string) (string, error)

	// VerifyWebhook validates the Stripe-Signature header and returns the
	// parsed event.
	VerifyWebhook(payload []byte, sigHeader string, secret string) (Event, error)
}

// ─── HELPERS USED BY api/ ────────────────────────────────────────────────────

// AmountCents converts a dollar price to the integer minor units Stripe
// expects. Fractions of a cent are rejected rather than rounded.
func AmountCents(price decimal.Decimal) (int64, error) {
	cents := price.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("stripe: price %s has more than two decimal places", price)
	}
	if !cents.IsPositive() {
		return 0, fmt.Errorf("stripe: price %s must be positive", price)
	}
	return cents.IntPart(), nil
}

// ToUpsertParams converts a parsed Event and its raw payload into the params
// needed by db.Querier.UpsertStripeEvent.
func ToUpsertParams(event Event, rawPayload []byte) db.UpsertStripeEventParams {
	return db.UpsertStripeEventParams{
		StripeEventID: event.ID,
		Type:          event.Type,
		Payload:       pqtype.NullRawMessage{RawMessage: json.RawMessage(rawPayload), Valid: len(rawPayload) > 0},
	}
}

// ToMarkFailedParams builds the params for db.Querier.MarkStripeEventFailed.
func ToMarkFailedParams(eventID string, err error) db.MarkStripeEventFailedParams {
	return db.MarkStripeEventFailedParams{
		StripeEventID: eventID,
		Error:         sql.NullString{String: err.Error(), Valid: true},
	}
}

// ExtractPaymentIntentID pulls the PaymentIntent id field from the event's
// data.object. Works for payment_intent.* events.
func ExtractPaymentIntentID(event Event) (string, error) {
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.DataRaw, &obj); err != nil {
		return "", fmt.Errorf("stripe: unmarshal payment intent id: %w", err)
	}
	if obj.ID == "" {
		return "", fmt.Errorf("stripe: payment intent id is empty in event %s", event.ID)
	}
	return obj.ID, nil
}

// ExtractFailureMessage returns last_payment_error.message from a
// payment_intent.payment_failed event, or "" when Stripe sent none.
func ExtractFailureMessage(event Event) string {
	var obj struct {
		LastPaymentError *struct {
			Message string `json:"message"`
		} `json:"last_payment_error"`
	}
	if err := json.Unmarshal(event.DataRaw, &obj); err != nil || obj.LastPaymentError == nil {
		return ""
	}
	return obj.LastPaymentError.Message
}
