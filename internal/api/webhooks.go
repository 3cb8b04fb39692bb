package api

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nyashahama/project-delivery-backend/internal/delivery"
	"github.com/nyashahama/project-delivery-backend/internal/email"
	"github.com/nyashahama/project-delivery-backend/internal/store"
	stripeinternal "github.com/nyashahama/project-delivery-backend/internal/stripe"
)

// ─── POST /api/webhooks/stripe ────────────────────────────────────────────────

// handleStripeWebhook is the entry point for all Stripe webhook deliveries.
//
// Stripe delivers events at-least-once and may retry on non-2xx responses.
// The handler must be idempotent: every operation it performs uses
// upsert/insert-or-ignore patterns so replays are safe.
//
// The only events we act on are:
//   - payment_intent.succeeded      → order to processing + confirmation email
//   - payment_intent.payment_failed → logged; the order stays pending
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	// ── 1. Read and size-limit the body ───────────────────────────────────────
	// Stripe recommends reading the raw body before any other processing so
	// the signature check runs against the exact bytes Stripe signed.
	r.Body = http.MaxBytesReader(w, r.Body, 65536) // 64 KB, enough for any Stripe event
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "could not read request body")
		return
	}

	// ── 2. Verify the Stripe-Signature header ─────────────────────────────────
	sig := r.Header.Get("Stripe-Signature")
	event, err := s.stripe.VerifyWebhook(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Warn("webhook: invalid signature", "error", err, logField(r))
		respondErr(w, http.StatusBadRequest, "invalid webhook signature")
		return
	}

	// ── 3. Idempotency: record the event, skip if already processed ───────────
	// UpsertStripeEvent only updates rows not yet processed. For an event that
	// already completed Postgres returns zero rows, which sqlc surfaces as
	// sql.ErrNoRows, not a nil struct. We treat that as an idempotent success
	// and ack immediately so Stripe stops retrying. A retry of a failed
	// delivery gets its row back and runs the handler again.
	_, err = s.q.UpsertStripeEvent(r.Context(), stripeinternal.ToUpsertParams(event, payload))
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("webhook: event already processed, skipping", "event_id", event.ID, logField(r))
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("upsert stripe event: %w", err))
		return
	}

	// ── 4. Dispatch by event type ─────────────────────────────────────────────
	var handlerErr error

	switch event.Type {
	case "payment_intent.succeeded":
		handlerErr = s.onPaymentSucceeded(r, event)

	case "payment_intent.payment_failed":
		handlerErr = s.onPaymentFailed(r, event)

	default:
		// Unknown event type: ack immediately so Stripe stops retrying.
		s.logger.Debug("webhook: unhandled event type", "type", event.Type, logField(r))
	}

	// ── 5. Mark event processed (or failed) ───────────────────────────────────
	if handlerErr != nil {
		s.logger.Error("webhook: handler error",
			"event_id", event.ID,
			"type", event.Type,
			"error", handlerErr,
			logField(r),
		)
		// Record the failure in stripe_events for later investigation.
		_, _ = s.q.MarkStripeEventFailed(r.Context(), stripeinternal.ToMarkFailedParams(event.ID, handlerErr))
		// Return 500 so Stripe retries delivery.
		respondErr(w, http.StatusInternalServerError, "webhook handler failed")
		return
	}

	_, _ = s.q.MarkStripeEventProcessed(r.Context(), event.ID)
	w.WriteHeader(http.StatusOK)
}

// ─── EVENT HANDLERS ───────────────────────────────────────────────────────────

func (s *Server) onPaymentSucceeded(r *http.Request, event stripeinternal.Event) error {
	piID, err := stripeinternal.ExtractPaymentIntentID(event)
	if err != nil {
		return fmt.Errorf("onPaymentSucceeded: extract PI id: %w", err)
	}

	// MarkOrderPaid moves the order out of pending exactly once.
	// ErrOrderAlreadyPaid means a duplicate delivery: the confirmation has
	// already gone out.
	order, err := s.store.MarkOrderPaid(r.Context(), piID)
	if errors.Is(err, store.ErrOrderAlreadyPaid) {
		s.logger.Debug("webhook: order already paid",
			"order_id", order.ID,
			"status", order.Status,
			logField(r),
		)
		return nil
	}
	if errors.Is(err, store.ErrOrderNotFound) {
		// A PaymentIntent created outside checkout. Nothing to update.
		s.logger.Warn("webhook: no order for payment intent", "pi_id", piID, logField(r))
		return nil
	}
	if err != nil {
		return fmt.Errorf("onPaymentSucceeded: mark order paid: %w", err)
	}

	// The payment is recorded; a failed confirmation email must not make
	// Stripe retry the event. Operators can resend it from the admin surface.
	confirmErr := s.mailer.SendOrderConfirmation(r.Context(), email.OrderConfirmation{
		OrderID:      order.ID.String(),
		CustomerName: order.CustomerName,
		ProjectTitle: order.ProjectTitle,
		Price:        delivery.FormatPrice(order.Price),
	}, order.CustomerEmail)
	s.logAndIgnoreEmailErr(r, confirmErr, "order confirmation")

	s.logger.Info("webhook: order paid",
		"order_id", order.ID,
		"pi_id", piID,
		logField(r),
	)
	return nil
}

func (s *Server) onPaymentFailed(r *http.Request, event stripeinternal.Event) error {
	piID, err := stripeinternal.ExtractPaymentIntentID(event)
	if err != nil {
		return fmt.Errorf("onPaymentFailed: extract PI id: %w", err)
	}

	order, err := s.q.GetOrderByPaymentIntent(r.Context(), piID)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("webhook: no order for failed payment intent", "pi_id", piID, logField(r))
		return nil
	}
	if err != nil {
		return fmt.Errorf("onPaymentFailed: get order: %w", err)
	}

	s.logger.Info("webhook: payment failed",
		"order_id", order.ID,
		"pi_id", piID,
		"reason", stripeinternal.ExtractFailureMessage(event),
		logField(r),
	)
	return nil
}
