package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/nyashahama/project-delivery-backend/internal/db"
	"github.com/nyashahama/project-delivery-backend/internal/store"
	stripeinternal "github.com/nyashahama/project-delivery-backend/internal/stripe"
)

// ─── POST /api/orders/:order_id/checkout ──────────────────────────────────────

type createCheckoutResponse struct {
	// ClientSecret is the Stripe PaymentIntent client_secret. The browser
	// passes this to Stripe.js to render the payment UI and confirm the charge.
	ClientSecret string `json:"client_secret"`
	// IsExisting is true when the order already had a PaymentIntent (i.e. the
	// customer opened checkout twice).
	IsExisting bool `json:"is_existing,omitempty"`
}

// handleCreateCheckout creates a Stripe PaymentIntent for a pending order and
// returns the client_secret to the browser.
//
// Two concurrent calls for the same order are serialized by
// store.AttachPaymentIntent. The loser receives ErrPaymentIntentAlreadyAttached
// together with the winning order and returns its client_secret.
func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "order_id")
	if !ok {
		return
	}

	order, err := s.q.GetOrder(r.Context(), orderID)
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get order: %w", err))
		return
	}

	if order.Status != db.OrderStatusPending {
		respondErr(w, http.StatusConflict, "order is not awaiting payment")
		return
	}

	// ── Fast path: order already has a PI ─────────────────────────────────────
	if order.StripePaymentIntent.Valid && order.StripePaymentIntent.String != "" {
		clientSecret, err := s.stripe.GetClientSecret(r.Context(), order.StripePaymentIntent.String)
		if err == nil {
			respond(w, http.StatusOK, createCheckoutResponse{ClientSecret: clientSecret, IsExisting: true})
			return
		}
		// The store still refuses to attach a second PI, so this order
		// cannot be checked out until an operator clears it.
		s.respondInternalErr(w, r, fmt.Errorf("get client secret for %s: %w", order.StripePaymentIntent.String, err))
		return
	}

	amount, err := stripeinternal.AmountCents(order.Price)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("order %s amount: %w", orderID, err))
		return
	}

	// ── Create a new Stripe PaymentIntent ─────────────────────────────────────
	pi, err := s.stripe.CreatePaymentIntent(r.Context(), stripeinternal.CreatePaymentIntentParams{
		AmountCents:  amount,
		Currency:     s.cfg.StripeCurrency,
		Email:        order.CustomerEmail,
		CustomerName: order.CustomerName,
		Description:  order.ProjectTitle,
		Metadata: map[string]string{
			"order_id": orderID.String(),
		},
		IdempotencyKey: "order-checkout-" + orderID.String(),
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create payment intent: %w", err))
		return
	}

	// ── Atomically attach the PI to the order ─────────────────────────────────
	winner, err := s.store.AttachPaymentIntent(r.Context(), orderID, pi.ID)

	if errors.Is(err, store.ErrPaymentIntentAlreadyAttached) {
		s.logger.Info("checkout: lost race, returning existing PI",
			"order_id", orderID,
			logField(r),
		)
		clientSecret, stripeErr := s.stripe.GetClientSecret(r.Context(), winner.StripePaymentIntent.String)
		if stripeErr != nil {
			s.respondInternalErr(w, r, fmt.Errorf("get client secret after race: %w", stripeErr))
			return
		}
		respond(w, http.StatusOK, createCheckoutResponse{ClientSecret: clientSecret, IsExisting: true})
		return
	}
	if errors.Is(err, store.ErrOrderNotFound) {
		respondErr(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("attach payment intent: %w", err))
		return
	}

	respond(w, http.StatusOK, createCheckoutResponse{ClientSecret: pi.ClientSecret})
}
