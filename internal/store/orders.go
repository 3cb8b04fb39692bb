package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nyashahama/project-delivery-backend/internal/db"
)

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrPaymentIntentAlreadyAttached is returned when an order already has a
// Stripe PaymentIntent. The checkout handler returns the existing
// client_secret instead of creating a second PaymentIntent.
var ErrPaymentIntentAlreadyAttached = errors.New("store: payment intent already attached to order")

// ErrOrderAlreadyPaid is returned by MarkOrderPaid when the order has already
// left the pending status. Webhook replays treat this as success.
var ErrOrderAlreadyPaid = errors.New("store: order already paid")

// ErrOrderNotFound is returned when no order matches the lookup.
var ErrOrderNotFound = errors.New("store: order not found")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// AttachPaymentIntent writes the PaymentIntent id onto the order unless one is
// already present. Two concurrent checkouts for the same order serialize on
// the transaction: the loser gets ErrPaymentIntentAlreadyAttached together with
// the order as committed by the winner.
func (s *Store) AttachPaymentIntent(ctx context.Context, orderID uuid.UUID, paymentIntentID string) (db.OrderRow, error) {
	var order db.OrderRow

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		existing, err := q.GetOrder(ctx, orderID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("AttachPaymentIntent: get order: %w", err)
		}

		if existing.StripePaymentIntent.Valid && existing.StripePaymentIntent.String != "" {
			order = existing
			return ErrPaymentIntentAlreadyAttached
		}

		updated, err := q.SetOrderPaymentIntent(ctx, db.SetOrderPaymentIntentParams{
			ID:                  orderID,
			StripePaymentIntent: paymentIntentID,
		})
		if err != nil {
			return fmt.Errorf("AttachPaymentIntent: set payment intent: %w", err)
		}

		order = updated
		return nil
	})

	if errors.Is(err, ErrPaymentIntentAlreadyAttached) {
		return order, ErrPaymentIntentAlreadyAttached
	}
	if err != nil {
		return db.OrderRow{}, err
	}
	return order, nil
}

// MarkOrderPaid is called by the Stripe webhook on payment_intent.succeeded.
// It atomically:
//
//  1. Looks the order up by its PaymentIntent.
//  2. Returns ErrOrderAlreadyPaid (with the order) if it is no longer pending.
//  3. Moves the order from pending to processing.
//
// Duplicate webhook deliveries therefore never send a second confirmation.
func (s *Store) MarkOrderPaid(ctx context.Context, paymentIntentID string) (db.OrderRow, error) {
	var order db.OrderRow

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		existing, err := q.GetOrderByPaymentIntent(ctx, paymentIntentID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("MarkOrderPaid: get order: %w", err)
		}

		if existing.Status != db.OrderStatusPending {
			order = existing
			return ErrOrderAlreadyPaid
		}

		updated, err := q.MarkOrderProcessing(ctx, existing.ID)
		if err != nil {
			return fmt.Errorf("MarkOrderPaid: mark processing: %w", err)
		}

		order = updated
		return nil
	})

	if errors.Is(err, ErrOrderAlreadyPaid) {
		return order, ErrOrderAlreadyPaid
	}
	if err != nil {
		return db.OrderRow{}, err
	}
	return order, nil
}

// UpdateOrderStatus sets the lifecycle status chosen by an operator. It is a
// single-query write but lives here so handlers get the not-found mapping.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status db.OrderStatus) (db.OrderRow, error) {
	if !status.Valid() {
		return db.OrderRow{}, fmt.Errorf("UpdateOrderStatus: invalid status %q", status)
	}
	order, err := s.q.UpdateOrderStatus(ctx, db.UpdateOrderStatusParams{ID: orderID, Status: status})
	if errors.Is(err, sql.ErrNoRows) {
		return db.OrderRow{}, ErrOrderNotFound
	}
	if err != nil {
		return db.OrderRow{}, fmt.Errorf("UpdateOrderStatus: %w", err)
	}
	return order, nil
}
