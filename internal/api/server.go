// Package api implements the HTTP layer for the project delivery backend.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nyashahama/project-delivery-backend/internal/db"
	"github.com/nyashahama/project-delivery-backend/internal/delivery"
	"github.com/nyashahama/project-delivery-backend/internal/email"
	stripeinternal "github.com/nyashahama/project-delivery-backend/internal/stripe"
	"github.com/nyashahama/project-delivery-backend/internal/worker"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// StripeWebhookSecret is the signing secret from the Stripe dashboard.
	StripeWebhookSecret string

	// StripeCurrency is the ISO currency code used for PaymentIntents.
	StripeCurrency string

	// AllowedOrigin is the admin panel origin allowed by CORS in production.
	AllowedOrigin string

	// Env is "production", "staging", or "development".
	Env string
}

// OrderStore is the subset of *store.Store the handlers use for multi-step
// writes.
type OrderStore interface {
	AttachPaymentIntent(ctx context.Context, orderID uuid.UUID, paymentIntentID string) (db.OrderRow, error)
	MarkOrderPaid(ctx context.Context, paymentIntentID string) (db.OrderRow, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status db.OrderStatus) (db.OrderRow, error)
}

// Mailer sends the emails the handlers trigger directly. *email.Composer
// satisfies it.
type Mailer interface {
	SendContactForm(ctx context.Context, f email.ContactForm) error
	SendOrderConfirmation(ctx context.Context, o email.OrderConfirmation, recipient string) error
}

// Deliverer sends documents for one order. *delivery.Orchestrator satisfies
// it.
type Deliverer interface {
	SendDocuments(ctx context.Context, orderID uuid.UUID, stages []delivery.ReviewStage) (delivery.Result, error)
	Board() delivery.StatusBoard
}

// Deps are the Server's collaborators.
type Deps struct {
	Queries   db.Querier
	Store     OrderStore
	Stripe    stripeinternal.Client
	Mailer    Mailer
	Delivery  Deliverer
	Batches   worker.Enqueuer
	Readiness email.ReadinessChecker
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// q handles single-query reads and the stripe_events ledger.
	q db.Querier

	// catalog is the read model shared with the delivery orchestrator.
	catalog delivery.Catalog

	// store handles multi-step atomic writes.
	store OrderStore

	// stripe creates PaymentIntents and verifies webhook signatures.
	stripe stripeinternal.Client

	// mailer sends contact-form and order-confirmation emails.
	mailer Mailer

	// delivery sends documents and owns the per-order status board.
	delivery Deliverer

	// batches queues multi-order sends for the background runner.
	batches worker.Enqueuer

	readiness email.ReadinessChecker

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(d Deps, cfg Config, logger *slog.Logger) http.Handler {
	if cfg.StripeCurrency == "" {
		cfg.StripeCurrency = "usd"
	}
	s := &Server{
		q:         d.Queries,
		catalog:   delivery.NewCatalog(d.Queries),
		store:     d.Store,
		stripe:    d.Stripe,
		mailer:    d.Mailer,
		delivery:  d.Delivery,
		batches:   d.Batches,
		readiness: d.Readiness,
		cfg:       cfg,
		logger:    logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(30 * time.Second))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {

		// Public contact form.
		r.Post("/contact", s.handleContact)

		// Customer checkout for an existing order.
		r.Post("/orders/{order_id}/checkout", s.handleCreateCheckout)

		// Stripe webhook: no auth, the handler verifies the signature.
		r.Post("/webhooks/stripe", s.handleStripeWebhook)

		// Operator surface.
		r.Route("/admin", func(r chi.Router) {
			r.Get("/orders", s.handleListOrders)
			r.Route("/orders/{order_id}", func(r chi.Router) {
				r.Get("/", s.handleGetOrder)
				r.Patch("/status", s.handleUpdateOrderStatus)
				r.Get("/documents", s.handleOrderDocuments)
				r.Post("/deliver", s.handleDeliver)
				r.Post("/confirmation", s.handleResendConfirmation)
			})

			r.Get("/deliveries/status", s.handleDeliveryStatus)
			r.Post("/deliveries/batch", s.handleQueueBatch)
			r.Get("/deliveries/batch/{batch_id}", s.handleGetBatch)

			r.Get("/email/config", s.handleEmailConfig)
		})
	})

	return r
}
