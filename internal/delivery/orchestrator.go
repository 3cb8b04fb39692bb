package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/project-delivery-backend/internal/email"
)

// Mailer sends the document delivery email. *email.Composer satisfies it.
type Mailer interface {
	SendDocumentDelivery(ctx context.Context, d email.DocumentDelivery) error
}

// Linker turns a stored document URL into the link the customer receives.
// A zero expiry means the link does not expire.
type Linker interface {
	DownloadURL(ctx context.Context, raw string) (string, time.Time, error)
}

// directLinker is used when object storage is not configured. Public URLs
// pass through; s3:// objects cannot be reached by the customer.
type directLinker struct{}

func (directLinker) DownloadURL(_ context.Context, raw string) (string, time.Time, error) {
	if strings.HasPrefix(strings.ToLower(raw), "s3://") {
		return "", time.Time{}, ErrStorageNotConfigured
	}
	return raw, time.Time{}, nil
}

// Deps are the Orchestrator's collaborators. Board and Links are optional.
type Deps struct {
	Catalog   Catalog
	Mailer    Mailer
	Readiness email.ReadinessChecker
	Board     StatusBoard
	Links     Linker
	Logger    *slog.Logger
}

// Orchestrator drives single and batch document sends.
type Orchestrator struct {
	catalog   Catalog
	mailer    Mailer
	readiness email.ReadinessChecker
	board     StatusBoard
	links     Linker
	logger    *slog.Logger
}

func NewOrchestrator(d Deps) *Orchestrator {
	o := &Orchestrator{
		catalog:   d.Catalog,
		mailer:    d.Mailer,
		readiness: d.Readiness,
		board:     d.Board,
		links:     d.Links,
		logger:    d.Logger,
	}
	if o.board == nil {
		o.board = NewMemoryBoard(nil)
	}
	if o.links == nil {
		o.links = directLinker{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Board exposes the status board for read-only views.
func (o *Orchestrator) Board() StatusBoard { return o.board }

// Result describes a completed send.
type Result struct {
	OrderID       uuid.UUID `json:"order_id"`
	Recipient     string    `json:"recipient"`
	DocumentCount int       `json:"documents_count"`
	ReviewStages  string    `json:"review_stages"`
}

// SendDocuments emails the order's active documents for stages.
//
// Readiness, an empty stage set, an unknown order and an invalid recipient
// are reported without touching the status board. Once sending, the outcome
// is recorded as success or error.
func (o *Orchestrator) SendDocuments(ctx context.Context, orderID uuid.UUID, stages []ReviewStage) (Result, error) {
	if err := o.checkReady(); err != nil {
		return Result{}, err
	}
	return o.send(ctx, orderID, stages)
}

func (o *Orchestrator) checkReady() error {
	r := o.readiness.Check()
	if !r.Configured {
		return &ConfigurationError{Issues: r.Issues}
	}
	return nil
}

func (o *Orchestrator) send(ctx context.Context, orderID uuid.UUID, stages []ReviewStage) (Result, error) {
	stages = normalizeStages(stages)
	if len(stages) == 0 {
		return Result{}, ErrNoStagesSelected
	}

	order, err := o.catalog.GetOrder(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if err := email.ValidateAddress("customer", order.CustomerEmail); err != nil {
		return Result{}, err
	}

	if err := o.board.Begin(ctx, orderID); err != nil {
		return Result{}, err
	}

	res, err := o.deliver(ctx, order, stages)
	if err != nil {
		o.logger.Error("delivery: send failed",
			"order_id", orderID,
			"stages", StagesLabel(stages),
			"error", err,
		)
		if bErr := o.board.Fail(context.WithoutCancel(ctx), orderID, FailureAlert(err)); bErr != nil {
			o.logger.Error("delivery: record failure", "order_id", orderID, "error", bErr)
		}
		return Result{}, err
	}

	if bErr := o.board.Succeed(context.WithoutCancel(ctx), orderID); bErr != nil {
		o.logger.Error("delivery: record success", "order_id", orderID, "error", bErr)
	}
	o.logger.Info("delivery: documents sent",
		"order_id", orderID,
		"documents", res.DocumentCount,
		"stages", res.ReviewStages,
	)
	return res, nil
}

func (o *Orchestrator) deliver(ctx context.Context, order Order, stages []ReviewStage) (Result, error) {
	docs, err := o.catalog.ListProjectDocuments(ctx, order.ProjectID)
	if err != nil {
		return Result{}, err
	}

	eligible, err := Resolve(order, docs, stages)
	if err != nil {
		return Result{}, err
	}

	var earliest time.Time
	out := make([]email.Document, len(eligible))
	for i, d := range eligible {
		link, expires, err := o.links.DownloadURL(ctx, d.URL)
		if err != nil {
			return Result{}, fmt.Errorf("delivery: link %q: %w", d.Name, err)
		}
		if !expires.IsZero() && (earliest.IsZero() || expires.Before(earliest)) {
			earliest = expires
		}
		out[i] = email.Document{
			Name:        d.Name,
			URL:         link,
			Category:    d.Category,
			ReviewStage: string(d.ReviewStage),
			Description: d.Description,
		}
	}

	msg := email.DocumentDelivery{
		CustomerName:      order.CustomerName,
		CustomerEmail:     order.CustomerEmail,
		ProjectTitle:      order.ProjectTitle,
		OrderID:           order.ID.String(),
		Documents:         out,
		ReviewStagesLabel: StagesLabel(stages),
	}
	if !earliest.IsZero() {
		msg.AccessExpires = earliest.Format("January 2, 2006 3:04 PM MST")
	}

	if err := o.mailer.SendDocumentDelivery(ctx, msg); err != nil {
		return Result{}, err
	}

	return Result{
		OrderID:       order.ID,
		Recipient:     order.CustomerEmail,
		DocumentCount: len(out),
		ReviewStages:  msg.ReviewStagesLabel,
	}, nil
}

// ─── BATCH ───────────────────────────────────────────────────────────────────

// Outcome of one order within a batch.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

type BatchOutcome struct {
	OrderID uuid.UUID `json:"order_id"`
	Outcome string    `json:"outcome"`
	Error   string    `json:"error,omitempty"`
}

type BatchReport struct {
	Outcomes []BatchOutcome `json:"outcomes"`
	Sent     int            `json:"sent"`
	Failed   int            `json:"failed"`
	Skipped  int            `json:"skipped"`
}

// SendBatch sends every stage's documents to each order in turn. Readiness is
// checked once up front; an unconfigured provider aborts the whole batch
// before any status changes. A failing order never stops the batch. When ctx
// is cancelled the remaining orders are skipped.
func (o *Orchestrator) SendBatch(ctx context.Context, orderIDs []uuid.UUID) (BatchReport, error) {
	if err := o.checkReady(); err != nil {
		return BatchReport{}, err
	}

	report := BatchReport{Outcomes: make([]BatchOutcome, 0, len(orderIDs))}
	for _, id := range orderIDs {
		if ctx.Err() != nil {
			report.Outcomes = append(report.Outcomes, BatchOutcome{OrderID: id, Outcome: OutcomeSkipped, Error: ctx.Err().Error()})
			report.Skipped++
			continue
		}

		if _, err := o.send(ctx, id, AllStages()); err != nil {
			report.Outcomes = append(report.Outcomes, BatchOutcome{OrderID: id, Outcome: OutcomeFailed, Error: errorText(err)})
			report.Failed++
			continue
		}
		report.Outcomes = append(report.Outcomes, BatchOutcome{OrderID: id, Outcome: OutcomeSent})
		report.Sent++
	}
	return report, nil
}

// ─── OPERATOR MESSAGES ───────────────────────────────────────────────────────

const failureChecklist = `Please check:
- Your email provider API key is valid
- The sender email address is verified with your provider
- Your internet connection is working`

// FailureAlert is the operator message for a failed send: the underlying
// error followed by the troubleshooting checklist.
func FailureAlert(err error) string {
	return fmt.Sprintf("Failed to send documents: %s\n\n%s", errorText(err), failureChecklist)
}

// errorText prefers the provider's message over the generic delivery text.
func errorText(err error) string {
	var de *email.DeliveryError
	if errors.As(err, &de) {
		return email.Cause(err)
	}
	return err.Error()
}
