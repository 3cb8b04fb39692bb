package delivery_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/project-delivery-backend/internal/delivery"
	"github.com/nyashahama/project-delivery-backend/internal/email"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

type stubCatalog struct {
	orders map[uuid.UUID]delivery.Order
	docs   map[uuid.UUID][]delivery.Document
	calls  int
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		orders: make(map[uuid.UUID]delivery.Order),
		docs:   make(map[uuid.UUID][]delivery.Document),
	}
}

func (c *stubCatalog) addOrder(name string, docs ...delivery.Document) delivery.Order {
	o := delivery.Order{
		ID:            uuid.New(),
		CustomerName:  name,
		CustomerEmail: name + "@example.com",
		ProjectID:     uuid.New(),
		ProjectTitle:  name + " project",
		Price:         decimal.NewFromInt(100),
		Status:        delivery.OrderProcessing,
	}
	c.orders[o.ID] = o
	c.docs[o.ProjectID] = docs
	return o
}

func (c *stubCatalog) GetOrder(_ context.Context, id uuid.UUID) (delivery.Order, error) {
	c.calls++
	o, ok := c.orders[id]
	if !ok {
		return delivery.Order{}, delivery.ErrOrderNotFound
	}
	return o, nil
}

func (c *stubCatalog) ListOrders(context.Context) ([]delivery.Order, error) {
	var out []delivery.Order
	for _, o := range c.orders {
		out = append(out, o)
	}
	return out, nil
}

func (c *stubCatalog) ListProjectDocuments(_ context.Context, projectID uuid.UUID) ([]delivery.Document, error) {
	c.calls++
	return c.docs[projectID], nil
}

type stubMailer struct {
	mu   sync.Mutex
	sent []email.DocumentDelivery
	err  error
}

func (m *stubMailer) SendDocumentDelivery(_ context.Context, d email.DocumentDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, d)
	return m.err
}

type stubLinker struct {
	expires time.Time
}

func (l stubLinker) DownloadURL(_ context.Context, raw string) (string, time.Time, error) {
	return raw + "?signed=1", l.expires, nil
}

func configured() email.ReadinessChecker {
	return email.ReadinessFunc(func() email.Readiness {
		return email.Readiness{Configured: true, APIKey: true, SenderEmail: "studio@example.com", Issues: []string{}}
	})
}

func unconfigured() email.ReadinessChecker {
	return email.ReadinessFunc(func() email.Readiness {
		return email.Readiness{Issues: []string{"POSTMARK_SERVER_TOKEN is not set"}}
	})
}

type harness struct {
	catalog *stubCatalog
	mailer  *stubMailer
	sched   *fakeScheduler
	board   *delivery.MemoryBoard
	orch    *delivery.Orchestrator
}

func newHarness(t *testing.T, readiness email.ReadinessChecker) *harness {
	t.Helper()
	h := &harness{
		catalog: newStubCatalog(),
		mailer:  &stubMailer{},
		sched:   &fakeScheduler{},
	}
	h.board = delivery.NewMemoryBoard(h.sched.schedule)
	h.orch = delivery.NewOrchestrator(delivery.Deps{
		Catalog:   h.catalog,
		Mailer:    h.mailer,
		Readiness: readiness,
		Board:     h.board,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return h
}

// ─── SendDocuments ────────────────────────────────────────────────────────────

func TestSendDocuments_TwoActiveOneInactive(t *testing.T) {
	h := newHarness(t, configured())
	docs := []delivery.Document{
		doc("plans", delivery.StageReview1, true),
		doc("draft", delivery.StageReview1, false),
		doc("specs", delivery.StageReview1, true),
	}
	order := h.catalog.addOrder("ada", docs...)

	res, err := h.orch.SendDocuments(context.Background(), order.ID, []delivery.ReviewStage{delivery.StageReview1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.DocumentCount)
	assert.Equal(t, "ada@example.com", res.Recipient)

	require.Len(t, h.mailer.sent, 1)
	sent := h.mailer.sent[0]
	assert.Equal(t, "ada", sent.CustomerName)
	assert.Equal(t, "ada@example.com", sent.CustomerEmail)
	assert.Equal(t, "ada project", sent.ProjectTitle)
	assert.Equal(t, order.ID.String(), sent.OrderID)
	assert.Equal(t, "Review 1", sent.ReviewStagesLabel)
	require.Len(t, sent.Documents, 2)
	assert.Equal(t, "plans", sent.Documents[0].Name)
	assert.Equal(t, "specs", sent.Documents[1].Name)
	assert.Equal(t, "review_1", sent.Documents[0].ReviewStage)
	assert.Empty(t, sent.AccessExpires, "links without expiry keep the default")

	assert.Equal(t, delivery.StatusSuccess, status(t, h.board, order.ID))
	assert.Equal(t, delivery.SuccessWindow, h.sched.last().d)
	h.sched.fire()
	assert.Equal(t, delivery.Status(""), status(t, h.board, order.ID))
}

func TestSendDocuments_Unconfigured(t *testing.T) {
	h := newHarness(t, unconfigured())
	order := h.catalog.addOrder("ada", doc("plans", delivery.StageReview1, true))

	_, err := h.orch.SendDocuments(context.Background(), order.ID, delivery.AllStages())

	var ce *delivery.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"POSTMARK_SERVER_TOKEN is not set"}, ce.Issues)
	assert.Empty(t, h.mailer.sent)
	assert.Zero(t, h.catalog.calls)

	entries, err := h.board.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSendDocuments_NoStagesAbortsBeforeSending(t *testing.T) {
	h := newHarness(t, configured())
	order := h.catalog.addOrder("ada", doc("plans", delivery.StageReview1, true))

	_, err := h.orch.SendDocuments(context.Background(), order.ID, nil)
	assert.ErrorIs(t, err, delivery.ErrNoStagesSelected)
	assert.Empty(t, h.mailer.sent)
	assert.Equal(t, delivery.Status(""), status(t, h.board, order.ID))
}

func TestSendDocuments_UnknownOrder(t *testing.T) {
	h := newHarness(t, configured())
	id := uuid.New()

	_, err := h.orch.SendDocuments(context.Background(), id, delivery.AllStages())
	assert.ErrorIs(t, err, delivery.ErrOrderNotFound)
	assert.Equal(t, delivery.Status(""), status(t, h.board, id))
}

func TestSendDocuments_InvalidRecipientNeverSends(t *testing.T) {
	h := newHarness(t, configured())
	order := h.catalog.addOrder("ada", doc("plans", delivery.StageReview1, true))
	o := h.catalog.orders[order.ID]
	o.CustomerEmail = "ada-at-example"
	h.catalog.orders[order.ID] = o

	_, err := h.orch.SendDocuments(context.Background(), order.ID, delivery.AllStages())

	var ve *email.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, h.mailer.sent)
	assert.Equal(t, delivery.Status(""), status(t, h.board, order.ID))
}

func TestSendDocuments_NoEligibleDocumentsIsError(t *testing.T) {
	h := newHarness(t, configured())
	order := h.catalog.addOrder("ada", doc("plans", delivery.StageReview2, true))

	_, err := h.orch.SendDocuments(context.Background(), order.ID, []delivery.ReviewStage{delivery.StageReview1})

	var ne *delivery.NoEligibleDocumentsError
	require.ErrorAs(t, err, &ne)
	assert.Empty(t, h.mailer.sent)

	e, ok, err := h.board.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, delivery.StatusError, e.Status)
	assert.Contains(t, e.Message, "no active documents")
	assert.Equal(t, delivery.ErrorWindow, h.sched.last().d)

	h.sched.fire()
	assert.Equal(t, delivery.Status(""), status(t, h.board, order.ID))
}

func TestSendDocuments_TransportFailure(t *testing.T) {
	h := newHarness(t, configured())
	h.mailer.err = &email.DeliveryError{Err: &email.TransportError{Provider: "postmark", Message: "401 - Invalid server token"}}
	order := h.catalog.addOrder("ada", doc("plans", delivery.StageReview1, true))

	_, err := h.orch.SendDocuments(context.Background(), order.ID, delivery.AllStages())

	var de *email.DeliveryError
	require.ErrorAs(t, err, &de)

	e, ok, _ := h.board.Get(context.Background(), order.ID)
	require.True(t, ok)
	assert.Equal(t, delivery.StatusError, e.Status)
	assert.Contains(t, e.Message, "401 - Invalid server token")
	assert.Contains(t, e.Message, "API key is valid")
	assert.Contains(t, e.Message, "sender email address is verified")
	assert.Contains(t, e.Message, "internet connection")
}

func TestSendDocuments_RejectsConcurrentSend(t *testing.T) {
	h := newHarness(t, configured())
	order := h.catalog.addOrder("ada", doc("plans", delivery.StageReview1, true))

	require.NoError(t, h.board.Begin(context.Background(), order.ID))

	_, err := h.orch.SendDocuments(context.Background(), order.ID, delivery.AllStages())
	assert.ErrorIs(t, err, delivery.ErrSendInProgress)
	assert.Empty(t, h.mailer.sent)
	assert.Equal(t, delivery.StatusSending, status(t, h.board, order.ID))
}

func TestSendDocuments_SignedLinksSetExpiry(t *testing.T) {
	h := newHarness(t, configured())
	expires := time.Date(2025, time.April, 2, 15, 4, 0, 0, time.UTC)
	h.orch = delivery.NewOrchestrator(delivery.Deps{
		Catalog:   h.catalog,
		Mailer:    h.mailer,
		Readiness: configured(),
		Board:     h.board,
		Links:     stubLinker{expires: expires},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	order := h.catalog.addOrder("ada", doc("plans", delivery.StageReview1, true))

	_, err := h.orch.SendDocuments(context.Background(), order.ID, delivery.AllStages())
	require.NoError(t, err)

	sent := h.mailer.sent[0]
	assert.Equal(t, "https://files.example.com/plans?signed=1", sent.Documents[0].URL)
	assert.Equal(t, "April 2, 2025 3:04 PM UTC", sent.AccessExpires)
	assert.Equal(t, "All Review Stages", sent.ReviewStagesLabel)
}

func TestSendDocuments_ObjectURLWithoutStorageFails(t *testing.T) {
	h := newHarness(t, configured())
	stored := doc("plans", delivery.StageReview1, true)
	stored.URL = "s3://project-docs/p1/plans.pdf"
	order := h.catalog.addOrder("ada", stored)

	_, err := h.orch.SendDocuments(context.Background(), order.ID, delivery.AllStages())
	require.ErrorIs(t, err, delivery.ErrStorageNotConfigured)

	assert.Empty(t, h.mailer.sent, "no unusable link reaches the customer")
	e, ok, bErr := h.board.Get(context.Background(), order.ID)
	require.NoError(t, bErr)
	require.True(t, ok)
	assert.Equal(t, delivery.StatusError, e.Status)
	assert.Contains(t, e.Message, "STORAGE_ENDPOINT")
}

func TestSendDocuments_PublicURLWithoutStoragePassesThrough(t *testing.T) {
	h := newHarness(t, configured())
	order := h.catalog.addOrder("ada", doc("plans", delivery.StageReview1, true))

	_, err := h.orch.SendDocuments(context.Background(), order.ID, delivery.AllStages())
	require.NoError(t, err)

	require.Len(t, h.mailer.sent, 1)
	assert.Equal(t, "https://files.example.com/plans", h.mailer.sent[0].Documents[0].URL)
	assert.Empty(t, h.mailer.sent[0].AccessExpires)
}

// ─── SendBatch ────────────────────────────────────────────────────────────────

func TestSendBatch_MiddleOrderEmptyDoesNotStopBatch(t *testing.T) {
	h := newHarness(t, configured())
	o1 := h.catalog.addOrder("one", doc("a", delivery.StageReview1, true))
	o2 := h.catalog.addOrder("two", doc("b", delivery.StageReview2, false))
	o3 := h.catalog.addOrder("three", doc("c", delivery.StageReview3, true))

	report, err := h.orch.SendBatch(context.Background(), []uuid.UUID{o1.ID, o2.ID, o3.ID})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, o1.ID, report.Outcomes[0].OrderID)
	assert.Equal(t, delivery.OutcomeSent, report.Outcomes[0].Outcome)
	assert.Equal(t, delivery.OutcomeFailed, report.Outcomes[1].Outcome)
	assert.Contains(t, report.Outcomes[1].Error, "no active documents")
	assert.Equal(t, delivery.OutcomeSent, report.Outcomes[2].Outcome)

	assert.Equal(t, delivery.StatusSuccess, status(t, h.board, o1.ID))
	assert.Equal(t, delivery.StatusError, status(t, h.board, o2.ID))
	assert.Equal(t, delivery.StatusSuccess, status(t, h.board, o3.ID))

	require.Len(t, h.mailer.sent, 2)
	assert.Equal(t, "one", h.mailer.sent[0].CustomerName, "list order is kept")
	assert.Equal(t, "three", h.mailer.sent[1].CustomerName)
	assert.Equal(t, "All Review Stages", h.mailer.sent[0].ReviewStagesLabel)
}

func TestSendBatch_UnconfiguredAbortsWholeBatch(t *testing.T) {
	h := newHarness(t, unconfigured())
	o1 := h.catalog.addOrder("one", doc("a", delivery.StageReview1, true))
	o2 := h.catalog.addOrder("two", doc("b", delivery.StageReview1, true))

	report, err := h.orch.SendBatch(context.Background(), []uuid.UUID{o1.ID, o2.ID})

	var ce *delivery.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, h.mailer.sent)

	entries, err := h.board.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSendBatch_CancelledContextSkipsRemaining(t *testing.T) {
	h := newHarness(t, configured())
	o1 := h.catalog.addOrder("one", doc("a", delivery.StageReview1, true))
	o2 := h.catalog.addOrder("two", doc("b", delivery.StageReview1, true))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := h.orch.SendBatch(ctx, []uuid.UUID{o1.ID, o2.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Empty(t, h.mailer.sent)
}

func TestSendBatch_UnknownOrderRecordedAsFailure(t *testing.T) {
	h := newHarness(t, configured())
	o1 := h.catalog.addOrder("one", doc("a", delivery.StageReview1, true))
	missing := uuid.New()

	report, err := h.orch.SendBatch(context.Background(), []uuid.UUID{missing, o1.ID})
	require.NoError(t, err)
	assert.Equal(t, delivery.OutcomeFailed, report.Outcomes[0].Outcome)
	assert.Equal(t, delivery.OutcomeSent, report.Outcomes[1].Outcome)
	assert.Equal(t, delivery.Status(""), status(t, h.board, missing))
}

// ─── FailureAlert ─────────────────────────────────────────────────────────────

func TestFailureAlert(t *testing.T) {
	t.Parallel()

	plain := delivery.FailureAlert(errors.New("boom"))
	assert.Contains(t, plain, "Failed to send documents: boom")

	wrapped := delivery.FailureAlert(&email.DeliveryError{Err: &email.TransportError{Message: "422 - Template not found"}})
	assert.Contains(t, wrapped, "422 - Template not found")
	assert.NotContains(t, wrapped, email.GenericDeliveryMessage)
}
