package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nyashahama/project-delivery-backend/internal/delivery"
	"github.com/nyashahama/project-delivery-backend/internal/email"
	"github.com/nyashahama/project-delivery-backend/internal/worker"
)

// requireEmailReady writes a 412 with the setup instructions when email is
// not configured.
func (s *Server) requireEmailReady(w http.ResponseWriter) bool {
	rd := s.readiness.Check()
	if rd.Configured {
		return true
	}
	respond(w, http.StatusPreconditionFailed, errorBody{
		Error:        "email is not configured",
		Issues:       rd.Issues,
		Instructions: email.SetupInstructions(rd),
	})
	return false
}

// ─── POST /api/admin/orders/:order_id/deliver ─────────────────────────────────

type deliverRequest struct {
	Stages []string `json:"stages"`
}

type deliverResponse struct {
	delivery.Result
	Message string `json:"message"`
}

// handleDeliver sends the order's documents for the selected stages and waits
// for the provider's answer. The status board shows the outcome to every
// admin viewing the order.
func (s *Server) handleDeliver(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "order_id")
	if !ok {
		return
	}

	var req deliverRequest
	if !decode(w, r, &req) {
		return
	}

	stages := make([]delivery.ReviewStage, 0, len(req.Stages))
	for _, raw := range req.Stages {
		st, err := delivery.ParseReviewStage(raw)
		if err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		stages = append(stages, st)
	}

	res, err := s.delivery.SendDocuments(r.Context(), orderID, stages)
	if err != nil {
		s.respondDomainErr(w, r, err)
		return
	}

	respond(w, http.StatusOK, deliverResponse{
		Result:  res,
		Message: "Documents sent successfully to " + res.Recipient,
	})
}

// ─── GET /api/admin/deliveries/status ─────────────────────────────────────────

func (s *Server) handleDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	entries, err := s.delivery.Board().Snapshot(r.Context())
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"statuses": entries})
}

// ─── POST /api/admin/deliveries/batch ─────────────────────────────────────────

type queueBatchRequest struct {
	OrderIDs  []string `json:"order_ids"`
	SelectAll bool     `json:"select_all"`
	Search    string   `json:"search"`
	Status    string   `json:"status"`
}

type queueBatchResponse struct {
	BatchID uuid.UUID `json:"batch_id"`
	Orders  int       `json:"orders"`
}

// handleQueueBatch queues a send of every stage to each selected order. The
// selection is either explicit ids or every order matching the listing
// filters. Orders are sent one at a time by the background runner.
func (s *Server) handleQueueBatch(w http.ResponseWriter, r *http.Request) {
	var req queueBatchRequest
	if !decode(w, r, &req) {
		return
	}

	sel := delivery.NewSelection[uuid.UUID]()
	if req.SelectAll {
		status, ok := statusFilter(w, req.Status)
		if !ok {
			return
		}
		orders, err := s.catalog.ListOrders(r.Context())
		if err != nil {
			s.respondInternalErr(w, r, err)
			return
		}
		sel.ToggleAll(delivery.OrderIDs(delivery.FilterOrders(orders, req.Search, status)))
	} else {
		for _, raw := range req.OrderIDs {
			id, err := parseUUID(raw)
			if err != nil {
				respondErr(w, http.StatusBadRequest, "invalid order id "+raw)
				return
			}
			if !sel.Has(id) {
				sel.Toggle(id)
			}
		}
	}

	if sel.Len() == 0 {
		respondErr(w, http.StatusBadRequest, "no orders selected")
		return
	}

	// Readiness is checked again when the batch runs; checking here gives
	// the operator the setup instructions immediately.
	if !s.requireEmailReady(w) {
		return
	}

	batchID, err := s.batches.Enqueue(r.Context(), sel.Items())
	if errors.Is(err, worker.ErrQueueFull) {
		respondErr(w, http.StatusServiceUnavailable, "too many batches queued, try again shortly")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	respond(w, http.StatusAccepted, queueBatchResponse{BatchID: batchID, Orders: sel.Len()})
}

// ─── GET /api/admin/deliveries/batch/:batch_id ────────────────────────────────

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID, ok := urlUUID(w, r, "batch_id")
	if !ok {
		return
	}

	state, found := s.batches.Batch(batchID)
	if !found {
		respondErr(w, http.StatusNotFound, "batch not found")
		return
	}
	respond(w, http.StatusOK, state)
}

// ─── GET /api/admin/email/config ──────────────────────────────────────────────

type emailConfigResponse struct {
	email.Readiness
	Instructions string `json:"instructions"`
}

// handleEmailConfig reports whether email can be sent and how to fix it when
// it cannot. The environment is re-read on every call.
func (s *Server) handleEmailConfig(w http.ResponseWriter, r *http.Request) {
	rd := s.readiness.Check()
	respond(w, http.StatusOK, emailConfigResponse{
		Readiness:    rd,
		Instructions: email.SetupInstructions(rd),
	})
}
