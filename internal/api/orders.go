package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nyashahama/project-delivery-backend/internal/db"
	"github.com/nyashahama/project-delivery-backend/internal/delivery"
	"github.com/nyashahama/project-delivery-backend/internal/email"
	"github.com/nyashahama/project-delivery-backend/internal/store"
)

// orderView is an order as the admin panel renders it.
type orderView struct {
	delivery.Order
	FormattedPrice string          `json:"formatted_price"`
	Delivery       *delivery.Entry `json:"delivery,omitempty"`
}

func (s *Server) viewOrder(r *http.Request, o delivery.Order) orderView {
	v := orderView{Order: o, FormattedPrice: o.FormattedPrice()}
	entry, ok, err := s.delivery.Board().Get(r.Context(), o.ID)
	if err != nil {
		s.logger.Warn("read delivery status", "order_id", o.ID, "error", err, logField(r))
		return v
	}
	if ok {
		v.Delivery = &entry
	}
	return v
}

// ─── GET /api/admin/orders ────────────────────────────────────────────────────

type listOrdersResponse struct {
	Orders []orderView `json:"orders"`
	Total  int         `json:"total"`
}

// handleListOrders returns every order matching ?search= and ?status=, in
// storage order (newest first).
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	search, status, ok := listingFilters(w, r)
	if !ok {
		return
	}

	orders, err := s.catalog.ListOrders(r.Context())
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	filtered := delivery.FilterOrders(orders, search, status)
	views := make([]orderView, len(filtered))
	for i, o := range filtered {
		views[i] = s.viewOrder(r, o)
	}

	respond(w, http.StatusOK, listOrdersResponse{Orders: views, Total: len(views)})
}

// listingFilters reads the search and status query parameters. An unknown
// status writes a 400.
func listingFilters(w http.ResponseWriter, r *http.Request) (string, delivery.OrderStatus, bool) {
	status, ok := statusFilter(w, r.URL.Query().Get("status"))
	return r.URL.Query().Get("search"), status, ok
}

// statusFilter parses a listing status filter. Empty and "all" disable it.
func statusFilter(w http.ResponseWriter, raw string) (delivery.OrderStatus, bool) {
	status := delivery.OrderStatus(strings.TrimSpace(raw))
	if status == "all" {
		return "", true
	}
	if status != "" && !status.Valid() {
		respondErr(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", raw))
		return "", false
	}
	return status, true
}

// ─── GET /api/admin/orders/:order_id ──────────────────────────────────────────

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "order_id")
	if !ok {
		return
	}

	order, err := s.catalog.GetOrder(r.Context(), orderID)
	if err != nil {
		s.respondDomainErr(w, r, err)
		return
	}

	respond(w, http.StatusOK, s.viewOrder(r, order))
}

// ─── PATCH /api/admin/orders/:order_id/status ─────────────────────────────────

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "order_id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if !decode(w, r, &req) {
		return
	}

	status := db.OrderStatus(req.Status)
	if !status.Valid() {
		respondErr(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", req.Status))
		return
	}

	row, err := s.store.UpdateOrderStatus(r.Context(), orderID, status)
	if errors.Is(err, store.ErrOrderNotFound) {
		respondErr(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	s.logger.Info("order status updated",
		"order_id", orderID,
		"status", status,
		logField(r),
	)
	respond(w, http.StatusOK, s.viewOrder(r, delivery.OrderFromRow(row)))
}

// ─── GET /api/admin/orders/:order_id/documents ────────────────────────────────

type orderDocumentsResponse struct {
	Order     orderView                    `json:"order"`
	Documents []delivery.Document          `json:"documents"`
	Counts    map[delivery.ReviewStage]int `json:"counts"`
	Stages    []delivery.StageInfo         `json:"stages"`
}

// handleOrderDocuments is the data behind the delivery dialog: the project's
// active documents, how many each stage would send, and the stage metadata.
func (s *Server) handleOrderDocuments(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "order_id")
	if !ok {
		return
	}

	order, err := s.catalog.GetOrder(r.Context(), orderID)
	if err != nil {
		s.respondDomainErr(w, r, err)
		return
	}

	docs, err := s.catalog.ListProjectDocuments(r.Context(), order.ProjectID)
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	active := make([]delivery.Document, 0, len(docs))
	for _, d := range docs {
		if d.Active {
			active = append(active, d)
		}
	}

	respond(w, http.StatusOK, orderDocumentsResponse{
		Order:     s.viewOrder(r, order),
		Documents: active,
		Counts:    delivery.CountByStage(docs),
		Stages:    delivery.Stages(),
	})
}

// ─── POST /api/admin/orders/:order_id/confirmation ────────────────────────────

// handleResendConfirmation sends the order confirmation email again.
func (s *Server) handleResendConfirmation(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "order_id")
	if !ok {
		return
	}

	if !s.requireEmailReady(w) {
		return
	}

	order, err := s.catalog.GetOrder(r.Context(), orderID)
	if err != nil {
		s.respondDomainErr(w, r, err)
		return
	}

	err = s.mailer.SendOrderConfirmation(r.Context(), email.OrderConfirmation{
		OrderID:      order.ID.String(),
		CustomerName: order.CustomerName,
		ProjectTitle: order.ProjectTitle,
		Price:        order.FormattedPrice(),
	}, order.CustomerEmail)
	var failed *email.DeliveryError
	if errors.As(err, &failed) {
		s.logAndIgnoreEmailErr(r, err, "resend order confirmation")
		respondErr(w, http.StatusBadGateway, email.GenericDeliveryMessage)
		return
	}
	if err != nil {
		s.respondDomainErr(w, r, err)
		return
	}

	respond(w, http.StatusOK, map[string]string{
		"status":    "sent",
		"recipient": order.CustomerEmail,
	})
}
