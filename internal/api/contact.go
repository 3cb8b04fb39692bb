package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nyashahama/project-delivery-backend/internal/email"
)

// ─── POST /api/contact ────────────────────────────────────────────────────────

// handleContact forwards a public inquiry to the operator. The sender's
// address is validated by the composer before any provider call.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req email.ContactForm
	if !decode(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || strings.TrimSpace(req.Message) == "" {
		respondErr(w, http.StatusBadRequest, "name and message are required")
		return
	}

	err := s.mailer.SendContactForm(r.Context(), req)
	var failed *email.DeliveryError
	if errors.As(err, &failed) {
		s.logAndIgnoreEmailErr(r, err, "contact form")
		respondErr(w, http.StatusBadGateway, email.GenericDeliveryMessage)
		return
	}
	if err != nil {
		s.respondDomainErr(w, r, err)
		return
	}

	s.logger.Info("contact form forwarded", "project_type", req.ProjectType, logField(r))
	respond(w, http.StatusAccepted, map[string]string{"status": "sent"})
}
