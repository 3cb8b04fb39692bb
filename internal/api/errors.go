package api

import (
	"errors"
	"net/http"

	"github.com/nyashahama/project-delivery-backend/internal/delivery"
	"github.com/nyashahama/project-delivery-backend/internal/email"
	"github.com/nyashahama/project-delivery-backend/internal/store"
)

// errorBody is the error envelope for domain failures. Only error is always
// present.
type errorBody struct {
	Error        string   `json:"error"`
	Field        string   `json:"field,omitempty"`
	Issues       []string `json:"issues,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	Alert        string   `json:"alert,omitempty"`
}

// respondDomainErr maps the delivery and email error taxonomy to HTTP
// statuses. Anything it does not recognise is logged and returned as a 500.
func (s *Server) respondDomainErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *email.ValidationError
		config     *delivery.ConfigurationError
		noDocs     *delivery.NoEligibleDocumentsError
		failed     *email.DeliveryError
	)

	switch {
	case errors.As(err, &validation):
		respond(w, http.StatusBadRequest, errorBody{Error: validation.Error(), Field: validation.Field})

	case errors.Is(err, delivery.ErrNoStagesSelected):
		respondErr(w, http.StatusBadRequest, "Please select at least one review stage")

	case errors.As(err, &config):
		respond(w, http.StatusPreconditionFailed, errorBody{
			Error:        "email is not configured",
			Issues:       config.Issues,
			Instructions: email.SetupInstructions(email.Readiness{Issues: config.Issues}),
		})

	case errors.Is(err, delivery.ErrSendInProgress):
		respondErr(w, http.StatusConflict, "a send is already in progress for this order")

	case errors.Is(err, delivery.ErrOrderNotFound), errors.Is(err, store.ErrOrderNotFound):
		respondErr(w, http.StatusNotFound, "order not found")

	case errors.Is(err, delivery.ErrStorageNotConfigured):
		respond(w, http.StatusPreconditionFailed, errorBody{
			Error: "document storage is not configured",
			Alert: delivery.FailureAlert(err),
		})

	case errors.As(err, &noDocs):
		respondErr(w, http.StatusUnprocessableEntity,
			"No active documents found for "+delivery.StagesLabel(noDocs.Stages))

	case errors.As(err, &failed):
		s.logger.Warn("email delivery failed",
			"cause", email.Cause(err),
			logField(r),
		)
		respond(w, http.StatusBadGateway, errorBody{
			Error: email.GenericDeliveryMessage,
			Alert: delivery.FailureAlert(err),
		})

	default:
		s.respondInternalErr(w, r, err)
	}
}
