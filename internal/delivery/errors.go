package delivery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNoStagesSelected aborts a send before any status transition.
	ErrNoStagesSelected = errors.New("delivery: select at least one review stage")

	// ErrSendInProgress rejects a second send for an order already sending.
	ErrSendInProgress = errors.New("delivery: a send is already in progress for this order")

	ErrOrderNotFound = errors.New("delivery: order not found")

	// ErrStorageNotConfigured fails a send whose documents live in object
	// storage while presigning is disabled.
	ErrStorageNotConfigured = errors.New("delivery: document is in object storage but STORAGE_ENDPOINT is not set")
)

// ConfigurationError means email is not ready. Nothing was attempted.
type ConfigurationError struct {
	Issues []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Issues) == 0 {
		return "delivery: email is not configured"
	}
	return "delivery: email is not configured: " + strings.Join(e.Issues, "; ")
}

// NoEligibleDocumentsError means the selected stages matched no active
// document.
type NoEligibleDocumentsError struct {
	OrderID uuid.UUID
	Stages  []ReviewStage
}

func (e *NoEligibleDocumentsError) Error() string {
	return fmt.Sprintf("delivery: no active documents for order %s in %s", e.OrderID, StagesLabel(e.Stages))
}
