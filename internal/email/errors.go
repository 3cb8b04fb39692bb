package email

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by transport constructors when a required
// credential or address is missing.
var ErrInvalidConfig = errors.New("email: invalid configuration")

// GenericDeliveryMessage is what callers show users when a send fails. The
// technical cause is logged and stays reachable through errors.As.
const GenericDeliveryMessage = "Failed to send email. Please try again later."

// ValidationError reports a malformed address. It is returned before any
// provider call is made.
type ValidationError struct {
	Field   string
	Address string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("email: invalid %s address %q", e.Field, e.Address)
}

// TransportError is a failed provider call: network, auth, quota or template.
type TransportError struct {
	Provider string
	Message  string // provider's own description of the failure
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("email: %s: %s", e.Provider, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DeliveryError is the user-facing wrapper the Composer returns for transport
// failures.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string { return GenericDeliveryMessage }

func (e *DeliveryError) Unwrap() error { return e.Err }

// Cause returns the provider message behind a delivery failure, or the error
// text itself when err carries no TransportError.
func Cause(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
