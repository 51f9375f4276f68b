package stream

import "fmt"

// ValidationError reports an invalid submission. It is raised before any
// network call and the user can recover by correcting the input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid submission: %s", e.Reason)
}

// TransportError reports a connection that could not be established or was
// dropped mid-stream. Status is the HTTP status code when one was received,
// zero otherwise.
type TransportError struct {
	Status int
	Reason string
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport error (HTTP %d): %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("transport error: %s", e.Reason)
}

// AuthExpiredError reports an HTTP 401. The stored credential has already
// been cleared by the time the caller sees this; it should prompt the user
// to re-authenticate.
type AuthExpiredError struct{}

func (e *AuthExpiredError) Error() string {
	return "authentication expired: please renew your token"
}

// ServerError is an explicit error event reported by the service mid-stream.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server reported error: %s", e.Message)
}
