package core

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
)

// PaymentError means the payment reference could not be resolved to a
// confirmed charge. The action it gates must leave no trace.
type PaymentError struct {
	Reason string
}

func (e *PaymentError) Error() string { return "payment not verified: " + e.Reason }

// RelayError wraps any SFU failure. It is surfaced to the initiating
// participant; chat/tip/queue state never depends on it.
type RelayError struct {
	Detail string
}

func (e *RelayError) Error() string { return "relay error: " + e.Detail }

// ErrorCode maps an error to the stable code sent to clients.
func ErrorCode(err error) string {
	var pe *PaymentError
	var re *RelayError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return "session-not-found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.As(err, &pe):
		return "payment-not-verified"
	case errors.As(err, &re):
		return "relay-error"
	default:
		return "internal"
	}
}
