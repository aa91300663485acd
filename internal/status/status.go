package status

import "errors"

var (
	ErrCapacityExceeded    = errors.New("inventory: capacity exceeded")
	ErrSalesWindowClosed   = errors.New("inventory: sales window closed")
	ErrAlreadyValidated    = errors.New("validation: ticket already validated")
	ErrInvalidQuantity     = errors.New("inventory: quantity must be at least 1")
	ErrCapacityBelowIssued = errors.New("inventory: capacity below issued count")

	ErrEventNotFound      = errors.New("event: event not found")
	ErrTicketTypeNotFound = errors.New("ticket type: ticket type not found")
	ErrTicketNotFound     = errors.New("ticket: ticket not found")

	ErrInvalidStatusChange = errors.New("event: status change not allowed")

	// Store-level failures. Conflict is retried internally a bounded number
	// of times before surfacing; unavailable surfaces immediately.
	ErrStoreConflict    = errors.New("store: concurrent update conflict")
	ErrStoreUnavailable = errors.New("store: unavailable")
)

// Retryable reports whether the same request may be retried by the caller.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreConflict) || errors.Is(err, ErrStoreUnavailable)
}

// NotFound reports whether err names a missing entity.
func NotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrTicketTypeNotFound) ||
		errors.Is(err, ErrTicketNotFound)
}
