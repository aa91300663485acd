package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"ticket-platform/internal/status"
)

// apiError maps domain errors onto HTTP responses. Retryable store failures
// become 503/409 so well-behaved clients know a retry may succeed.
func apiError(err error) error {
	switch {
	case status.NotFound(err):
		return apis.NewNotFoundError(err.Error(), nil)
	case errors.Is(err, status.ErrCapacityExceeded):
		return apis.NewApiError(http.StatusConflict, "Not enough tickets remaining", nil)
	case errors.Is(err, status.ErrSalesWindowClosed):
		return apis.NewBadRequestError("Ticket sales are closed for this event", nil)
	case errors.Is(err, status.ErrInvalidQuantity):
		return apis.NewBadRequestError("Quantity must be at least 1", nil)
	case errors.Is(err, status.ErrInvalidStatusChange):
		return apis.NewBadRequestError("Event status change not allowed", nil)
	case errors.Is(err, status.ErrCapacityBelowIssued):
		return apis.NewBadRequestError("Capacity cannot drop below the issued count", nil)
	case errors.Is(err, status.ErrStoreConflict):
		return apis.NewApiError(http.StatusConflict, "Concurrent update, please retry", nil)
	case errors.Is(err, status.ErrStoreUnavailable):
		return apis.NewApiError(http.StatusServiceUnavailable, "Store temporarily unavailable", nil)
	default:
		return apis.NewBadRequestError("Request failed", err)
	}
}
