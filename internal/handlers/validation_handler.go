package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-platform/internal/services"
	"ticket-platform/models"
)

type ValidationHandler struct {
	app           *pocketbase.PocketBase
	ticketService *services.TicketService
	validator     *services.ValidationService
}

func NewValidationHandler(app *pocketbase.PocketBase, ticketService *services.TicketService, validator *services.ValidationService) *ValidationHandler {
	return &ValidationHandler{
		app:           app,
		ticketService: ticketService,
		validator:     validator,
	}
}

// Validate - Record one check-in attempt for a scanned or typed code.
// Every known ticket gets a recorded outcome; only an unknown code is an
// HTTP error.
func (h *ValidationHandler) Validate(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Code   string `json:"code"`
		Method string `json:"method"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Code == "" {
		return apis.NewBadRequestError("Validation code is required", nil)
	}

	method := models.ValidationMethod(req.Method)
	if req.Method == "" {
		method = models.ValidationMethodQrScan
	}
	if !method.Known() {
		return apis.NewBadRequestError("Unknown validation method", nil)
	}

	validation, err := h.ticketService.CheckIn(e.Request.Context(), req.Code, method)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket_id": validation.TicketID,
		"status":    validation.Status,
		"method":    validation.Method,
		"admitted":  validation.Status.Admitted(),
	})
}

// History - Full validation trail for a ticket
func (h *ValidationHandler) History(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := e.Request.PathValue("ticketId")
	if ticketID == "" {
		return apis.NewBadRequestError("Ticket ID is required", nil)
	}

	history, err := h.validator.History(e.Request.Context(), ticketID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket_id":   ticketID,
		"validations": history,
		"count":       len(history),
	})
}
