package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-platform/internal/services"
)

type PurchaseHandler struct {
	app           *pocketbase.PocketBase
	ticketService *services.TicketService
}

func NewPurchaseHandler(app *pocketbase.PocketBase, ticketService *services.TicketService) *PurchaseHandler {
	return &PurchaseHandler{
		app:           app,
		ticketService: ticketService,
	}
}

// Purchase - Buy tickets for a ticket type
func (h *PurchaseHandler) Purchase(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("eventId")
	ticketTypeID := e.Request.PathValue("ticketTypeId")
	if eventID == "" || ticketTypeID == "" {
		return apis.NewBadRequestError("Event ID and ticket type ID are required", nil)
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	tickets, err := h.ticketService.Purchase(e.Request.Context(), eventID, ticketTypeID, req.Quantity, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusCreated, map[string]any{
		"tickets": tickets,
		"count":   len(tickets),
	})
}

// ListTickets - The caller's tickets, newest first
func (h *PurchaseHandler) ListTickets(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	tickets, err := h.ticketService.TicketsForHolder(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"tickets": tickets,
		"count":   len(tickets),
	})
}
