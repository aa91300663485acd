package handlers

import (
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-platform/internal/services"
)

type EventHandler struct {
	app          *pocketbase.PocketBase
	eventService *services.EventService
	availability *services.AvailabilityService
}

func NewEventHandler(app *pocketbase.PocketBase, eventService *services.EventService, availability *services.AvailabilityService) *EventHandler {
	return &EventHandler{
		app:          app,
		eventService: eventService,
		availability: availability,
	}
}

// CreateEvent - Create an event with its ticket types
func (h *EventHandler) CreateEvent(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req services.CreateEventRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	event, err := h.eventService.CreateEvent(e.Request.Context(), e.Auth.Id, req)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusCreated, event)
}

// ListEvents - List the caller's events
func (h *EventHandler) ListEvents(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	page, _ := strconv.Atoi(e.Request.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(e.Request.URL.Query().Get("perPage"))

	events, err := h.eventService.ListEventsForOrganizer(e.Request.Context(), e.Auth.Id, page, perPage)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// GetEvent - Get one event with its ticket types
func (h *EventHandler) GetEvent(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("eventId")
	if eventID == "" {
		return apis.NewBadRequestError("Event ID is required", nil)
	}

	event, types, err := h.eventService.GetEventForOrganizer(e.Request.Context(), e.Auth.Id, eventID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event":        event,
		"ticket_types": types,
	})
}

// UpdateEvent - Update event fields or advance its status
func (h *EventHandler) UpdateEvent(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("eventId")
	if eventID == "" {
		return apis.NewBadRequestError("Event ID is required", nil)
	}

	var req services.UpdateEventRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	event, err := h.eventService.UpdateEventForOrganizer(e.Request.Context(), e.Auth.Id, eventID, req)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, event)
}

// UpdateTicketType - Rename, reprice or resize a ticket type
func (h *EventHandler) UpdateTicketType(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketTypeID := e.Request.PathValue("ticketTypeId")
	if ticketTypeID == "" {
		return apis.NewBadRequestError("Ticket type ID is required", nil)
	}

	var req services.UpdateTicketTypeRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	tt, err := h.eventService.UpdateTicketType(e.Request.Context(), e.Auth.Id, ticketTypeID, req)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, tt)
}

// GetAvailability - Remaining capacity for a ticket type, cache first
func (h *EventHandler) GetAvailability(e *core.RequestEvent) error {
	ticketTypeID := e.Request.PathValue("ticketTypeId")
	if ticketTypeID == "" {
		return apis.NewBadRequestError("Ticket type ID is required", nil)
	}

	remaining, err := h.availability.Remaining(e.Request.Context(), ticketTypeID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket_type_id": ticketTypeID,
		"remaining":      remaining,
	})
}
