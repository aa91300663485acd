package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ticket-platform/internal/clock"
	"ticket-platform/internal/status"
	"ticket-platform/models"
)

type CreateTicketTypeRequest struct {
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Description    string          `json:"description"`
	TotalAvailable int             `json:"total_available"`
}

type CreateEventRequest struct {
	Name        string                    `json:"name"`
	Venue       string                    `json:"venue"`
	StartAt     *time.Time                `json:"start_at"`
	EndAt       *time.Time                `json:"end_at"`
	SalesStart  *time.Time                `json:"sales_start_at"`
	SalesEnd    *time.Time                `json:"sales_end_at"`
	Status      models.EventStatus        `json:"status"`
	TicketTypes []CreateTicketTypeRequest `json:"ticket_types"`
}

type UpdateEventRequest struct {
	Name       string             `json:"name"`
	Venue      string             `json:"venue"`
	StartAt    *time.Time         `json:"start_at"`
	EndAt      *time.Time         `json:"end_at"`
	SalesStart *time.Time         `json:"sales_start_at"`
	SalesEnd   *time.Time         `json:"sales_end_at"`
	Status     models.EventStatus `json:"status"`
}

// UpdateTicketTypeRequest uses pointers for price and capacity so a zero
// value (free tickets, capacity closed down to zero) is distinguishable
// from an omitted field.
type UpdateTicketTypeRequest struct {
	Name           string           `json:"name"`
	Price          *decimal.Decimal `json:"price"`
	Description    string           `json:"description"`
	TotalAvailable *int             `json:"total_available"`
}

// EventService owns the organizer-facing lifecycle of events and their
// ticket types: creation, listing, and the bounded updates the inventory
// engine depends on (monotonic status, capacity never below issued).
type EventService struct {
	store Store
	clock clock.Clock
}

func NewEventService(store Store, clk clock.Clock) *EventService {
	return &EventService{store: store, clock: clk}
}

func (s *EventService) CreateEvent(ctx context.Context, organizerID string, req CreateEventRequest) (*models.Event, error) {
	if req.Name == "" {
		return nil, errors.New("event name is required")
	}
	if req.Venue == "" {
		return nil, errors.New("venue information is required")
	}
	if len(req.TicketTypes) == 0 {
		return nil, errors.New("at least one ticket type is required")
	}
	if req.SalesEnd != nil && req.EndAt != nil && req.SalesEnd.After(*req.EndAt) {
		return nil, errors.New("sales may not end after the event ends")
	}

	eventStatus := req.Status
	if eventStatus == "" {
		eventStatus = models.EventStatusDraft
	}
	if eventStatus != models.EventStatusDraft && eventStatus != models.EventStatusPublished {
		return nil, status.ErrInvalidStatusChange
	}

	event := &models.Event{
		Name:        req.Name,
		Venue:       req.Venue,
		OrganizerID: organizerID,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		SalesStart:  req.SalesStart,
		SalesEnd:    req.SalesEnd,
		Status:      eventStatus,
	}

	types := make([]*models.TicketType, 0, len(req.TicketTypes))
	for _, tt := range req.TicketTypes {
		if tt.Name == "" {
			return nil, errors.New("ticket type name is required")
		}
		if tt.Price.IsNegative() {
			return nil, errors.New("ticket type price may not be negative")
		}
		if tt.TotalAvailable < 0 {
			return nil, errors.New("ticket type capacity may not be negative")
		}
		types = append(types, &models.TicketType{
			Name:           tt.Name,
			Price:          tt.Price,
			Description:    tt.Description,
			TotalAvailable: tt.TotalAvailable,
		})
	}

	if err := s.store.CreateEventWithTicketTypes(ctx, event, types); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	return event, nil
}

func (s *EventService) ListEventsForOrganizer(ctx context.Context, organizerID string, page, perPage int) ([]*models.Event, error) {
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	if page < 1 {
		page = 1
	}
	return s.store.ListEventsForOrganizer(ctx, organizerID, perPage, (page-1)*perPage)
}

func (s *EventService) GetEventForOrganizer(ctx context.Context, organizerID, eventID string) (*models.Event, []*models.TicketType, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, nil, status.ErrEventNotFound
	}

	types, err := s.store.ListTicketTypes(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	return event, types, nil
}

func (s *EventService) UpdateEventForOrganizer(ctx context.Context, organizerID, eventID string, req UpdateEventRequest) (*models.Event, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, status.ErrEventNotFound
	}

	if req.Status != "" && !event.Status.CanTransitionTo(req.Status) {
		return nil, status.ErrInvalidStatusChange
	}

	if req.Name != "" {
		event.Name = req.Name
	}
	if req.Venue != "" {
		event.Venue = req.Venue
	}
	if req.StartAt != nil {
		event.StartAt = req.StartAt
	}
	if req.EndAt != nil {
		event.EndAt = req.EndAt
	}
	if req.SalesStart != nil {
		event.SalesStart = req.SalesStart
	}
	if req.SalesEnd != nil {
		event.SalesEnd = req.SalesEnd
	}
	if req.Status != "" {
		event.Status = req.Status
	}

	if event.SalesEnd != nil && event.EndAt != nil && event.SalesEnd.After(*event.EndAt) {
		return nil, errors.New("sales may not end after the event ends")
	}

	if err := s.store.UpdateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (s *EventService) UpdateTicketType(ctx context.Context, organizerID, ticketTypeID string, req UpdateTicketTypeRequest) (*models.TicketType, error) {
	tt, err := s.store.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}

	event, err := s.store.GetEvent(ctx, tt.EventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, status.ErrTicketTypeNotFound
	}

	if req.Name != "" {
		tt.Name = req.Name
	}
	if req.Description != "" {
		tt.Description = req.Description
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, errors.New("ticket type price may not be negative")
		}
		tt.Price = *req.Price
	}
	if req.TotalAvailable != nil {
		if *req.TotalAvailable < 0 {
			return nil, errors.New("ticket type capacity may not be negative")
		}
		if *req.TotalAvailable < tt.Issued {
			return nil, status.ErrCapacityBelowIssued
		}
		tt.TotalAvailable = *req.TotalAvailable
	}

	// The store re-checks total_available >= issued under the same update,
	// so a concurrent purchase cannot slip a shrink past this.
	if err := s.store.UpdateTicketType(ctx, tt); err != nil {
		return nil, err
	}
	return tt, nil
}

func (s *EventService) ListTicketsForHolder(ctx context.Context, holderID string) ([]*models.Ticket, error) {
	return s.store.ListTicketsForHolder(ctx, holderID)
}
