package services

import (
	"context"

	"ticket-platform/models"
)

// Store is the durable record store the services run against. The production
// implementation lives in internal/store (PocketBase); tests use an
// in-memory fake. Every method honors ctx deadlines and returns errors from
// the internal/status taxonomy.
type Store interface {
	// Events.
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	CreateEventWithTicketTypes(ctx context.Context, ev *models.Event, types []*models.TicketType) error
	UpdateEvent(ctx context.Context, ev *models.Event) error
	ListEventsForOrganizer(ctx context.Context, organizerID string, limit, offset int) ([]*models.Event, error)

	// Ticket types. ReserveCapacity is the oversell guard: it increments the
	// issued counter only if the result stays within total_available, as one
	// atomic conditional update. ReleaseCapacity is its compensating inverse.
	GetTicketType(ctx context.Context, id string) (*models.TicketType, error)
	ListTicketTypes(ctx context.Context, eventID string) ([]*models.TicketType, error)
	UpdateTicketType(ctx context.Context, tt *models.TicketType) error
	ReserveCapacity(ctx context.Context, ticketTypeID string, qty int) error
	ReleaseCapacity(ctx context.Context, ticketTypeID string, qty int) error

	// Tickets. CreateTickets persists the whole batch in one transaction.
	CreateTickets(ctx context.Context, tickets []*models.Ticket) error
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error)
	ListTicketsForHolder(ctx context.Context, holderID string) ([]*models.Ticket, error)

	// Validations. InsertValidation appends the attempt; when v.Status is
	// "valid" the insert only commits if no prior valid row exists for the
	// ticket, otherwise it returns status.ErrAlreadyValidated and writes
	// nothing. Exactly one concurrent caller can win.
	InsertValidation(ctx context.Context, v *models.TicketValidation) error
	ListValidations(ctx context.Context, ticketID string) ([]*models.TicketValidation, error)
}
