package services

import (
	"context"
	"fmt"

	"ticket-platform/internal/clock"
	"ticket-platform/models"
)

// IssuerService converts a committed reservation into ticket records, one
// per reserved unit, each carrying a fresh unguessable validation code. The
// batch lands in a single store transaction: all tickets or none.
type IssuerService struct {
	store Store
	clock clock.Clock
	codes func() (string, error)
}

func NewIssuerService(store Store, clk clock.Clock, codeGen func() (string, error)) *IssuerService {
	return &IssuerService{
		store: store,
		clock: clk,
		codes: codeGen,
	}
}

// Issue materializes tickets for the reservation. On error nothing was
// persisted and the caller must release the reservation.
func (s *IssuerService) Issue(ctx context.Context, res *models.Reservation, holderID string) ([]*models.Ticket, error) {
	now := s.clock.Now()

	tickets := make([]*models.Ticket, 0, res.Quantity)
	for i := 0; i < res.Quantity; i++ {
		code, err := s.codes()
		if err != nil {
			return nil, fmt.Errorf("generate validation code: %w", err)
		}
		tickets = append(tickets, &models.Ticket{
			TicketTypeID: res.TicketTypeID,
			EventID:      res.EventID,
			HolderID:     holderID,
			Code:         code,
			IssuedAt:     now,
		})
	}

	if err := s.store.CreateTickets(ctx, tickets); err != nil {
		return nil, fmt.Errorf("persist tickets: %w", err)
	}

	return tickets, nil
}
