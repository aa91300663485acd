package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ticket-platform/config"
	"ticket-platform/internal/clock"
	"ticket-platform/internal/status"
	"ticket-platform/models"
	"ticket-platform/monitoring"
	"ticket-platform/utils"
)

// InventoryService tracks capacity vs. issued count per ticket type. The
// reserve/release pair is the only way the issued counter moves, and the
// increment itself happens as a conditional update inside the store, so the
// count can never pass total_available no matter how many goroutines race.
type InventoryService struct {
	store Store
	clock clock.Clock
	cfg   *config.Config
}

func NewInventoryService(store Store, clk clock.Clock, cfg *config.Config) *InventoryService {
	return &InventoryService{
		store: store,
		clock: clk,
		cfg:   cfg,
	}
}

// Reserve atomically claims qty units of the ticket type's capacity and
// returns the reservation that must later be issued or released.
func (s *InventoryService) Reserve(ctx context.Context, eventID, ticketTypeID string, qty int) (*models.Reservation, error) {
	if qty < 1 {
		return nil, status.ErrInvalidQuantity
	}

	// Bound every store interaction; a hung store fails the reservation as
	// retryable instead of blocking the request.
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	tt, err := s.store.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}
	if tt.EventID != eventID {
		return nil, status.ErrTicketTypeNotFound
	}

	event, err := s.store.GetEvent(ctx, tt.EventID)
	if err != nil {
		return nil, err
	}
	if !event.SalesOpenAt(s.clock.Now()) {
		return nil, status.ErrSalesWindowClosed
	}

	if err := s.reserveWithRetry(ctx, ticketTypeID, qty); err != nil {
		if errors.Is(err, status.ErrCapacityExceeded) {
			monitoring.TrackCapacityExceeded(ticketTypeID)
		}
		return nil, err
	}

	resID, err := utils.GenerateCode(8)
	if err != nil {
		// The increment is already committed; put it back.
		s.mustRelease(ctx, ticketTypeID, qty)
		return nil, fmt.Errorf("generate reservation id: %w", err)
	}

	return &models.Reservation{
		ID:           resID,
		EventID:      tt.EventID,
		TicketTypeID: ticketTypeID,
		Quantity:     qty,
		Price:        tt.Price,
		ReservedAt:   s.clock.Now(),
	}, nil
}

// reserveWithRetry retries optimistic-concurrency conflicts a bounded number
// of times. Capacity refusal and store outages surface immediately.
func (s *InventoryService) reserveWithRetry(ctx context.Context, ticketTypeID string, qty int) error {
	var err error
	for attempt := 0; attempt <= s.cfg.MaxConflictRetries; attempt++ {
		if attempt > 0 {
			monitoring.TrackConflictRetry()
			select {
			case <-time.After(time.Duration(attempt) * s.cfg.ConflictBackoff):
			case <-ctx.Done():
				return status.ErrStoreUnavailable
			}
		}

		err = s.store.ReserveCapacity(ctx, ticketTypeID, qty)
		if !errors.Is(err, status.ErrStoreConflict) {
			return err
		}
	}
	return err
}

// Release is the compensating decrement for a reservation whose tickets were
// never materialized. It runs on a detached context so an abandoned request
// still resolves its claim.
func (s *InventoryService) Release(ctx context.Context, res *models.Reservation) {
	s.mustRelease(ctx, res.TicketTypeID, res.Quantity)
}

func (s *InventoryService) mustRelease(ctx context.Context, ticketTypeID string, qty int) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer cancel()

	if err := s.store.ReleaseCapacity(releaseCtx, ticketTypeID, qty); err != nil {
		slog.Error("Failed to release reservation",
			"ticket_type_id", ticketTypeID,
			"quantity", qty,
			"error", err,
		)
	}
}
