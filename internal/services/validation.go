package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"ticket-platform/config"
	"ticket-platform/internal/clock"
	"ticket-platform/internal/status"
	"ticket-platform/models"
	"ticket-platform/monitoring"
)

// ValidationService drives a ticket through its validation state machine.
// A ticket with no validation rows is unvalidated; the first successful
// attempt writes the single "valid" row; every later attempt is recorded as
// "already_used". The winner of concurrent scans is decided by the store's
// insert-if-no-prior-valid primitive, not by anything in this process.
type ValidationService struct {
	store Store
	clock clock.Clock
	Redis *redis.Client // optional, shortens the race window at gates
	cfg   *config.Config
}

func NewValidationService(store Store, clk clock.Clock, redisClient *redis.Client, cfg *config.Config) *ValidationService {
	return &ValidationService{
		store: store,
		clock: clk,
		Redis: redisClient,
		cfg:   cfg,
	}
}

// Validate records one entry attempt for the ticket and returns the outcome.
// Unknown tickets fail with an error since there is no ticket to attach the
// attempt to; every other outcome is an appended audit row.
func (s *ValidationService) Validate(ctx context.Context, ticketID string, method models.ValidationMethod) (*models.TicketValidation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	event, err := s.store.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}

	if unlock := s.acquireGateLock(ctx, ticketID); unlock != nil {
		defer unlock()
	}

	// A ticket that was already admitted stays admitted: re-scans after the
	// window closes or the event is cancelled report AlreadyUsed, never a
	// second Valid and never Expired/Invalid.
	used, err := s.hasValidValidation(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("read validation history: %w", err)
	}
	if used {
		return s.record(ctx, ticketID, models.ValidationStatusAlreadyUsed, method)
	}

	now := s.clock.Now()

	if event.Status == models.EventStatusCancelled {
		return s.record(ctx, ticketID, models.ValidationStatusInvalid, method)
	}

	if !event.WithinEntryWindow(now) {
		return s.record(ctx, ticketID, models.ValidationStatusExpired, method)
	}

	attempt := &models.TicketValidation{
		TicketID: ticketID,
		Status:   models.ValidationStatusValid,
		Method:   method,
		Created:  now,
	}
	err = s.store.InsertValidation(ctx, attempt)
	if errors.Is(err, status.ErrAlreadyValidated) {
		// Someone already holds the valid row; duplicate scans at a gate are
		// normal operation, not an error.
		return s.record(ctx, ticketID, models.ValidationStatusAlreadyUsed, method)
	}
	if err != nil {
		return nil, fmt.Errorf("record validation: %w", err)
	}

	monitoring.TrackValidation(string(attempt.Status), string(method))
	return attempt, nil
}

// History returns the full append-only validation trail for a ticket.
func (s *ValidationService) History(ctx context.Context, ticketID string) ([]*models.TicketValidation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if _, err := s.store.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.store.ListValidations(ctx, ticketID)
}

func (s *ValidationService) hasValidValidation(ctx context.Context, ticketID string) (bool, error) {
	history, err := s.store.ListValidations(ctx, ticketID)
	if err != nil {
		return false, err
	}
	for _, v := range history {
		if v.Status == models.ValidationStatusValid {
			return true, nil
		}
	}
	return false, nil
}

func (s *ValidationService) record(ctx context.Context, ticketID string, outcome models.ValidationStatus, method models.ValidationMethod) (*models.TicketValidation, error) {
	attempt := &models.TicketValidation{
		TicketID: ticketID,
		Status:   outcome,
		Method:   method,
		Created:  s.clock.Now(),
	}
	if err := s.store.InsertValidation(ctx, attempt); err != nil {
		return nil, fmt.Errorf("record validation: %w", err)
	}
	monitoring.TrackValidation(string(outcome), string(method))
	return attempt, nil
}

// acquireGateLock takes a short-lived per-ticket lock so that two scanners
// hitting the same ticket rarely reach the store together. The store stays
// authoritative; a lost or failed lock never blocks the attempt.
func (s *ValidationService) acquireGateLock(ctx context.Context, ticketID string) func() {
	if s.Redis == nil {
		return nil
	}

	lockKey := fmt.Sprintf("validation:lock:%s", ticketID)
	ok, err := s.Redis.SetNX(ctx, lockKey, 1, s.cfg.GateLockTTL).Result()
	if err != nil {
		slog.Warn("Gate lock unavailable, continuing without it", "ticket_id", ticketID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	return func() {
		if err := s.Redis.Del(context.WithoutCancel(ctx), lockKey).Err(); err != nil {
			slog.Warn("Failed to drop gate lock", "ticket_id", ticketID, "error", err)
		}
	}
}
