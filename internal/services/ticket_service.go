package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"

	"ticket-platform/config"
	"ticket-platform/models"
	"ticket-platform/monitoring"
)

// TicketService orchestrates the inventory ledger, the issuer and the
// validation state machine behind the two operations the HTTP layer calls:
// Purchase and CheckIn.
type TicketService struct {
	store        Store
	inventory    *InventoryService
	issuer       *IssuerService
	validator    *ValidationService
	availability *AvailabilityService
	Redis        *redis.Client  // optional code-lookup cache
	pubnub       *pubnub.PubNub // optional realtime feed
	cfg          *config.Config
}

func NewTicketService(
	store Store,
	inventory *InventoryService,
	issuer *IssuerService,
	validator *ValidationService,
	availability *AvailabilityService,
	redisClient *redis.Client,
	pn *pubnub.PubNub,
	cfg *config.Config,
) *TicketService {
	return &TicketService{
		store:        store,
		inventory:    inventory,
		issuer:       issuer,
		validator:    validator,
		availability: availability,
		Redis:        redisClient,
		pubnub:       pn,
		cfg:          cfg,
	}
}

// Purchase reserves qty units and issues the tickets as one logical
// operation. The purchase is all-or-nothing: if issuance fails after the
// reservation committed, the whole reservation is released and no tickets
// are returned.
func (s *TicketService) Purchase(ctx context.Context, eventID, ticketTypeID string, qty int, buyerID string) ([]*models.Ticket, error) {
	started := time.Now()

	res, err := s.inventory.Reserve(ctx, eventID, ticketTypeID, qty)
	if err != nil {
		return nil, err
	}

	issueCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	tickets, err := s.issuer.Issue(issueCtx, res, buyerID)
	cancel()
	if err != nil {
		s.inventory.Release(ctx, res)
		return nil, fmt.Errorf("issue reserved tickets: %w", err)
	}

	for _, t := range tickets {
		s.cacheCode(ctx, t)
	}
	s.refreshAvailability(ctx, eventID, ticketTypeID)

	monitoring.TrackTicketsIssued(eventID, ticketTypeID, qty)
	monitoring.TrackPurchaseDuration(eventID, time.Since(started))

	slog.Info("Tickets issued",
		"event_id", eventID,
		"ticket_type_id", ticketTypeID,
		"quantity", qty,
		"buyer_id", buyerID,
	)

	return tickets, nil
}

// CheckIn resolves a validation code to its ticket and runs one validation
// attempt. Unknown codes fail with TicketNotFound.
func (s *TicketService) CheckIn(ctx context.Context, code string, method models.ValidationMethod) (*models.TicketValidation, error) {
	ticketID, eventID, err := s.resolveCode(ctx, code)
	if err != nil {
		return nil, err
	}

	validation, err := s.validator.Validate(ctx, ticketID, method)
	if err != nil {
		return nil, err
	}

	s.publishCheckIn(eventID, ticketID, validation)

	return validation, nil
}

// TicketsForHolder lists the tickets a holder owns, newest first.
func (s *TicketService) TicketsForHolder(ctx context.Context, holderID string) ([]*models.Ticket, error) {
	return s.store.ListTicketsForHolder(ctx, holderID)
}

// resolveCode looks the code up in the Redis cache first, then in the store
// (unique index on tickets.code), backfilling the cache on a miss.
func (s *TicketService) resolveCode(ctx context.Context, code string) (ticketID, eventID string, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	key := codeKey(code)

	if s.Redis != nil {
		cached, cerr := s.Redis.HGetAll(ctx, key).Result()
		if cerr == nil && cached["ticket_id"] != "" {
			return cached["ticket_id"], cached["event_id"], nil
		}
	}

	ticket, err := s.store.GetTicketByCode(ctx, code)
	if err != nil {
		return "", "", err
	}

	s.cacheCode(ctx, ticket)
	return ticket.ID, ticket.EventID, nil
}

func codeKey(code string) string {
	return fmt.Sprintf("ticket:code:%s", code)
}

// cacheCode is best effort; tickets are immutable so the entry never goes
// stale, it only expires.
func (s *TicketService) cacheCode(ctx context.Context, t *models.Ticket) {
	if s.Redis == nil {
		return
	}

	key := codeKey(t.Code)
	if err := s.Redis.HSet(ctx, key, map[string]any{
		"ticket_id": t.ID,
		"event_id":  t.EventID,
	}).Err(); err != nil {
		slog.Warn("Failed to cache ticket code", "ticket_id", t.ID, "error", err)
		return
	}
	s.Redis.Expire(ctx, key, s.cfg.CodeCacheTTL)
}

// refreshAvailability re-reads the counters and pushes them to the snapshot
// cache and the realtime channel.
func (s *TicketService) refreshAvailability(ctx context.Context, eventID, ticketTypeID string) {
	tt, err := s.store.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		slog.Warn("Failed to read counters after purchase", "ticket_type_id", ticketTypeID, "error", err)
		return
	}

	s.availability.Refresh(ctx, tt)

	if s.pubnub != nil {
		channel := fmt.Sprintf("event-availability-%s", eventID)
		s.pubnub.Publish().
			Channel(channel).
			Message(map[string]any{
				"type":           "availability",
				"ticket_type_id": ticketTypeID,
				"remaining":      tt.Remaining(),
			}).
			Execute()
	}
}

func (s *TicketService) publishCheckIn(eventID, ticketID string, v *models.TicketValidation) {
	if s.pubnub == nil || eventID == "" {
		return
	}

	channel := fmt.Sprintf("event-checkins-%s", eventID)
	s.pubnub.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":      "check_in",
			"ticket_id": ticketID,
			"status":    string(v.Status),
			"method":    string(v.Method),
		}).
		Execute()
}
