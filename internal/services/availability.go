package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"ticket-platform/config"
	"ticket-platform/internal/status"
	"ticket-platform/models"
	"ticket-platform/utils"
)

// AvailabilityService keeps a per-ticket-type snapshot of capacity counters
// in Redis so availability reads and the metrics collector stay off the
// store's hot path. The snapshot is advisory; the store is the authority.
type AvailabilityService struct {
	store   Store
	Redis   *redis.Client
	cfg     *config.Config
	breaker *utils.CircuitBreaker
}

func NewAvailabilityService(store Store, redisClient *redis.Client, cfg *config.Config) *AvailabilityService {
	return &AvailabilityService{
		store:   store,
		Redis:   redisClient,
		cfg:     cfg,
		breaker: utils.NewCircuitBreaker("availability-cache"),
	}
}

func availabilityKey(ticketTypeID string) string {
	return fmt.Sprintf("availability:%s", ticketTypeID)
}

// Refresh writes the latest counters for the ticket type into the snapshot.
// Failures are logged and swallowed: a stale snapshot self-heals on the next
// refresh or expiry.
func (s *AvailabilityService) Refresh(ctx context.Context, tt *models.TicketType) {
	if s.Redis == nil {
		return
	}

	key := availabilityKey(tt.ID)
	if err := s.Redis.HSet(ctx, key, map[string]any{
		"event_id": tt.EventID,
		"total":    tt.TotalAvailable,
		"issued":   tt.Issued,
	}).Err(); err != nil {
		slog.Warn("Failed to refresh availability snapshot", "ticket_type_id", tt.ID, "error", err)
		return
	}
	s.Redis.Expire(ctx, key, s.cfg.AvailabilityCacheTTL)
}

// Remaining returns the number of unsold units for the ticket type, served
// from the snapshot when the cache is healthy and from the store otherwise.
func (s *AvailabilityService) Remaining(ctx context.Context, ticketTypeID string) (int, error) {
	if s.Redis != nil {
		result, err := s.breaker.Execute(ctx, func() (any, error) {
			return s.Redis.HGetAll(ctx, availabilityKey(ticketTypeID)).Result()
		})
		if err == nil {
			if fields, ok := result.(map[string]string); ok && len(fields) > 0 {
				total, terr := strconv.Atoi(fields["total"])
				issued, ierr := strconv.Atoi(fields["issued"])
				if terr == nil && ierr == nil {
					if r := total - issued; r > 0 {
						return r, nil
					}
					return 0, nil
				}
			}
		}
	}

	tt, err := s.store.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		if status.NotFound(err) {
			return 0, err
		}
		return 0, fmt.Errorf("availability fallback: %w", err)
	}
	s.Refresh(ctx, tt)
	return tt.Remaining(), nil
}
