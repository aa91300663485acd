package monitoring

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Total tickets issued per event and ticket type",
		},
		[]string{"event_id", "ticket_type_id"},
	)

	capacityExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_capacity_exceeded_total",
			Help: "Purchase attempts refused because capacity was exhausted",
		},
		[]string{"ticket_type_id"},
	)

	conflictRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_conflict_retries_total",
			Help: "Store conflicts retried during capacity reservation",
		},
	)

	validations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_validations_total",
			Help: "Ticket validation attempts by outcome and method",
		},
		[]string{"status", "method"},
	)

	purchaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "purchase_duration_seconds",
			Help:    "Duration of purchase operations",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"event_id"},
	)

	remainingCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ticket_type_remaining_capacity",
			Help: "Remaining ticket capacity per ticket type",
		},
		[]string{"ticket_type_id"},
	)
)

func TrackTicketsIssued(eventID, ticketTypeID string, quantity int) {
	ticketsIssued.WithLabelValues(eventID, ticketTypeID).Add(float64(quantity))
}

func TrackCapacityExceeded(ticketTypeID string) {
	capacityExceeded.WithLabelValues(ticketTypeID).Inc()
}

func TrackConflictRetry() {
	conflictRetries.Inc()
}

func TrackValidation(status, method string) {
	validations.WithLabelValues(status, method).Inc()
}

func TrackPurchaseDuration(eventID string, duration time.Duration) {
	purchaseDuration.WithLabelValues(eventID).Observe(duration.Seconds())
}

type Monitor struct {
	redis    *redis.Client
	interval time.Duration
}

func NewMonitor(ctx context.Context, redisClient *redis.Client, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	monitor := &Monitor{redis: redisClient, interval: interval}

	if redisClient != nil {
		go monitor.collectMetrics(ctx)
	}

	return monitor
}

func (m *Monitor) collectMetrics(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectAvailabilityMetrics(ctx)
		}
	}
}

// collectAvailabilityMetrics reads the availability snapshots the
// services keep in redis and exposes them as gauges.
func (m *Monitor) collectAvailabilityMetrics(ctx context.Context) {
	keys, _ := m.redis.Keys(ctx, "availability:*").Result()
	for _, key := range keys {
		ticketTypeID := key[len("availability:"):]
		fields, err := m.redis.HGetAll(ctx, key).Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		total, _ := strconv.Atoi(fields["total"])
		issued, _ := strconv.Atoi(fields["issued"])
		remaining := total - issued
		if remaining < 0 {
			remaining = 0
		}
		remainingCapacity.WithLabelValues(ticketTypeID).Set(float64(remaining))
	}
}
