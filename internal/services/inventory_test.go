package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-platform/internal/clock"
	"ticket-platform/internal/status"
	"ticket-platform/models"
)

func saleFixture(store *fakeStore, capacity int) (*models.Event, *models.TicketType, clock.Clock) {
	salesStart := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	salesEnd := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	event := store.addEvent(&models.Event{
		Name:       "Summer Festival",
		Venue:      "Riverside Park",
		Status:     models.EventStatusPublished,
		SalesStart: &salesStart,
		SalesEnd:   &salesEnd,
	})
	tt := store.addTicketType(&models.TicketType{
		EventID:        event.ID,
		Name:           "General Admission",
		TotalAvailable: capacity,
	})

	return event, tt, clock.Fixed(time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC))
}

func TestReserveClaimsCapacity(t *testing.T) {
	store := newFakeStore()
	event, tt, clk := saleFixture(store, 10)

	svc := NewInventoryService(store, clk, testConfig())
	res, err := svc.Reserve(context.Background(), event.ID, tt.ID, 3)

	require.NoError(t, err)
	assert.Equal(t, 3, res.Quantity)
	assert.Equal(t, tt.ID, res.TicketTypeID)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 3, store.issuedCount(tt.ID))
}

func TestReserveRejectsInvalidQuantity(t *testing.T) {
	store := newFakeStore()
	event, tt, clk := saleFixture(store, 10)
	svc := NewInventoryService(store, clk, testConfig())

	for _, qty := range []int{0, -1, -100} {
		_, err := svc.Reserve(context.Background(), event.ID, tt.ID, qty)
		assert.ErrorIs(t, err, status.ErrInvalidQuantity)
	}
	assert.Equal(t, 0, store.issuedCount(tt.ID))
}

func TestReserveRejectsTicketTypeFromAnotherEvent(t *testing.T) {
	store := newFakeStore()
	_, tt, clk := saleFixture(store, 10)
	other := store.addEvent(&models.Event{Name: "Other", Status: models.EventStatusPublished})

	svc := NewInventoryService(store, clk, testConfig())
	_, err := svc.Reserve(context.Background(), other.ID, tt.ID, 1)

	assert.ErrorIs(t, err, status.ErrTicketTypeNotFound)
}

func TestReserveOutsideSalesWindow(t *testing.T) {
	tests := []struct {
		name   string
		status models.EventStatus
		now    time.Time
	}{
		{"Draft event", models.EventStatusDraft, time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)},
		{"Cancelled event", models.EventStatusCancelled, time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)},
		{"Before sales start", models.EventStatusPublished, time.Date(2026, 5, 31, 23, 59, 0, 0, time.UTC)},
		{"At sales end", models.EventStatusPublished, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			event, tt, _ := saleFixture(store, 10)
			event.Status = tc.status

			svc := NewInventoryService(store, clock.Fixed(tc.now), testConfig())
			_, err := svc.Reserve(context.Background(), event.ID, tt.ID, 1)

			assert.ErrorIs(t, err, status.ErrSalesWindowClosed)
			assert.Equal(t, 0, store.issuedCount(tt.ID))
		})
	}
}

func TestReserveRefusesOverCapacity(t *testing.T) {
	store := newFakeStore()
	event, tt, clk := saleFixture(store, 5)
	svc := NewInventoryService(store, clk, testConfig())

	_, err := svc.Reserve(context.Background(), event.ID, tt.ID, 6)
	assert.ErrorIs(t, err, status.ErrCapacityExceeded)

	// A smaller claim still fits.
	_, err = svc.Reserve(context.Background(), event.ID, tt.ID, 5)
	assert.NoError(t, err)

	// Now nothing is left.
	_, err = svc.Reserve(context.Background(), event.ID, tt.ID, 1)
	assert.ErrorIs(t, err, status.ErrCapacityExceeded)
	assert.Equal(t, 5, store.issuedCount(tt.ID))
}

func TestReserveConcurrentNeverOversells(t *testing.T) {
	store := newFakeStore()
	event, tt, clk := saleFixture(store, 2)
	svc := NewInventoryService(store, clk, testConfig())

	var wg sync.WaitGroup
	results := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), event.ID, tt.ID, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	won, lost := 0, 0
	for err := range results {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, status.ErrCapacityExceeded)
			lost++
		}
	}

	assert.Equal(t, 2, won)
	assert.Equal(t, 1, lost)
	assert.Equal(t, 2, store.issuedCount(tt.ID))
}

func TestReserveRetriesConflictsThenSucceeds(t *testing.T) {
	store := newFakeStore()
	event, tt, clk := saleFixture(store, 10)
	store.reserveErrs = []error{status.ErrStoreConflict, status.ErrStoreConflict}

	svc := NewInventoryService(store, clk, testConfig())
	res, err := svc.Reserve(context.Background(), event.ID, tt.ID, 2)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Quantity)
	assert.Equal(t, 2, store.issuedCount(tt.ID))
}

func TestReserveGivesUpAfterBoundedRetries(t *testing.T) {
	store := newFakeStore()
	event, tt, clk := saleFixture(store, 10)
	store.reserveErrs = []error{
		status.ErrStoreConflict,
		status.ErrStoreConflict,
		status.ErrStoreConflict,
		status.ErrStoreConflict,
		status.ErrStoreConflict,
	}

	svc := NewInventoryService(store, clk, testConfig())
	_, err := svc.Reserve(context.Background(), event.ID, tt.ID, 1)

	assert.ErrorIs(t, err, status.ErrStoreConflict)
	assert.Equal(t, 0, store.issuedCount(tt.ID))
	// MaxConflictRetries=3 means 4 attempts total, one injected error left.
	assert.Len(t, store.reserveErrs, 1)
}

func TestReserveSurfacesOutageImmediately(t *testing.T) {
	store := newFakeStore()
	event, tt, clk := saleFixture(store, 10)
	store.reserveErrs = []error{status.ErrStoreUnavailable, status.ErrStoreUnavailable}

	svc := NewInventoryService(store, clk, testConfig())
	_, err := svc.Reserve(context.Background(), event.ID, tt.ID, 1)

	assert.ErrorIs(t, err, status.ErrStoreUnavailable)
	// No retry on outage, the second injected error is untouched.
	assert.Len(t, store.reserveErrs, 1)
}

func TestReserveTimesOutAgainstHungStore(t *testing.T) {
	store := newFakeStore()
	event, tt, clk := saleFixture(store, 10)
	store.stallReserve = true

	cfg := testConfig()
	cfg.StoreTimeout = 20 * time.Millisecond

	svc := NewInventoryService(store, clk, cfg)

	start := time.Now()
	_, err := svc.Reserve(context.Background(), event.ID, tt.ID, 1)

	// A hung store fails the reservation as retryable instead of holding
	// the request open.
	assert.ErrorIs(t, err, status.ErrStoreUnavailable)
	assert.True(t, status.Retryable(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestReleaseRestoresCapacity(t *testing.T) {
	store := newFakeStore()
	event, tt, clk := saleFixture(store, 5)
	svc := NewInventoryService(store, clk, testConfig())

	res, err := svc.Reserve(context.Background(), event.ID, tt.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, store.issuedCount(tt.ID))

	svc.Release(context.Background(), res)
	assert.Equal(t, 0, store.issuedCount(tt.ID))

	// The released units are claimable again.
	_, err = svc.Reserve(context.Background(), event.ID, tt.ID, 5)
	assert.NoError(t, err)
}
