package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-platform/internal/clock"
	"ticket-platform/internal/status"
	"ticket-platform/models"
)

func validCreateRequest() CreateEventRequest {
	start := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 23, 0, 0, 0, time.UTC)
	salesEnd := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)

	return CreateEventRequest{
		Name:     "Autumn Gala",
		Venue:    "Opera House",
		StartAt:  &start,
		EndAt:    &end,
		SalesEnd: &salesEnd,
		TicketTypes: []CreateTicketTypeRequest{
			{Name: "Standard", Price: decimal.NewFromInt(50), TotalAvailable: 100},
			{Name: "VIP", Price: decimal.NewFromInt(150), TotalAvailable: 20},
		},
	}
}

func TestCreateEventPersistsEventAndTypes(t *testing.T) {
	store := newFakeStore()
	svc := NewEventService(store, clock.System())

	event, err := svc.CreateEvent(context.Background(), "org_1", validCreateRequest())

	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "org_1", event.OrganizerID)
	assert.Equal(t, models.EventStatusDraft, event.Status, "status defaults to draft")

	types, err := store.ListTicketTypes(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Len(t, types, 2)
	for _, tt := range types {
		assert.Equal(t, event.ID, tt.EventID)
		assert.Zero(t, tt.Issued)
	}
}

func TestCreateEventRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateEventRequest)
	}{
		{"Missing name", func(r *CreateEventRequest) { r.Name = "" }},
		{"Missing venue", func(r *CreateEventRequest) { r.Venue = "" }},
		{"No ticket types", func(r *CreateEventRequest) { r.TicketTypes = nil }},
		{"Sales end after event end", func(r *CreateEventRequest) {
			late := r.EndAt.Add(time.Hour)
			r.SalesEnd = &late
		}},
		{"Negative price", func(r *CreateEventRequest) {
			r.TicketTypes[0].Price = decimal.NewFromInt(-1)
		}},
		{"Negative capacity", func(r *CreateEventRequest) {
			r.TicketTypes[0].TotalAvailable = -5
		}},
		{"Terminal initial status", func(r *CreateEventRequest) {
			r.Status = models.EventStatusCancelled
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc := NewEventService(store, clock.System())

			req := validCreateRequest()
			tc.mutate(&req)

			_, err := svc.CreateEvent(context.Background(), "org_1", req)
			assert.Error(t, err)
		})
	}
}

func TestUpdateEventStatusIsMonotonic(t *testing.T) {
	tests := []struct {
		name    string
		from    models.EventStatus
		to      models.EventStatus
		allowed bool
	}{
		{"Draft to published", models.EventStatusDraft, models.EventStatusPublished, true},
		{"Draft to cancelled", models.EventStatusDraft, models.EventStatusCancelled, true},
		{"Published back to draft", models.EventStatusPublished, models.EventStatusDraft, false},
		{"Published to completed", models.EventStatusPublished, models.EventStatusCompleted, true},
		{"Cancelled to published", models.EventStatusCancelled, models.EventStatusPublished, false},
		{"Completed to cancelled", models.EventStatusCompleted, models.EventStatusCancelled, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			event := store.addEvent(&models.Event{
				Name:        "Show",
				Venue:       "Hall",
				OrganizerID: "org_1",
				Status:      tc.from,
			})

			svc := NewEventService(store, clock.System())
			_, err := svc.UpdateEventForOrganizer(context.Background(), "org_1", event.ID, UpdateEventRequest{Status: tc.to})

			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, status.ErrInvalidStatusChange)
			}
		})
	}
}

func TestUpdateEventForeignOrganizerLooksMissing(t *testing.T) {
	store := newFakeStore()
	event := store.addEvent(&models.Event{
		Name:        "Show",
		Venue:       "Hall",
		OrganizerID: "org_1",
		Status:      models.EventStatusDraft,
	})

	svc := NewEventService(store, clock.System())

	_, err := svc.UpdateEventForOrganizer(context.Background(), "org_2", event.ID, UpdateEventRequest{Name: "Hijacked"})
	assert.ErrorIs(t, err, status.ErrEventNotFound)

	_, _, err = svc.GetEventForOrganizer(context.Background(), "org_2", event.ID)
	assert.ErrorIs(t, err, status.ErrEventNotFound)
}

func TestUpdateTicketTypeCapacityGuard(t *testing.T) {
	store := newFakeStore()
	event := store.addEvent(&models.Event{
		Name:        "Show",
		Venue:       "Hall",
		OrganizerID: "org_1",
		Status:      models.EventStatusPublished,
	})
	tt := store.addTicketType(&models.TicketType{
		EventID:        event.ID,
		Name:           "Standard",
		TotalAvailable: 100,
		Issued:         40,
	})

	svc := NewEventService(store, clock.System())

	// Shrinking below what is already sold is refused.
	_, err := svc.UpdateTicketType(context.Background(), "org_1", tt.ID, UpdateTicketTypeRequest{TotalAvailable: intPtr(30)})
	assert.ErrorIs(t, err, status.ErrCapacityBelowIssued)

	// Shrinking to exactly the issued count is fine.
	updated, err := svc.UpdateTicketType(context.Background(), "org_1", tt.ID, UpdateTicketTypeRequest{TotalAvailable: intPtr(40)})
	require.NoError(t, err)
	assert.Equal(t, 40, updated.TotalAvailable)
	assert.Zero(t, updated.Remaining())

	// A foreign organizer cannot see the ticket type at all.
	_, err = svc.UpdateTicketType(context.Background(), "org_2", tt.ID, UpdateTicketTypeRequest{TotalAvailable: intPtr(500)})
	assert.ErrorIs(t, err, status.ErrTicketTypeNotFound)
}

func TestUpdateTicketTypeZeroValuesAreReal(t *testing.T) {
	store := newFakeStore()
	event := store.addEvent(&models.Event{
		Name:        "Show",
		Venue:       "Hall",
		OrganizerID: "org_1",
		Status:      models.EventStatusDraft,
	})
	tt := store.addTicketType(&models.TicketType{
		EventID:        event.ID,
		Name:           "Standard",
		Price:          decimal.NewFromInt(25),
		TotalAvailable: 100,
	})

	svc := NewEventService(store, clock.System())

	// Zero price means free tickets, not "leave unchanged".
	free := decimal.Zero
	updated, err := svc.UpdateTicketType(context.Background(), "org_1", tt.ID, UpdateTicketTypeRequest{Price: &free})
	require.NoError(t, err)
	assert.True(t, updated.Price.IsZero())

	// Zero capacity closes sales on an unsold type.
	updated, err = svc.UpdateTicketType(context.Background(), "org_1", tt.ID, UpdateTicketTypeRequest{TotalAvailable: intPtr(0)})
	require.NoError(t, err)
	assert.Zero(t, updated.TotalAvailable)

	// Omitted fields stay untouched.
	updated, err = svc.UpdateTicketType(context.Background(), "org_1", tt.ID, UpdateTicketTypeRequest{Name: "Early Bird"})
	require.NoError(t, err)
	assert.Equal(t, "Early Bird", updated.Name)
	assert.True(t, updated.Price.IsZero())
	assert.Zero(t, updated.TotalAvailable)

	negative := -1
	_, err = svc.UpdateTicketType(context.Background(), "org_1", tt.ID, UpdateTicketTypeRequest{TotalAvailable: &negative})
	assert.Error(t, err)
}

func intPtr(v int) *int { return &v }

func TestListEventsScopedToOrganizer(t *testing.T) {
	store := newFakeStore()
	store.addEvent(&models.Event{Name: "Mine", OrganizerID: "org_1", Status: models.EventStatusDraft})
	store.addEvent(&models.Event{Name: "Mine too", OrganizerID: "org_1", Status: models.EventStatusPublished})
	store.addEvent(&models.Event{Name: "Theirs", OrganizerID: "org_2", Status: models.EventStatusPublished})

	svc := NewEventService(store, clock.System())
	events, err := svc.ListEventsForOrganizer(context.Background(), "org_1", 1, 50)

	require.NoError(t, err)
	assert.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, "org_1", ev.OrganizerID)
	}
}
