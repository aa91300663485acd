package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticket-platform/config"
	"ticket-platform/internal/status"
	"ticket-platform/models"
)

// fakeStore is an in-memory Store with the same atomicity guarantees as the
// real one: capacity moves under a mutex as one conditional step, and only
// the first valid row per ticket commits. Error injection fields simulate
// store failures.
type fakeStore struct {
	mu sync.Mutex

	events      map[string]*models.Event
	ticketTypes map[string]*models.TicketType
	tickets     map[string]*models.Ticket
	validations map[string][]*models.TicketValidation
	nextID      int

	// queued errors consumed one per ReserveCapacity call before the real
	// logic runs; nil entries mean "no injected failure this call"
	reserveErrs []error

	failCreateTickets bool
	releaseCalls      int

	// stall hooks block the call until the caller's deadline fires, then
	// fail the way the real store classifies a driver timeout
	stallReserve bool
	stallTickets bool
}

func stalled(ctx context.Context) error {
	<-ctx.Done()
	return fmt.Errorf("%w: %v", status.ErrStoreUnavailable, ctx.Err())
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:      map[string]*models.Event{},
		ticketTypes: map[string]*models.TicketType{},
		tickets:     map[string]*models.Ticket{},
		validations: map[string][]*models.TicketValidation{},
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%04d", prefix, f.nextID)
}

func (f *fakeStore) addEvent(ev *models.Event) *models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev.ID == "" {
		ev.ID = f.id("evt")
	}
	f.events[ev.ID] = ev
	return ev
}

func (f *fakeStore) addTicketType(tt *models.TicketType) *models.TicketType {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tt.ID == "" {
		tt.ID = f.id("tt")
	}
	f.ticketTypes[tt.ID] = tt
	return tt
}

func (f *fakeStore) addTicket(t *models.Ticket) *models.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = f.id("tkt")
	}
	f.tickets[t.ID] = t
	return t
}

func (f *fakeStore) issuedCount(ticketTypeID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticketTypes[ticketTypeID].Issued
}

func (f *fakeStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return nil, status.ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (f *fakeStore) CreateEventWithTicketTypes(ctx context.Context, ev *models.Event, types []*models.TicketType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev.ID == "" {
		ev.ID = f.id("evt")
	}
	f.events[ev.ID] = ev
	for _, tt := range types {
		tt.EventID = ev.ID
		if tt.ID == "" {
			tt.ID = f.id("tt")
		}
		f.ticketTypes[tt.ID] = tt
	}
	return nil
}

func (f *fakeStore) UpdateEvent(ctx context.Context, ev *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[ev.ID]; !ok {
		return status.ErrEventNotFound
	}
	f.events[ev.ID] = ev
	return nil
}

func (f *fakeStore) ListEventsForOrganizer(ctx context.Context, organizerID string, limit, offset int) ([]*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Event
	for _, ev := range f.events {
		if ev.OrganizerID == organizerID {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) GetTicketType(ctx context.Context, id string) (*models.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.ticketTypes[id]
	if !ok {
		return nil, status.ErrTicketTypeNotFound
	}
	cp := *tt
	return &cp, nil
}

func (f *fakeStore) ListTicketTypes(ctx context.Context, eventID string) ([]*models.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TicketType
	for _, tt := range f.ticketTypes {
		if tt.EventID == eventID {
			cp := *tt
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateTicketType(ctx context.Context, tt *models.TicketType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.ticketTypes[tt.ID]
	if !ok {
		return status.ErrTicketTypeNotFound
	}
	if tt.TotalAvailable < current.Issued {
		return status.ErrCapacityBelowIssued
	}
	tt.Issued = current.Issued
	f.ticketTypes[tt.ID] = tt
	return nil
}

func (f *fakeStore) ReserveCapacity(ctx context.Context, ticketTypeID string, qty int) error {
	if f.stallReserve {
		return stalled(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.reserveErrs) > 0 {
		err := f.reserveErrs[0]
		f.reserveErrs = f.reserveErrs[1:]
		if err != nil {
			return err
		}
	}

	tt, ok := f.ticketTypes[ticketTypeID]
	if !ok {
		return status.ErrTicketTypeNotFound
	}
	if tt.Issued+qty > tt.TotalAvailable {
		return status.ErrCapacityExceeded
	}
	tt.Issued += qty
	return nil
}

func (f *fakeStore) ReleaseCapacity(ctx context.Context, ticketTypeID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls++
	tt, ok := f.ticketTypes[ticketTypeID]
	if !ok {
		return status.ErrTicketTypeNotFound
	}
	tt.Issued -= qty
	if tt.Issued < 0 {
		tt.Issued = 0
	}
	return nil
}

func (f *fakeStore) CreateTickets(ctx context.Context, tickets []*models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateTickets {
		return status.ErrStoreUnavailable
	}
	for _, t := range tickets {
		if t.ID == "" {
			t.ID = f.id("tkt")
		}
		f.tickets[t.ID] = t
	}
	return nil
}

func (f *fakeStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	if f.stallTickets {
		return nil, stalled(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil, status.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.Code == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, status.ErrTicketNotFound
}

func (f *fakeStore) ListTicketsForHolder(ctx context.Context, holderID string) ([]*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Ticket
	for _, t := range f.tickets {
		if t.HolderID == holderID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertValidation(ctx context.Context, v *models.TicketValidation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if v.Status == models.ValidationStatusValid {
		for _, existing := range f.validations[v.TicketID] {
			if existing.Status == models.ValidationStatusValid {
				return status.ErrAlreadyValidated
			}
		}
	}

	v.ID = f.id("val")
	cp := *v
	f.validations[v.TicketID] = append(f.validations[v.TicketID], &cp)
	return nil
}

func (f *fakeStore) ListValidations(ctx context.Context, ticketID string) ([]*models.TicketValidation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.TicketValidation, 0, len(f.validations[ticketID]))
	for _, v := range f.validations[ticketID] {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func testConfig() *config.Config {
	return &config.Config{
		StoreTimeout:         time.Second,
		MaxConflictRetries:   3,
		ConflictBackoff:      time.Millisecond,
		GateLockTTL:          time.Second,
		CodeCacheTTL:         time.Minute,
		AvailabilityCacheTTL: time.Minute,
	}
}
