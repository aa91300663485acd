package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"ticket-platform/internal/status"
	"ticket-platform/models"
)

// PocketBase implements services.Store on top of the embedded record store.
// Capacity accounting goes through raw conditional updates so concurrent
// purchases serialize on the database instead of on application locks.
type PocketBase struct {
	app core.App
}

func New(app core.App) *PocketBase {
	return &PocketBase{app: app}
}

func (s *PocketBase) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	record, err := s.app.FindRecordById("events", id)
	if err != nil {
		return nil, classify(err, status.ErrEventNotFound)
	}
	return eventFromRecord(record), nil
}

func (s *PocketBase) CreateEventWithTicketTypes(ctx context.Context, ev *models.Event, types []*models.TicketType) error {
	err := s.app.RunInTransaction(func(txApp core.App) error {
		eventsCol, err := txApp.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		typesCol, err := txApp.FindCollectionByNameOrId("ticket_types")
		if err != nil {
			return err
		}

		record := core.NewRecord(eventsCol)
		applyEvent(record, ev)
		if err := txApp.Save(record); err != nil {
			return err
		}
		ev.ID = record.Id
		ev.Created = record.GetDateTime("created").Time()

		for _, tt := range types {
			tt.EventID = ev.ID
			ttRecord := core.NewRecord(typesCol)
			applyTicketType(ttRecord, tt)
			if err := txApp.Save(ttRecord); err != nil {
				return err
			}
			tt.ID = ttRecord.Id
		}
		return nil
	})
	return classify(err, nil)
}

func (s *PocketBase) UpdateEvent(ctx context.Context, ev *models.Event) error {
	record, err := s.app.FindRecordById("events", ev.ID)
	if err != nil {
		return classify(err, status.ErrEventNotFound)
	}
	applyEvent(record, ev)
	return classify(s.app.Save(record), nil)
}

func (s *PocketBase) ListEventsForOrganizer(ctx context.Context, organizerID string, limit, offset int) ([]*models.Event, error) {
	records, err := s.app.FindRecordsByFilter(
		"events",
		"organizer = {:organizer}",
		"-created",
		limit,
		offset,
		dbx.Params{"organizer": organizerID},
	)
	if err != nil {
		return nil, classify(err, nil)
	}

	events := make([]*models.Event, 0, len(records))
	for _, r := range records {
		events = append(events, eventFromRecord(r))
	}
	return events, nil
}

func (s *PocketBase) GetTicketType(ctx context.Context, id string) (*models.TicketType, error) {
	record, err := s.app.FindRecordById("ticket_types", id)
	if err != nil {
		return nil, classify(err, status.ErrTicketTypeNotFound)
	}
	return ticketTypeFromRecord(record), nil
}

func (s *PocketBase) ListTicketTypes(ctx context.Context, eventID string) ([]*models.TicketType, error) {
	records, err := s.app.FindRecordsByFilter(
		"ticket_types",
		"event = {:event}",
		"created",
		0,
		0,
		dbx.Params{"event": eventID},
	)
	if err != nil {
		return nil, classify(err, nil)
	}

	types := make([]*models.TicketType, 0, len(records))
	for _, r := range records {
		types = append(types, ticketTypeFromRecord(r))
	}
	return types, nil
}

// UpdateTicketType writes the mutable fields. The capacity write is
// conditional on issued so a concurrent purchase cannot race a shrink below
// the issued count.
func (s *PocketBase) UpdateTicketType(ctx context.Context, tt *models.TicketType) error {
	query := `
		UPDATE ticket_types
		SET name = {:name},
		    description = {:description},
		    price = {:price},
		    total_available = {:total}
		WHERE id = {:id} AND issued <= {:total}
	`

	result, err := s.app.DB().NewQuery(query).Bind(dbx.Params{
		"name":        tt.Name,
		"description": tt.Description,
		"price":       tt.Price.InexactFloat64(),
		"total":       tt.TotalAvailable,
		"id":          tt.ID,
	}).WithContext(ctx).Execute()
	if err != nil {
		return classify(err, nil)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return classify(err, nil)
	}
	if affected == 0 {
		if _, err := s.GetTicketType(ctx, tt.ID); err != nil {
			return err
		}
		return status.ErrCapacityBelowIssued
	}
	return nil
}

// ReserveCapacity is the oversell guard. The increment commits only when the
// resulting issued count still fits within total_available; losing callers
// get ErrCapacityExceeded, not a partial claim.
func (s *PocketBase) ReserveCapacity(ctx context.Context, ticketTypeID string, qty int) error {
	query := `
		UPDATE ticket_types
		SET issued = issued + {:qty}
		WHERE id = {:id} AND issued + {:qty} <= total_available
	`

	result, err := s.app.DB().NewQuery(query).Bind(dbx.Params{
		"qty": qty,
		"id":  ticketTypeID,
	}).WithContext(ctx).Execute()
	if err != nil {
		return classify(err, nil)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return classify(err, nil)
	}
	if affected == 0 {
		// Distinguish a missing row from an exhausted one.
		if _, err := s.GetTicketType(ctx, ticketTypeID); err != nil {
			return err
		}
		return status.ErrCapacityExceeded
	}
	return nil
}

func (s *PocketBase) ReleaseCapacity(ctx context.Context, ticketTypeID string, qty int) error {
	query := `
		UPDATE ticket_types
		SET issued = MAX(issued - {:qty}, 0)
		WHERE id = {:id}
	`

	result, err := s.app.DB().NewQuery(query).Bind(dbx.Params{
		"qty": qty,
		"id":  ticketTypeID,
	}).WithContext(ctx).Execute()
	if err != nil {
		return classify(err, nil)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return classify(err, nil)
	}
	if affected == 0 {
		return status.ErrTicketTypeNotFound
	}
	return nil
}

func (s *PocketBase) CreateTickets(ctx context.Context, tickets []*models.Ticket) error {
	err := s.app.RunInTransaction(func(txApp core.App) error {
		collection, err := txApp.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		for _, t := range tickets {
			record := core.NewRecord(collection)
			record.Set("ticket_type", t.TicketTypeID)
			record.Set("event", t.EventID)
			record.Set("holder", t.HolderID)
			record.Set("code", t.Code)
			record.Set("issued_at", t.IssuedAt)
			if err := txApp.Save(record); err != nil {
				return err
			}
			t.ID = record.Id
		}
		return nil
	})
	return classify(err, nil)
}

func (s *PocketBase) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	record, err := s.app.FindRecordById("tickets", id)
	if err != nil {
		return nil, classify(err, status.ErrTicketNotFound)
	}
	return ticketFromRecord(record), nil
}

func (s *PocketBase) GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"tickets",
		"code = {:code}",
		dbx.Params{"code": code},
	)
	if err != nil {
		return nil, classify(err, status.ErrTicketNotFound)
	}
	return ticketFromRecord(record), nil
}

func (s *PocketBase) ListTicketsForHolder(ctx context.Context, holderID string) ([]*models.Ticket, error) {
	records, err := s.app.FindRecordsByFilter(
		"tickets",
		"holder = {:holder}",
		"-issued_at",
		0,
		0,
		dbx.Params{"holder": holderID},
	)
	if err != nil {
		return nil, classify(err, nil)
	}

	tickets := make([]*models.Ticket, 0, len(records))
	for _, r := range records {
		tickets = append(tickets, ticketFromRecord(r))
	}
	return tickets, nil
}

// InsertValidation appends one attempt. A "valid" row commits only when the
// ticket has no prior valid row; the check and insert share one transaction,
// and SQLite admits a single writer at a time, so exactly one concurrent
// scan can win.
func (s *PocketBase) InsertValidation(ctx context.Context, v *models.TicketValidation) error {
	err := s.app.RunInTransaction(func(txApp core.App) error {
		if v.Status == models.ValidationStatusValid {
			existing, err := txApp.FindFirstRecordByFilter(
				"ticket_validations",
				"ticket = {:ticket} && status = 'valid'",
				dbx.Params{"ticket": v.TicketID},
			)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if existing != nil {
				return status.ErrAlreadyValidated
			}
		}

		collection, err := txApp.FindCollectionByNameOrId("ticket_validations")
		if err != nil {
			return err
		}
		record := core.NewRecord(collection)
		record.Set("ticket", v.TicketID)
		record.Set("status", string(v.Status))
		record.Set("method", string(v.Method))
		if err := txApp.Save(record); err != nil {
			return err
		}
		v.ID = record.Id
		v.Created = record.GetDateTime("created").Time()
		return nil
	})
	if errors.Is(err, status.ErrAlreadyValidated) {
		return status.ErrAlreadyValidated
	}
	return classify(err, nil)
}

func (s *PocketBase) ListValidations(ctx context.Context, ticketID string) ([]*models.TicketValidation, error) {
	records, err := s.app.FindRecordsByFilter(
		"ticket_validations",
		"ticket = {:ticket}",
		"created",
		0,
		0,
		dbx.Params{"ticket": ticketID},
	)
	if err != nil {
		return nil, classify(err, nil)
	}

	validations := make([]*models.TicketValidation, 0, len(records))
	for _, r := range records {
		validations = append(validations, &models.TicketValidation{
			ID:       r.Id,
			TicketID: r.GetString("ticket"),
			Status:   models.ValidationStatus(r.GetString("status")),
			Method:   models.ValidationMethod(r.GetString("method")),
			Created:  r.GetDateTime("created").Time(),
		})
	}
	return validations, nil
}

func eventFromRecord(r *core.Record) *models.Event {
	return &models.Event{
		ID:          r.Id,
		Name:        r.GetString("name"),
		Venue:       r.GetString("venue"),
		OrganizerID: r.GetString("organizer"),
		StartAt:     timePtr(r.GetDateTime("start_at").Time()),
		EndAt:       timePtr(r.GetDateTime("end_at").Time()),
		SalesStart:  timePtr(r.GetDateTime("sales_start_at").Time()),
		SalesEnd:    timePtr(r.GetDateTime("sales_end_at").Time()),
		Status:      models.EventStatus(r.GetString("status")),
		Created:     r.GetDateTime("created").Time(),
		Updated:     r.GetDateTime("updated").Time(),
	}
}

func applyEvent(r *core.Record, ev *models.Event) {
	r.Set("name", ev.Name)
	r.Set("venue", ev.Venue)
	r.Set("organizer", ev.OrganizerID)
	r.Set("status", string(ev.Status))
	setTime(r, "start_at", ev.StartAt)
	setTime(r, "end_at", ev.EndAt)
	setTime(r, "sales_start_at", ev.SalesStart)
	setTime(r, "sales_end_at", ev.SalesEnd)
}

func ticketTypeFromRecord(r *core.Record) *models.TicketType {
	return &models.TicketType{
		ID:             r.Id,
		EventID:        r.GetString("event"),
		Name:           r.GetString("name"),
		Description:    r.GetString("description"),
		Price:          decimal.NewFromFloat(r.GetFloat("price")),
		TotalAvailable: r.GetInt("total_available"),
		Issued:         r.GetInt("issued"),
	}
}

func applyTicketType(r *core.Record, tt *models.TicketType) {
	r.Set("event", tt.EventID)
	r.Set("name", tt.Name)
	r.Set("description", tt.Description)
	r.Set("price", tt.Price.InexactFloat64())
	r.Set("total_available", tt.TotalAvailable)
	r.Set("issued", tt.Issued)
}

func ticketFromRecord(r *core.Record) *models.Ticket {
	return &models.Ticket{
		ID:           r.Id,
		TicketTypeID: r.GetString("ticket_type"),
		EventID:      r.GetString("event"),
		HolderID:     r.GetString("holder"),
		Code:         r.GetString("code"),
		IssuedAt:     r.GetDateTime("issued_at").Time(),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func setTime(r *core.Record, field string, t *time.Time) {
	if t == nil {
		r.Set(field, nil)
		return
	}
	r.Set(field, *t)
}

// classify maps driver level failures onto the domain taxonomy. notFound is
// the sentinel for a missing row in the caller's collection.
func classify(err, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		if notFound != nil {
			return notFound
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", status.ErrStoreUnavailable, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return fmt.Errorf("%w: %v", status.ErrStoreConflict, err)
	}
	return err
}
