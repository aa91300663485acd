package models

import (
	"time"
)

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

// CanTransitionTo reports whether a status change is allowed. Transitions
// are monotonic: a published event never returns to draft, and
// cancelled/completed are terminal.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case EventStatusDraft:
		return next == EventStatusPublished || next == EventStatusCancelled
	case EventStatusPublished:
		return next == EventStatusCancelled || next == EventStatusCompleted
	default:
		return false
	}
}

func (s EventStatus) IsTerminal() bool {
	return s == EventStatusCancelled || s == EventStatusCompleted
}

type Event struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Venue       string      `db:"venue" json:"venue"`
	OrganizerID string      `db:"organizer" json:"organizer_id"`
	StartAt     *time.Time  `db:"start_at" json:"start_at"`
	EndAt       *time.Time  `db:"end_at" json:"end_at"`
	SalesStart  *time.Time  `db:"sales_start_at" json:"sales_start_at"`
	SalesEnd    *time.Time  `db:"sales_end_at" json:"sales_end_at"`
	Status      EventStatus `db:"status" json:"status"`
	Created     time.Time   `db:"created" json:"created"`
	Updated     time.Time   `db:"updated" json:"updated"`
}

// SalesOpenAt reports whether tickets may be sold at the given instant.
// A missing bound is treated as unbounded on that side.
func (e *Event) SalesOpenAt(now time.Time) bool {
	if e.Status != EventStatusPublished {
		return false
	}
	if e.SalesStart != nil && now.Before(*e.SalesStart) {
		return false
	}
	if e.SalesEnd != nil && !now.Before(*e.SalesEnd) {
		return false
	}
	return true
}

// WithinEntryWindow reports whether a ticket may be validated at the given
// instant. The window is [start, end); an event without a window admits at
// any time.
func (e *Event) WithinEntryWindow(now time.Time) bool {
	if e.StartAt != nil && now.Before(*e.StartAt) {
		return false
	}
	if e.EndAt != nil && !now.Before(*e.EndAt) {
		return false
	}
	return true
}
