package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketType struct {
	ID             string          `db:"id" json:"id"`
	EventID        string          `db:"event" json:"event_id"`
	Name           string          `db:"name" json:"name"`
	Description    string          `db:"description" json:"description"`
	Price          decimal.Decimal `db:"price" json:"price"`
	TotalAvailable int             `db:"total_available" json:"total_available"`
	Issued         int             `db:"issued" json:"issued"`
}

// Remaining never reports below zero even if the counters are mid-update.
func (t *TicketType) Remaining() int {
	if r := t.TotalAvailable - t.Issued; r > 0 {
		return r
	}
	return 0
}

type Ticket struct {
	ID           string    `db:"id" json:"id"`
	TicketTypeID string    `db:"ticket_type" json:"ticket_type_id"`
	EventID      string    `db:"event" json:"event_id"`
	HolderID     string    `db:"holder" json:"holder_id,omitempty"`
	Code         string    `db:"code" json:"code"`
	IssuedAt     time.Time `db:"issued_at" json:"issued_at"`
}

// Reservation is a committed capacity claim against one ticket type. It is
// converted into issued tickets or released, never left dangling.
type Reservation struct {
	ID           string
	EventID      string
	TicketTypeID string
	Quantity     int
	Price        decimal.Decimal
	ReservedAt   time.Time
}
