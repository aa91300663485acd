package models

import (
	"time"
)

type ValidationStatus string

const (
	ValidationStatusValid       ValidationStatus = "valid"
	ValidationStatusAlreadyUsed ValidationStatus = "already_used"
	ValidationStatusInvalid     ValidationStatus = "invalid"
	ValidationStatusExpired     ValidationStatus = "expired"
)

// Admitted reports whether this outcome opens the gate.
func (s ValidationStatus) Admitted() bool {
	return s == ValidationStatusValid
}

type ValidationMethod string

const (
	ValidationMethodQrScan ValidationMethod = "qr_scan"
	ValidationMethodManual ValidationMethod = "manual"
)

func (m ValidationMethod) Known() bool {
	return m == ValidationMethodQrScan || m == ValidationMethodManual
}

// TicketValidation is one recorded entry attempt. The history per ticket is
// append-only; at most one row ever carries status "valid".
type TicketValidation struct {
	ID       string           `db:"id" json:"id"`
	TicketID string           `db:"ticket" json:"ticket_id"`
	Status   ValidationStatus `db:"status" json:"status"`
	Method   ValidationMethod `db:"method" json:"method"`
	Created  time.Time        `db:"created" json:"created"`
}
