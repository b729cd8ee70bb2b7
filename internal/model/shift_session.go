package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShiftStatus is the lifecycle state of a counter session.
// PENDING → ACTIVE ⇄ PAUSED → CLOSED → VALIDATED (terminal).
// The absence of an open session is not persisted.
type ShiftStatus string

const (
	ShiftPending   ShiftStatus = "PENDING"
	ShiftActive    ShiftStatus = "ACTIVE"
	ShiftPaused    ShiftStatus = "PAUSED"
	ShiftClosed    ShiftStatus = "CLOSED"
	ShiftValidated ShiftStatus = "VALIDATED"
)

// IsOpen reports whether the status counts against the single-open-session
// invariant: at most one session per (tenant, operator) may be open.
func (s ShiftStatus) IsOpen() bool {
	return s == ShiftPending || s == ShiftActive || s == ShiftPaused
}

// IsClosable reports whether close() is allowed from this status.
func (s ShiftStatus) IsClosable() bool { return s.IsOpen() }

// ShiftSession is one sales period for one counter operator.
// A partial unique index on (company_id, agency_id, operator_id) restricted to
// open statuses enforces the invariant at insert time (see infra.NewDatabase).
// Once CLOSED the row is immutable except for the approval-driven transition
// to VALIDATED.
type ShiftSession struct {
	ID                  uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID           uuid.UUID   `gorm:"type:uuid;not null;index:idx_shift_sessions_tenant"`
	AgencyID            uuid.UUID   `gorm:"type:uuid;not null;index:idx_shift_sessions_tenant"`
	OperatorID          uuid.UUID   `gorm:"type:uuid;not null;index"`
	OperatorDisplayName string      `gorm:"not null"`
	Status              ShiftStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	// StartAt is nil until the session is activated; EndAt is nil until close.
	StartAt     *time.Time
	EndAt       *time.Time
	TicketCount int             `gorm:"not null;default:0"`
	AmountTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
