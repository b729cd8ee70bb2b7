package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReportStatus tracks the dual-approval workflow on a ShiftReport.
type ReportStatus string

const (
	ReportAwaitingAccountant ReportStatus = "AWAITING_ACCOUNTANT"
	ReportAwaitingManager    ReportStatus = "AWAITING_MANAGER"
	ReportValidated          ReportStatus = "VALIDATED"
)

// Approval is one party's sign-off. First approval wins: once Approved is
// set the fields are never overwritten.
type Approval struct {
	Approved bool `gorm:"not null;default:false"`
	At       *time.Time
	ByID     *uuid.UUID `gorm:"type:uuid"`
}

// ShiftReport is the frozen sales snapshot written exactly once when a
// session closes. Everything except the approval fields and the derived
// Status is immutable after creation. Reports are never deleted.
type ShiftReport struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ShiftSessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CompanyID      uuid.UUID `gorm:"type:uuid;not null;index:idx_shift_reports_tenant"`
	AgencyID       uuid.UUID `gorm:"type:uuid;not null;index:idx_shift_reports_tenant"`
	OperatorID     uuid.UUID `gorm:"type:uuid;not null"`
	// PeriodStart mirrors the session's StartAt and stays nil when the
	// session was closed without ever being activated.
	PeriodStart *time.Time
	PeriodEnd   time.Time       `gorm:"not null"`
	TicketCount int             `gorm:"not null"`
	AmountTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status      ReportStatus    `gorm:"type:varchar(30);not null;default:'AWAITING_ACCOUNTANT'"`
	Accountant  Approval        `gorm:"embedded;embeddedPrefix:accountant_"`
	Manager     Approval        `gorm:"embedded;embeddedPrefix:manager_"`
	ValidatedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Routes []ShiftReportRoute `gorm:"foreignKey:ShiftReportID"`
}

// ShiftReportRoute is one per-route line of the breakdown. Position records
// first-appearance order in the aggregated sale set; consumers must not read
// any meaning into it beyond display stability of a single report.
type ShiftReportRoute struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ShiftReportID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Position       int       `gorm:"not null"`
	Departure      string    `gorm:"not null"`
	Arrival        string    `gorm:"not null"`
	Tickets        int       `gorm:"not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DepartureTimes StringList      `gorm:"type:jsonb"`
}

// StringList stores a []string as a jsonb column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("StringList: unsupported source type %T", src)
	}
}
