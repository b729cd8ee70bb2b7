package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sales channels. Close-time aggregation only considers counter sales;
// online sales reconcile through the payment provider instead.
const (
	ChannelCounter = "counter"
	ChannelOnline  = "online"
)

// SaleRecord is owned by the sales ledger and is read-only to this service:
// the shift core queries and sums it, never mutates it. The ledger refuses to
// tag a new sale with a session that is no longer open, so the snapshot read
// at close time is final.
type SaleRecord struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_sale_records_tenant"`
	AgencyID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_sale_records_tenant"`
	ShiftSessionID *uuid.UUID `gorm:"type:uuid;index"`
	Channel        string     `gorm:"type:varchar(20);not null"`
	Departure      string     `gorm:"not null"`
	Arrival        string     `gorm:"not null"`
	// DepartureTime is the scheduled departure in "15:04" form; lexical
	// order equals chronological order.
	DepartureTime string          `gorm:"type:varchar(5);not null"`
	SeatCount     int             `gorm:"not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt     time.Time
}

// RouteKey is the exact grouping key used by the aggregator.
func (s SaleRecord) RouteKey() string { return s.Departure + "→" + s.Arrival }
