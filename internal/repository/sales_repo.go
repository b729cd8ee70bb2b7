package repository

import (
	"context"

	"transitdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SalesLedger is the read-only view over sale records owned by the sales
// subsystem. The shift core never writes through it.
type SalesLedger interface {
	ListSessionSales(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID, channel string) ([]model.SaleRecord, error)
	// ListSessionSalesTx reads inside the close transaction so the
	// aggregation sees a consistent snapshot.
	ListSessionSalesTx(tx *gorm.DB, scope model.TenantScope, sessionID uuid.UUID, channel string) ([]model.SaleRecord, error)
}

type salesLedger struct{ db *gorm.DB }

func NewSalesLedger(db *gorm.DB) SalesLedger { return &salesLedger{db: db} }

func (r *salesLedger) ListSessionSales(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID, channel string) ([]model.SaleRecord, error) {
	return listSales(r.db.WithContext(ctx), scope, sessionID, channel)
}

func (r *salesLedger) ListSessionSalesTx(tx *gorm.DB, scope model.TenantScope, sessionID uuid.UUID, channel string) ([]model.SaleRecord, error) {
	return listSales(tx, scope, sessionID, channel)
}

func listSales(db *gorm.DB, scope model.TenantScope, sessionID uuid.UUID, channel string) ([]model.SaleRecord, error) {
	var records []model.SaleRecord
	err := db.
		Where("company_id = ? AND agency_id = ?", scope.CompanyID, scope.AgencyID).
		Where("shift_session_id = ? AND channel = ?", sessionID, channel).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	return records, err
}
