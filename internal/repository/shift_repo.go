package repository

import (
	"context"
	"errors"
	"time"

	"transitdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShiftRepository persists ShiftSession and ShiftReport rows. Sessions and
// reports are mutated only through these methods; the *Tx variants run inside
// a caller-owned transaction (close and approval flows).
type ShiftRepository interface {
	// CreateSession inserts a new PENDING session. The partial unique index
	// on open sessions makes this an atomic conditional create: a concurrent
	// duplicate surfaces as gorm.ErrDuplicatedKey, never as a second row.
	CreateSession(ctx context.Context, s *model.ShiftSession) error
	// FindOpenByOperator returns the operator's open (PENDING/ACTIVE/PAUSED)
	// session, or nil when there is none.
	FindOpenByOperator(ctx context.Context, scope model.TenantScope, operatorID uuid.UUID) (*model.ShiftSession, error)
	FindSessionByID(ctx context.Context, scope model.TenantScope, id uuid.UUID) (*model.ShiftSession, error)
	// FindSessionForUpdate locks the session row FOR UPDATE inside tx.
	FindSessionForUpdate(tx *gorm.DB, scope model.TenantScope, id uuid.UUID) (*model.ShiftSession, error)
	// CASSessionStatus flips status from→to only if the row is still in
	// from, setting start_at when provided and still unset. Returns false
	// when the guard did not match (concurrent transition).
	CASSessionStatus(ctx context.Context, scope model.TenantScope, id uuid.UUID, from, to model.ShiftStatus, startAt *time.Time) (bool, error)
	// CloseSessionTx stamps the aggregated totals and CLOSED status.
	CloseSessionTx(tx *gorm.DB, s *model.ShiftSession) error
	// ValidateSessionTx is the CLOSED→VALIDATED compare-and-set executed in
	// the same transaction as the final approval write.
	ValidateSessionTx(tx *gorm.DB, sessionID uuid.UUID) (bool, error)
	ListClosedSessions(ctx context.Context, scope model.TenantScope, page, limit int) ([]model.ShiftSession, int64, error)

	CreateReportTx(tx *gorm.DB, r *model.ShiftReport) error
	FindReportByID(ctx context.Context, scope model.TenantScope, id uuid.UUID) (*model.ShiftReport, error)
	FindReportForUpdate(tx *gorm.DB, scope model.TenantScope, id uuid.UUID) (*model.ShiftReport, error)
	// UpdateReportApprovalTx writes only the approval-mutable columns; the
	// snapshot columns stay frozen.
	UpdateReportApprovalTx(tx *gorm.DB, r *model.ShiftReport) error

	DB() *gorm.DB // exposes the DB for transaction creation in the service layer
}

type shiftRepo struct{ db *gorm.DB }

func NewShiftRepository(db *gorm.DB) ShiftRepository { return &shiftRepo{db: db} }

func (r *shiftRepo) DB() *gorm.DB { return r.db }

func (r *shiftRepo) CreateSession(ctx context.Context, s *model.ShiftSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *shiftRepo) FindOpenByOperator(ctx context.Context, scope model.TenantScope, operatorID uuid.UUID) (*model.ShiftSession, error) {
	var s model.ShiftSession
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND agency_id = ? AND operator_id = ?", scope.CompanyID, scope.AgencyID, operatorID).
		Where("status IN ?", []model.ShiftStatus{model.ShiftPending, model.ShiftActive, model.ShiftPaused}).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *shiftRepo) FindSessionByID(ctx context.Context, scope model.TenantScope, id uuid.UUID) (*model.ShiftSession, error) {
	var s model.ShiftSession
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND agency_id = ?", scope.CompanyID, scope.AgencyID).
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *shiftRepo) FindSessionForUpdate(tx *gorm.DB, scope model.TenantScope, id uuid.UUID) (*model.ShiftSession, error) {
	var s model.ShiftSession
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND agency_id = ?", scope.CompanyID, scope.AgencyID).
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *shiftRepo) CASSessionStatus(ctx context.Context, scope model.TenantScope, id uuid.UUID, from, to model.ShiftStatus, startAt *time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if startAt != nil {
		// Only the first activation stamps start_at.
		updates["start_at"] = gorm.Expr("COALESCE(start_at, ?)", *startAt)
	}
	res := r.db.WithContext(ctx).Model(&model.ShiftSession{}).
		Where("id = ? AND company_id = ? AND agency_id = ? AND status = ?", id, scope.CompanyID, scope.AgencyID, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *shiftRepo) CloseSessionTx(tx *gorm.DB, s *model.ShiftSession) error {
	return tx.Model(&model.ShiftSession{}).
		Where("id = ?", s.ID).
		Updates(map[string]interface{}{
			"status":       s.Status,
			"end_at":       s.EndAt,
			"ticket_count": s.TicketCount,
			"amount_total": s.AmountTotal,
			"updated_at":   time.Now(),
		}).Error
}

func (r *shiftRepo) ValidateSessionTx(tx *gorm.DB, sessionID uuid.UUID) (bool, error) {
	res := tx.Model(&model.ShiftSession{}).
		Where("id = ? AND status = ?", sessionID, model.ShiftClosed).
		Updates(map[string]interface{}{
			"status":     model.ShiftValidated,
			"updated_at": time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *shiftRepo) ListClosedSessions(ctx context.Context, scope model.TenantScope, page, limit int) ([]model.ShiftSession, int64, error) {
	var sessions []model.ShiftSession
	var total int64
	q := r.db.WithContext(ctx).Model(&model.ShiftSession{}).
		Where("company_id = ? AND agency_id = ?", scope.CompanyID, scope.AgencyID).
		Where("status IN ?", []model.ShiftStatus{model.ShiftClosed, model.ShiftValidated})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("end_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sessions).Error
	return sessions, total, err
}

func (r *shiftRepo) CreateReportTx(tx *gorm.DB, rep *model.ShiftReport) error {
	return tx.Create(rep).Error
}

func (r *shiftRepo) FindReportByID(ctx context.Context, scope model.TenantScope, id uuid.UUID) (*model.ShiftReport, error) {
	var rep model.ShiftReport
	err := r.db.WithContext(ctx).
		Preload("Routes", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("company_id = ? AND agency_id = ?", scope.CompanyID, scope.AgencyID).
		First(&rep, "id = ?", id).Error
	return &rep, err
}

func (r *shiftRepo) FindReportForUpdate(tx *gorm.DB, scope model.TenantScope, id uuid.UUID) (*model.ShiftReport, error) {
	// No Preload here: only the report row itself is locked and mutated.
	var rep model.ShiftReport
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND agency_id = ?", scope.CompanyID, scope.AgencyID).
		First(&rep, "id = ?", id).Error
	return &rep, err
}

func (r *shiftRepo) UpdateReportApprovalTx(tx *gorm.DB, rep *model.ShiftReport) error {
	return tx.Model(&model.ShiftReport{}).
		Where("id = ?", rep.ID).
		Updates(map[string]interface{}{
			"status":              rep.Status,
			"accountant_approved": rep.Accountant.Approved,
			"accountant_at":       rep.Accountant.At,
			"accountant_by_id":    rep.Accountant.ByID,
			"manager_approved":    rep.Manager.Approved,
			"manager_at":          rep.Manager.At,
			"manager_by_id":       rep.Manager.ByID,
			"validated_at":        rep.ValidatedAt,
			"updated_at":          time.Now(),
		}).Error
}
