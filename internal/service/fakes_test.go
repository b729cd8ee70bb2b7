package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"transitdesk/internal/audit"
	"transitdesk/internal/model"
	"transitdesk/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── In-memory ShiftRepository ────────────────────────────────────────────────
// Mirrors the store's atomicity guarantees: every method is one critical
// section, and CreateSession enforces the partial-unique-index semantics by
// returning gorm.ErrDuplicatedKey when an open session already exists.

type memShiftRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.ShiftSession
	reports  map[uuid.UUID]*model.ShiftReport
	// createErr, when set, is returned by CreateSession instead of inserting.
	createErr error
}

func newMemShiftRepo() *memShiftRepo {
	return &memShiftRepo{
		sessions: make(map[uuid.UUID]*model.ShiftSession),
		reports:  make(map[uuid.UUID]*model.ShiftReport),
	}
}

var _ repository.ShiftRepository = (*memShiftRepo)(nil)

func (r *memShiftRepo) DB() *gorm.DB { return nil }

func (r *memShiftRepo) CreateSession(_ context.Context, s *model.ShiftSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.sessions {
		if existing.CompanyID == s.CompanyID && existing.AgencyID == s.AgencyID &&
			existing.OperatorID == s.OperatorID && existing.Status.IsOpen() {
			return gorm.ErrDuplicatedKey
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memShiftRepo) FindOpenByOperator(_ context.Context, scope model.TenantScope, operatorID uuid.UUID) (*model.ShiftSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.CompanyID == scope.CompanyID && s.AgencyID == scope.AgencyID &&
			s.OperatorID == operatorID && s.Status.IsOpen() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memShiftRepo) FindSessionByID(_ context.Context, scope model.TenantScope, id uuid.UUID) (*model.ShiftSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findSessionLocked(scope, id)
}

func (r *memShiftRepo) FindSessionForUpdate(_ *gorm.DB, scope model.TenantScope, id uuid.UUID) (*model.ShiftSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findSessionLocked(scope, id)
}

func (r *memShiftRepo) findSessionLocked(scope model.TenantScope, id uuid.UUID) (*model.ShiftSession, error) {
	s, ok := r.sessions[id]
	if !ok || s.CompanyID != scope.CompanyID || s.AgencyID != scope.AgencyID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memShiftRepo) CASSessionStatus(_ context.Context, scope model.TenantScope, id uuid.UUID, from, to model.ShiftStatus, startAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.CompanyID != scope.CompanyID || s.AgencyID != scope.AgencyID || s.Status != from {
		return false, nil
	}
	s.Status = to
	if startAt != nil && s.StartAt == nil {
		t := *startAt
		s.StartAt = &t
	}
	s.UpdatedAt = time.Now()
	return true, nil
}

func (r *memShiftRepo) CloseSessionTx(_ *gorm.DB, s *model.ShiftSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[s.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Status = s.Status
	stored.EndAt = s.EndAt
	stored.TicketCount = s.TicketCount
	stored.AmountTotal = s.AmountTotal
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *memShiftRepo) ValidateSessionTx(_ *gorm.DB, sessionID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.Status != model.ShiftClosed {
		return false, nil
	}
	s.Status = model.ShiftValidated
	s.UpdatedAt = time.Now()
	return true, nil
}

func (r *memShiftRepo) ListClosedSessions(_ context.Context, scope model.TenantScope, page, limit int) ([]model.ShiftSession, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.ShiftSession
	for _, s := range r.sessions {
		if s.CompanyID == scope.CompanyID && s.AgencyID == scope.AgencyID && !s.Status.IsOpen() {
			all = append(all, *s)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		ti, tj := all[i].EndAt, all[j].EndAt
		if ti == nil || tj == nil {
			return tj == nil
		}
		return ti.After(*tj)
	})
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *memShiftRepo) CreateReportTx(_ *gorm.DB, rep *model.ShiftReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reports {
		if existing.ShiftSessionID == rep.ShiftSessionID {
			return gorm.ErrDuplicatedKey
		}
	}
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	for i := range rep.Routes {
		if rep.Routes[i].ID == uuid.Nil {
			rep.Routes[i].ID = uuid.New()
		}
		rep.Routes[i].ShiftReportID = rep.ID
	}
	now := time.Now()
	rep.CreatedAt = now
	rep.UpdatedAt = now
	cp := *rep
	cp.Routes = append([]model.ShiftReportRoute(nil), rep.Routes...)
	r.reports[rep.ID] = &cp
	return nil
}

func (r *memShiftRepo) FindReportByID(_ context.Context, scope model.TenantScope, id uuid.UUID) (*model.ShiftReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findReportLocked(scope, id)
}

func (r *memShiftRepo) FindReportForUpdate(_ *gorm.DB, scope model.TenantScope, id uuid.UUID) (*model.ShiftReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findReportLocked(scope, id)
}

func (r *memShiftRepo) findReportLocked(scope model.TenantScope, id uuid.UUID) (*model.ShiftReport, error) {
	rep, ok := r.reports[id]
	if !ok || rep.CompanyID != scope.CompanyID || rep.AgencyID != scope.AgencyID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rep
	cp.Routes = append([]model.ShiftReportRoute(nil), rep.Routes...)
	sort.Slice(cp.Routes, func(i, j int) bool { return cp.Routes[i].Position < cp.Routes[j].Position })
	return &cp, nil
}

func (r *memShiftRepo) UpdateReportApprovalTx(_ *gorm.DB, rep *model.ShiftReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.reports[rep.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Status = rep.Status
	stored.Accountant = rep.Accountant
	stored.Manager = rep.Manager
	stored.ValidatedAt = rep.ValidatedAt
	stored.UpdatedAt = time.Now()
	return nil
}

// ── In-memory SalesLedger ────────────────────────────────────────────────────

type memSalesLedger struct {
	mu      sync.Mutex
	records []model.SaleRecord
	failErr error // injected to simulate a ledger failure during close
}

var _ repository.SalesLedger = (*memSalesLedger)(nil)

func (l *memSalesLedger) add(rec model.SaleRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()
	l.records = append(l.records, rec)
}

func (l *memSalesLedger) ListSessionSales(_ context.Context, scope model.TenantScope, sessionID uuid.UUID, channel string) ([]model.SaleRecord, error) {
	return l.list(scope, sessionID, channel)
}

func (l *memSalesLedger) ListSessionSalesTx(_ *gorm.DB, scope model.TenantScope, sessionID uuid.UUID, channel string) ([]model.SaleRecord, error) {
	return l.list(scope, sessionID, channel)
}

func (l *memSalesLedger) list(scope model.TenantScope, sessionID uuid.UUID, channel string) ([]model.SaleRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failErr != nil {
		return nil, l.failErr
	}
	var out []model.SaleRecord
	for _, rec := range l.records {
		if rec.CompanyID == scope.CompanyID && rec.AgencyID == scope.AgencyID &&
			rec.ShiftSessionID != nil && *rec.ShiftSessionID == sessionID && rec.Channel == channel {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ── Recording audit publisher ────────────────────────────────────────────────

type recorderPublisher struct {
	mu     sync.Mutex
	events []audit.TransitionEvent
}

func (p *recorderPublisher) PublishTransition(_ context.Context, ev audit.TransitionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recorderPublisher) all() []audit.TransitionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]audit.TransitionEvent(nil), p.events...)
}
