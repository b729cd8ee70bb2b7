package service

import (
	"context"
	"errors"
	"time"

	"transitdesk/internal/audit"
	"transitdesk/internal/dto"
	"transitdesk/internal/model"
	"transitdesk/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShiftService drives the counter-session state machine:
//
//	NONE → PENDING → ACTIVE ⇄ PAUSED → CLOSED → VALIDATED
//
// Every operation takes the tenant scope explicitly and performs exactly one
// atomic step; retry on transient conflict is the caller's responsibility.
type ShiftService interface {
	Start(ctx context.Context, scope model.TenantScope, actor model.Actor) (*dto.ShiftSessionResponse, error)
	Activate(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID, actor model.Actor) (*dto.ShiftSessionResponse, error)
	Pause(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID, actor model.Actor) (*dto.ShiftSessionResponse, error)
	Resume(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID, actor model.Actor) (*dto.ShiftSessionResponse, error)
	Close(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID, actor model.Actor) (*dto.ShiftReportResponse, error)

	GetSession(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID) (*dto.ShiftSessionResponse, error)
	GetActive(ctx context.Context, scope model.TenantScope, operatorID uuid.UUID) (*dto.ShiftSessionResponse, error)
	History(ctx context.Context, scope model.TenantScope, page, limit int) ([]dto.ShiftSessionResponse, int64, error)
	ListSessionSales(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID) ([]dto.SaleRecordResponse, error)
}

type shiftService struct {
	repo   repository.ShiftRepository
	ledger repository.SalesLedger
	events audit.Publisher
}

func NewShiftService(repo repository.ShiftRepository, ledger repository.SalesLedger, events audit.Publisher) ShiftService {
	return &shiftService{repo: repo, ledger: ledger, events: events}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Start ─────────────────────────────────────────────────────────────────────

// Start opens a new PENDING session for the operator. When the operator
// already has an open session the call is an idempotent no-op returning that
// session unchanged: the insert bounces off the partial unique index, so two
// devices racing on start() can never both create a row.
func (s *shiftService) Start(ctx context.Context, scope model.TenantScope, actor model.Actor) (*dto.ShiftSessionResponse, error) {
	sess := &model.ShiftSession{
		CompanyID:           scope.CompanyID,
		AgencyID:            scope.AgencyID,
		OperatorID:          actor.ID,
		OperatorDisplayName: actor.DisplayName,
		Status:              model.ShiftPending,
	}
	err := s.repo.CreateSession(ctx, sess)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, ferr := s.repo.FindOpenByOperator(ctx, scope, actor.ID)
		if ferr != nil {
			return nil, ferr
		}
		if existing == nil {
			// The open session was closed between insert and re-read;
			// the caller retries with the same call.
			return nil, ErrSessionConflict
		}
		return sessionToResponse(existing), nil
	}
	if err != nil {
		return nil, err
	}

	s.events.PublishTransition(ctx, audit.TransitionEvent{
		SessionID:  sess.ID,
		FromStatus: "NONE",
		ToStatus:   string(model.ShiftPending),
		ActorID:    actor.ID,
		Scope:      scope,
		At:         time.Now(),
	})
	return sessionToResponse(sess), nil
}

// ── Activate / Pause / Resume ────────────────────────────────────────────────

func (s *shiftService) Activate(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID, actor model.Actor) (*dto.ShiftSessionResponse, error) {
	return s.transition(ctx, scope, sessionID, actor, "activate", model.ShiftPending, model.ShiftActive, true)
}

func (s *shiftService) Pause(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID, actor model.Actor) (*dto.ShiftSessionResponse, error) {
	return s.transition(ctx, scope, sessionID, actor, "pause", model.ShiftActive, model.ShiftPaused, false)
}

func (s *shiftService) Resume(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID, actor model.Actor) (*dto.ShiftSessionResponse, error) {
	return s.transition(ctx, scope, sessionID, actor, "resume", model.ShiftPaused, model.ShiftActive, false)
}

// transition performs a single guarded status flip. The UPDATE carries the
// expected from-status in its WHERE clause, so a concurrent transition makes
// the guard miss and the operation fails instead of double-applying.
func (s *shiftService) transition(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID, actor model.Actor, op string, from, to model.ShiftStatus, stampStart bool) (*dto.ShiftSessionResponse, error) {
	sess, err := s.repo.FindSessionByID(ctx, scope, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if sess.Status != from {
		return nil, &InvalidTransitionError{Op: op, From: sess.Status}
	}

	var startAt *time.Time
	if stampStart {
		now := time.Now()
		startAt = &now
	}
	ok, err := s.repo.CASSessionStatus(ctx, scope, sessionID, from, to, startAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another device; report the status it moved to.
		if sess, err = s.repo.FindSessionByID(ctx, scope, sessionID); err != nil {
			return nil, ErrSessionNotFound
		}
		return nil, &InvalidTransitionError{Op: op, From: sess.Status}
	}

	s.events.PublishTransition(ctx, audit.TransitionEvent{
		SessionID:  sessionID,
		FromStatus: string(from),
		ToStatus:   string(to),
		ActorID:    actor.ID,
		Scope:      scope,
		At:         time.Now(),
	})

	sess, err = s.repo.FindSessionByID(ctx, scope, sessionID)
	if err != nil {
		return nil, err
	}
	return sessionToResponse(sess), nil
}

// ── Close ─────────────────────────────────────────────────────────────────────

// Close freezes the session: inside one transaction it re-reads the session
// under a row lock, verifies it is still closable, aggregates the counter
// sales of the session, writes the ShiftReport (AWAITING_ACCOUNTANT) and
// stamps the session CLOSED with the aggregate totals. A failure at any step
// rolls the whole transaction back — neither report nor status change
// survives partially.
func (s *shiftService) Close(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID, actor model.Actor) (*dto.ShiftReportResponse, error) {
	var report *model.ShiftReport
	var fromStatus model.ShiftStatus

	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		sess, err := s.repo.FindSessionForUpdate(tx, scope, sessionID)
		if err != nil {
			return ErrSessionNotFound
		}
		switch sess.Status {
		case model.ShiftClosed:
			return ErrAlreadyClosed
		case model.ShiftValidated:
			return ErrAlreadyValidated
		}
		if !sess.Status.IsClosable() {
			return &InvalidTransitionError{Op: "close", From: sess.Status}
		}
		fromStatus = sess.Status

		sales, err := s.ledger.ListSessionSalesTx(tx, scope, sessionID, model.ChannelCounter)
		if err != nil {
			return &AggregationError{Err: err}
		}
		summary := AggregateSales(sales)

		now := time.Now()
		report = &model.ShiftReport{
			ShiftSessionID: sess.ID,
			CompanyID:      scope.CompanyID,
			AgencyID:       scope.AgencyID,
			OperatorID:     sess.OperatorID,
			PeriodStart:    sess.StartAt,
			PeriodEnd:      now,
			TicketCount:    summary.TicketCount,
			AmountTotal:    summary.AmountTotal,
			Status:         model.ReportAwaitingAccountant,
		}
		for i, rt := range summary.Routes {
			report.Routes = append(report.Routes, model.ShiftReportRoute{
				Position:       i,
				Departure:      rt.Departure,
				Arrival:        rt.Arrival,
				Tickets:        rt.Tickets,
				Amount:         rt.Amount,
				DepartureTimes: rt.DepartureTimes,
			})
		}
		if err := s.repo.CreateReportTx(tx, report); err != nil {
			return &AggregationError{Err: err}
		}

		sess.Status = model.ShiftClosed
		sess.EndAt = &now
		sess.TicketCount = summary.TicketCount
		sess.AmountTotal = summary.AmountTotal
		return s.repo.CloseSessionTx(tx, sess)
	})
	if err != nil {
		return nil, err
	}

	s.events.PublishTransition(ctx, audit.TransitionEvent{
		SessionID:  sessionID,
		ReportID:   &report.ID,
		FromStatus: string(fromStatus),
		ToStatus:   string(model.ShiftClosed),
		ActorID:    actor.ID,
		Scope:      scope,
		At:         time.Now(),
	})
	return reportToResponse(report), nil
}

// ── Read models ──────────────────────────────────────────────────────────────

func (s *shiftService) GetSession(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID) (*dto.ShiftSessionResponse, error) {
	sess, err := s.repo.FindSessionByID(ctx, scope, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return sessionToResponse(sess), nil
}

func (s *shiftService) GetActive(ctx context.Context, scope model.TenantScope, operatorID uuid.UUID) (*dto.ShiftSessionResponse, error) {
	sess, err := s.repo.FindOpenByOperator(ctx, scope, operatorID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sessionToResponse(sess), nil
}

func (s *shiftService) History(ctx context.Context, scope model.TenantScope, page, limit int) ([]dto.ShiftSessionResponse, int64, error) {
	sessions, total, err := s.repo.ListClosedSessions(ctx, scope, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.ShiftSessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, *sessionToResponse(&sessions[i]))
	}
	return out, total, nil
}

func (s *shiftService) ListSessionSales(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID) ([]dto.SaleRecordResponse, error) {
	if _, err := s.repo.FindSessionByID(ctx, scope, sessionID); err != nil {
		return nil, ErrSessionNotFound
	}
	sales, err := s.ledger.ListSessionSales(ctx, scope, sessionID, model.ChannelCounter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SaleRecordResponse, 0, len(sales))
	for _, rec := range sales {
		out = append(out, dto.SaleRecordResponse{
			ID:            rec.ID.String(),
			Channel:       rec.Channel,
			Departure:     rec.Departure,
			Arrival:       rec.Arrival,
			DepartureTime: rec.DepartureTime,
			SeatCount:     rec.SeatCount,
			Amount:        rec.Amount,
			CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}
