package service

import (
	"context"
	"time"

	"transitdesk/internal/audit"
	"transitdesk/internal/dto"
	"transitdesk/internal/model"
	"transitdesk/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalService runs the two-party sign-off on a ShiftReport. Accountant
// and manager approve independently, in any order; once both have signed the
// report converges to VALIDATED and the owning session is archived, exactly
// once each regardless of concurrency.
type ApprovalService interface {
	ApproveAccountant(ctx context.Context, scope model.TenantScope, reportID uuid.UUID, approver model.Actor) (*dto.ShiftReportResponse, error)
	ApproveManager(ctx context.Context, scope model.TenantScope, reportID uuid.UUID, approver model.Actor) (*dto.ShiftReportResponse, error)
	GetReport(ctx context.Context, scope model.TenantScope, reportID uuid.UUID) (*dto.ShiftReportResponse, error)
}

type approvalService struct {
	repo   repository.ShiftRepository
	events audit.Publisher
}

func NewApprovalService(repo repository.ShiftRepository, events audit.Publisher) ApprovalService {
	return &approvalService{repo: repo, events: events}
}

func (s *approvalService) ApproveAccountant(ctx context.Context, scope model.TenantScope, reportID uuid.UUID, approver model.Actor) (*dto.ShiftReportResponse, error) {
	return s.approve(ctx, scope, reportID, approver,
		func(r *model.ShiftReport) (*model.Approval, *model.Approval) { return &r.Accountant, &r.Manager },
		model.ReportAwaitingManager)
}

func (s *approvalService) ApproveManager(ctx context.Context, scope model.TenantScope, reportID uuid.UUID, approver model.Actor) (*dto.ShiftReportResponse, error) {
	return s.approve(ctx, scope, reportID, approver,
		func(r *model.ShiftReport) (*model.Approval, *model.Approval) { return &r.Manager, &r.Accountant },
		model.ReportAwaitingAccountant)
}

// approve applies one party's sign-off. The report row is locked FOR UPDATE
// for the whole transaction, which serializes concurrent approvals on the
// same report; the session CLOSED→VALIDATED compare-and-set runs inside the
// same transaction as the approval write, so when both approvals land
// concurrently exactly one of them observes both flags and archives.
//
// Idempotent: once a party has approved, further approvals by that party
// (same or different approver) leave the stored approval untouched — first
// approval wins.
func (s *approvalService) approve(
	ctx context.Context,
	scope model.TenantScope,
	reportID uuid.UUID,
	approver model.Actor,
	pick func(*model.ShiftReport) (mine, other *model.Approval),
	waitingStatus model.ReportStatus,
) (*dto.ShiftReportResponse, error) {
	var (
		report     *model.ShiftReport
		fromStatus model.ReportStatus
		validated  bool
		noop       bool
	)

	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		rep, err := s.repo.FindReportForUpdate(tx, scope, reportID)
		if err != nil {
			return ErrReportNotFound
		}
		report = rep
		fromStatus = rep.Status

		mine, other := pick(rep)
		if mine.Approved {
			noop = true
			return nil
		}

		now := time.Now()
		mine.Approved = true
		mine.At = &now
		approverID := approver.ID
		mine.ByID = &approverID

		if other.Approved {
			rep.Status = model.ReportValidated
			rep.ValidatedAt = &now
			ok, err := s.repo.ValidateSessionTx(tx, rep.ShiftSessionID)
			if err != nil {
				return err
			}
			if !ok {
				// The session left CLOSED without this report reaching
				// VALIDATED first: a concurrent writer got there.
				return ErrApprovalConflict
			}
			validated = true
		} else {
			rep.Status = waitingStatus
		}

		return s.repo.UpdateReportApprovalTx(tx, rep)
	})
	if err != nil {
		return nil, err
	}

	if !noop && report.Status != fromStatus {
		s.events.PublishTransition(ctx, audit.TransitionEvent{
			SessionID:  report.ShiftSessionID,
			ReportID:   &report.ID,
			FromStatus: string(fromStatus),
			ToStatus:   string(report.Status),
			ActorID:    approver.ID,
			Scope:      scope,
			At:         time.Now(),
		})
		if validated {
			s.events.PublishTransition(ctx, audit.TransitionEvent{
				SessionID:  report.ShiftSessionID,
				ReportID:   &report.ID,
				FromStatus: string(model.ShiftClosed),
				ToStatus:   string(model.ShiftValidated),
				ActorID:    approver.ID,
				Scope:      scope,
				At:         time.Now(),
			})
		}
	}

	return s.GetReport(ctx, scope, reportID)
}

func (s *approvalService) GetReport(ctx context.Context, scope model.TenantScope, reportID uuid.UUID) (*dto.ShiftReportResponse, error) {
	rep, err := s.repo.FindReportByID(ctx, scope, reportID)
	if err != nil {
		return nil, ErrReportNotFound
	}
	return reportToResponse(rep), nil
}
