package service

import (
	"time"

	"transitdesk/internal/dto"
	"transitdesk/internal/model"

	"github.com/google/uuid"
)

func rfc3339(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func sessionToResponse(s *model.ShiftSession) *dto.ShiftSessionResponse {
	return &dto.ShiftSessionResponse{
		ID:                  s.ID.String(),
		OperatorID:          s.OperatorID.String(),
		OperatorDisplayName: s.OperatorDisplayName,
		Status:              string(s.Status),
		StartAt:             rfc3339(s.StartAt),
		EndAt:               rfc3339(s.EndAt),
		TicketCount:         s.TicketCount,
		AmountTotal:         s.AmountTotal,
		CreatedAt:           s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           s.UpdatedAt.Format(time.RFC3339),
	}
}

func approvalToResponse(a model.Approval) dto.ApprovalResponse {
	return dto.ApprovalResponse{
		Approved: a.Approved,
		At:       rfc3339(a.At),
		ByID:     uuidString(a.ByID),
	}
}

func reportToResponse(r *model.ShiftReport) *dto.ShiftReportResponse {
	resp := &dto.ShiftReportResponse{
		ID:             r.ID.String(),
		ShiftSessionID: r.ShiftSessionID.String(),
		OperatorID:     r.OperatorID.String(),
		PeriodStart:    rfc3339(r.PeriodStart),
		PeriodEnd:      r.PeriodEnd.Format(time.RFC3339),
		TicketCount:    r.TicketCount,
		AmountTotal:    r.AmountTotal,
		Accountant:     approvalToResponse(r.Accountant),
		Manager:        approvalToResponse(r.Manager),
		Status:         string(r.Status),
		ValidatedAt:    rfc3339(r.ValidatedAt),
	}
	resp.RouteBreakdown = make([]dto.RouteBreakdownLine, 0, len(r.Routes))
	for _, rt := range r.Routes {
		resp.RouteBreakdown = append(resp.RouteBreakdown, dto.RouteBreakdownLine{
			Departure:      rt.Departure,
			Arrival:        rt.Arrival,
			Tickets:        rt.Tickets,
			Amount:         rt.Amount,
			DepartureTimes: rt.DepartureTimes,
		})
	}
	return resp
}
