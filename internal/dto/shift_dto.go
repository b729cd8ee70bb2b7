package dto

import "github.com/shopspring/decimal"

// ─── Response DTOs ───────────────────────────────────────────────────────────
// Timestamps are RFC 3339 strings; nil means the underlying field is unset
// (e.g. start_at on a never-activated session).

type ShiftSessionResponse struct {
	ID                  string          `json:"id"`
	OperatorID          string          `json:"operator_id"`
	OperatorDisplayName string          `json:"operator_display_name"`
	Status              string          `json:"status"`
	StartAt             *string         `json:"start_at"`
	EndAt               *string         `json:"end_at"`
	TicketCount         int             `json:"ticket_count"`
	AmountTotal         decimal.Decimal `json:"amount_total"`
	CreatedAt           string          `json:"created_at"`
	UpdatedAt           string          `json:"updated_at"`
}

type RouteBreakdownLine struct {
	Departure      string          `json:"departure"`
	Arrival        string          `json:"arrival"`
	Tickets        int             `json:"tickets"`
	Amount         decimal.Decimal `json:"amount"`
	DepartureTimes []string        `json:"departure_times"`
}

type ApprovalResponse struct {
	Approved bool    `json:"approved"`
	At       *string `json:"at"`
	ByID     *string `json:"by_id"`
}

type ShiftReportResponse struct {
	ID             string               `json:"id"`
	ShiftSessionID string               `json:"shift_session_id"`
	OperatorID     string               `json:"operator_id"`
	PeriodStart    *string              `json:"period_start"`
	PeriodEnd      string               `json:"period_end"`
	TicketCount    int                  `json:"ticket_count"`
	AmountTotal    decimal.Decimal      `json:"amount_total"`
	RouteBreakdown []RouteBreakdownLine `json:"route_breakdown"`
	Accountant     ApprovalResponse     `json:"accountant_approval"`
	Manager        ApprovalResponse     `json:"manager_approval"`
	Status         string               `json:"status"`
	ValidatedAt    *string              `json:"validated_at"`
}

type SaleRecordResponse struct {
	ID            string          `json:"id"`
	Channel       string          `json:"channel"`
	Departure     string          `json:"departure"`
	Arrival       string          `json:"arrival"`
	DepartureTime string          `json:"departure_time"`
	SeatCount     int             `json:"seat_count"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     string          `json:"created_at"`
}
