package handler

import (
	"context"
	"net/http"

	"transitdesk/internal/apierror"
	"transitdesk/internal/dto"
	"transitdesk/internal/middleware"
	"transitdesk/internal/model"
	"transitdesk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReportsHandler struct{ svc service.ApprovalService }

func NewReportsHandler(svc service.ApprovalService) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

// Get godoc
// @Summary Returns a shift report with its route breakdown and approval flags
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} dto.ShiftReportResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/reports/{id} [get]
func (h *ReportsHandler) Get(c *gin.Context) {
	scope, _, ok := middleware.Scope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid report id"))
		return
	}
	resp, err := h.svc.GetReport(c.Request.Context(), scope, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ApproveAccountant godoc
// @Summary Records the accountant's sign-off on a shift report
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} dto.ShiftReportResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/reports/{id}/approve-accountant [post]
func (h *ReportsHandler) ApproveAccountant(c *gin.Context) {
	h.approve(c, h.svc.ApproveAccountant)
}

// ApproveManager godoc
// @Summary Records the manager's sign-off on a shift report
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} dto.ShiftReportResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/reports/{id}/approve-manager [post]
func (h *ReportsHandler) ApproveManager(c *gin.Context) {
	h.approve(c, h.svc.ApproveManager)
}

type approveFn func(ctx context.Context, scope model.TenantScope, reportID uuid.UUID, approver model.Actor) (*dto.ShiftReportResponse, error)

func (h *ReportsHandler) approve(c *gin.Context, fn approveFn) {
	scope, actor, ok := middleware.Scope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid report id"))
		return
	}
	resp, err := fn(c.Request.Context(), scope, id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
