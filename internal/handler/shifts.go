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

type ShiftsHandler struct{ svc service.ShiftService }

func NewShiftsHandler(svc service.ShiftService) *ShiftsHandler { return &ShiftsHandler{svc: svc} }

// historyQuery carries the pagination parameters of the history listing.
type historyQuery struct {
	Page  int `form:"page,default=1"   validate:"min=1"`
	Limit int `form:"limit,default=20" validate:"min=1,max=100"`
}

// Start godoc
// @Summary Opens a counter session for the authenticated operator
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Success 201 {object} dto.ShiftSessionResponse
// @Failure 401 {object} apierror.APIError
// @Router /v1/shifts/start [post]
func (h *ShiftsHandler) Start(c *gin.Context) {
	scope, actor, ok := middleware.Scope(c)
	if !ok {
		return
	}
	resp, err := h.svc.Start(c.Request.Context(), scope, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Activate godoc
// @Summary Activates a pending session and stamps its start time
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.ShiftSessionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/shifts/{id}/activate [post]
func (h *ShiftsHandler) Activate(c *gin.Context) {
	h.mutate(c, h.svc.Activate)
}

// Pause godoc
// @Summary Pauses an active session
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.ShiftSessionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/shifts/{id}/pause [post]
func (h *ShiftsHandler) Pause(c *gin.Context) {
	h.mutate(c, h.svc.Pause)
}

// Resume godoc
// @Summary Resumes a paused session
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.ShiftSessionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/shifts/{id}/resume [post]
func (h *ShiftsHandler) Resume(c *gin.Context) {
	h.mutate(c, h.svc.Resume)
}

// Close godoc
// @Summary Closes a session, freezing its sales aggregate into a report
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 201 {object} dto.ShiftReportResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/shifts/{id}/close [post]
func (h *ShiftsHandler) Close(c *gin.Context) {
	scope, actor, ok := middleware.Scope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session id"))
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), scope, id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetActive returns the authenticated operator's currently open session.
func (h *ShiftsHandler) GetActive(c *gin.Context) {
	scope, actor, ok := middleware.Scope(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetActive(c.Request.Context(), scope, actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetByID returns one session read model.
func (h *ShiftsHandler) GetByID(c *gin.Context) {
	scope, _, ok := middleware.Scope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session id"))
		return
	}
	resp, err := h.svc.GetSession(c.Request.Context(), scope, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History returns a paginated list of closed and validated sessions.
func (h *ShiftsHandler) History(c *gin.Context) {
	scope, _, ok := middleware.Scope(c)
	if !ok {
		return
	}
	var q historyQuery
	if !bindQueryAndValidate(c, &q) {
		return
	}
	sessions, total, err := h.svc.History(c.Request.Context(), scope, q.Page, q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sessions, "total": total, "page": q.Page, "limit": q.Limit})
}

// ListSales returns the counter sales recorded against a session, straight
// from the sales ledger read model.
func (h *ShiftsHandler) ListSales(c *gin.Context) {
	scope, _, ok := middleware.Scope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session id"))
		return
	}
	sales, err := h.svc.ListSessionSales(c.Request.Context(), scope, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sales})
}

type mutateFn func(ctx context.Context, scope model.TenantScope, sessionID uuid.UUID, actor model.Actor) (*dto.ShiftSessionResponse, error)

func (h *ShiftsHandler) mutate(c *gin.Context, fn mutateFn) {
	scope, actor, ok := middleware.Scope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session id"))
		return
	}
	resp, err := fn(c.Request.Context(), scope, id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
