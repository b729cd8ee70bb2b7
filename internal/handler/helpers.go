package handler

import (
	"errors"
	"net/http"

	"transitdesk/internal/apierror"
	"transitdesk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// bindQueryAndValidate binds query parameters and runs validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindQueryAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query parameters: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps typed service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var invalid *service.InvalidTransitionError
	var aggregation *service.AggregationError

	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrReportNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.As(err, &invalid),
		errors.Is(err, service.ErrAlreadyClosed),
		errors.Is(err, service.ErrAlreadyValidated),
		errors.Is(err, service.ErrApprovalConflict),
		errors.Is(err, service.ErrSessionConflict):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.As(err, &aggregation):
		c.JSON(http.StatusInternalServerError, apierror.New(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
	}
}
