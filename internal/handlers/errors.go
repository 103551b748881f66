package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"products-dashboard/internal/middleware"
	"products-dashboard/internal/models"
	"products-dashboard/internal/services"
	"products-dashboard/internal/viewstate"
)

// statusFor maps a service error to an HTTP status and error code
func statusFor(err error) (int, string, string) {
	var loadErr *models.DataLoadError
	var mutErr *models.MutationError

	switch {
	case errors.Is(err, models.ErrReconcileFailed):
		return http.StatusConflict, "RECONCILE_FAILED", ""
	case errors.As(err, &loadErr):
		return http.StatusBadGateway, "DATA_LOAD_FAILED", ""
	case errors.As(err, &mutErr):
		return http.StatusBadGateway, "MUTATION_FAILED", ""
	case errors.Is(err, models.ErrProductNotFound):
		return http.StatusNotFound, "NOT_FOUND", "id"
	case errors.Is(err, viewstate.ErrUnknownSortColumn):
		return http.StatusBadRequest, "VALIDATION_ERROR", "column"
	case errors.Is(err, viewstate.ErrInvalidPageSize), errors.Is(err, services.ErrPageSizeTooLarge):
		return http.StatusBadRequest, "VALIDATION_ERROR", "itemsPerPage"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", ""
	}
}

func respondError(c *gin.Context, err error) {
	status, code, field := statusFor(err)
	_ = c.Error(err)
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: err.Error(),
			Field:   field,
		},
		RequestID: middleware.GetRequestID(c),
	})
}

func respondValidationError(c *gin.Context, message, field string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "VALIDATION_ERROR",
			Message: message,
			Field:   field,
		},
		RequestID: middleware.GetRequestID(c),
	})
}
