package handlers

import (
	"errors"
	"net/http"

	"github.com/dszwed/wp-blueprints/internal/logger"
	"github.com/dszwed/wp-blueprints/internal/models"
	"github.com/dszwed/wp-blueprints/internal/services"
	"github.com/dszwed/wp-blueprints/internal/validation"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error to its HTTP status and body
func respondError(c *gin.Context, err error) {
	var verrs *validation.Errors
	switch {
	case errors.As(err, &verrs):
		respondValidation(c, verrs)
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error:   "forbidden",
			Message: "You are not allowed to modify this blueprint.",
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Blueprint not found.",
		})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "conflict",
			Message: "The blueprint was modified concurrently, please retry.",
		})
	default:
		logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong.",
		})
	}
}

func respondValidation(c *gin.Context, verrs *validation.Errors) {
	c.JSON(http.StatusUnprocessableEntity, models.ValidationErrorResponse{
		Message: verrs.Error(),
		Errors:  verrs.Map(),
	})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}
