package handlers

import (
	"errors"
	"net/http"

	"dms-object-service/internal/adapters/primary/http/middleware"
	"dms-object-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrObjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Authorization errors
	case errors.Is(err, domain.ErrUnauthorizedAccess):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrFrozen),
		errors.Is(err, domain.ErrEntityCodeConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrMissingUserID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrArchiveDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		middleware.LogEntry(c).WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
