package handlers

import (
	"errors"
	"net/http"

	"nlu-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrModelNotTrained):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Loaded model failed while answering
	case errors.Is(err, domain.ErrInference):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

	// Persisted model could not be loaded
	case errors.Is(err, domain.ErrLoadFailed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrBadInput),
		errors.Is(err, domain.ErrInvalidTenantID),
		errors.Is(err, domain.ErrEmptyQuery),
		errors.Is(err, domain.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrTrainingInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrTrainingFailed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrHistoryNotAvailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
