package handlers

import (
	"errors"
	"net/http"
	"strings"

	"nlu-service/internal/adapters/primary/http/dto"
	"nlu-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) QueryByPath(c *gin.Context) {
	utterance := strings.TrimPrefix(c.Param("utterance"), "/")
	h.query(c, c.Param("id"), utterance)
}

func (h *Handler) QueryByBody(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.query(c, c.Param("id"), req.Query)
}

func (h *Handler) query(c *gin.Context, tenantID, utterance string) {
	prediction, err := h.querySvc.Query(c.Request.Context(), tenantID, utterance)
	if err != nil {
		if !isClientError(err) {
			log.WithError(err).WithField("tenant_id", tenantID).Error("query application failed")
		}
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToPredictionResponse(prediction))
}

func isClientError(err error) bool {
	return errors.Is(err, domain.ErrTenantNotFound) ||
		errors.Is(err, domain.ErrModelNotTrained) ||
		errors.Is(err, domain.ErrInvalidTenantID) ||
		errors.Is(err, domain.ErrEmptyQuery)
}
