package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) Health(c *gin.Context) {
	status := gin.H{"storage": "ok"}
	healthy := true

	if err := h.store.Healthy(c.Request.Context()); err != nil {
		log.WithError(err).Warn("storage health check failed")
		status["storage"] = err.Error()
		healthy = false
	}
	if h.historySvc.Enabled() {
		status["database"] = "ok"
		if err := h.historySvc.Ping(c.Request.Context()); err != nil {
			log.WithError(err).Warn("database health check failed")
			status["database"] = err.Error()
			healthy = false
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}
