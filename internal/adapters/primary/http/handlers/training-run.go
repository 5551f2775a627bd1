package handlers

import (
	"net/http"
	"strconv"

	"nlu-service/internal/adapters/primary/http/dto"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListTrainingRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.historySvc.List(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		log.WithError(err).Error("list training runs failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.TrainingRunResponse, 0, len(runs))
	for _, r := range runs {
		items = append(items, dto.ToTrainingRunResponse(r))
	}

	c.JSON(http.StatusOK, dto.ListTrainingRunsResponse{
		Items:    items,
		PageSize: len(items),
	})
}
