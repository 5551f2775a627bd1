package handlers

import (
	"nlu-service/internal/core/ports/output"
	"nlu-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	lifecycleSvc   *services.LifecycleService
	querySvc       *services.QueryService
	historySvc     *services.TrainingRunService
	store          ports.TenantStore
	uploadMaxBytes int64
}

func New(
	lifecycleSvc *services.LifecycleService,
	querySvc *services.QueryService,
	historySvc *services.TrainingRunService,
	store ports.TenantStore,
	uploadMaxBytes int64,
) *Handler {
	return &Handler{
		lifecycleSvc:   lifecycleSvc,
		querySvc:       querySvc,
		historySvc:     historySvc,
		store:          store,
		uploadMaxBytes: uploadMaxBytes,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	// Applications
	r.GET("/create_app", h.CreateApplication)
	r.POST("/update_app/:id", h.UpdateApplication)

	// Queries
	r.GET("/query_app/:id/*utterance", h.QueryByPath)
	r.POST("/query_app/:id", h.QueryByBody)

	// Training history
	r.GET("/training_runs/:id", h.ListTrainingRuns)

	r.GET("/healthz", h.Health)
}
