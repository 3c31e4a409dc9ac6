package handler

import (
	"context"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/bitfantasy/recytrack/internal/lifecycle/service"
	"github.com/gin-gonic/gin"
)

type ProcessingHandler struct {
	svc *service.ProcessingService
}

func NewProcessingHandler(svc *service.ProcessingService) *ProcessingHandler {
	return &ProcessingHandler{svc: svc}
}

type stepAction func(ctx context.Context, actor service.Actor, stepID string) (service.Result[*entity.ProcessingStep], error)

func (h *ProcessingHandler) run(c *gin.Context, action stepAction) {
	res, err := action(c.Request.Context(), CurrentActor(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, res)
}

// Complete POST /processing-steps/:id/complete
func (h *ProcessingHandler) Complete(c *gin.Context) { h.run(c, h.svc.Complete) }

// Pause POST /processing-steps/:id/pause
func (h *ProcessingHandler) Pause(c *gin.Context) { h.run(c, h.svc.Pause) }

// Resume POST /processing-steps/:id/resume
func (h *ProcessingHandler) Resume(c *gin.Context) { h.run(c, h.svc.Resume) }

// RequireSample POST /processing-steps/:id/require-sample
func (h *ProcessingHandler) RequireSample(c *gin.Context) { h.run(c, h.svc.RequireSample) }
