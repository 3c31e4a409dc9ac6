package handler

import (
	"github.com/bitfantasy/recytrack/internal/lifecycle/service"
	"github.com/gin-gonic/gin"
)

type SampleHandler struct {
	svc *service.SampleService
}

func NewSampleHandler(svc *service.SampleService) *SampleHandler {
	return &SampleHandler{svc: svc}
}

// Create POST /samples
func (h *SampleHandler) Create(c *gin.Context) {
	var req service.CreateSampleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	res, err := h.svc.Create(c.Request.Context(), CurrentActor(c), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, res)
}

// Get GET /samples/:id
func (h *SampleHandler) Get(c *gin.Context) {
	sample, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, sample)
}

type recordResultsReq struct {
	Results []service.SampleResultInput `json:"results"`
}

// RecordResults POST /samples/:id/results
func (h *SampleHandler) RecordResults(c *gin.Context) {
	var req recordResultsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	res, err := h.svc.RecordResults(c.Request.Context(), CurrentActor(c), c.Param("id"), req.Results)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, res)
}

// Approve POST /samples/:id/approve
func (h *SampleHandler) Approve(c *gin.Context) {
	res, err := h.svc.Approve(c.Request.Context(), CurrentActor(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, res)
}

// Reject POST /samples/:id/reject
func (h *SampleHandler) Reject(c *gin.Context) {
	res, err := h.svc.Reject(c.Request.Context(), CurrentActor(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, res)
}
