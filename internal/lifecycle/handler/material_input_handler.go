package handler

import (
	"github.com/bitfantasy/recytrack/internal/lifecycle/service"
	"github.com/gin-gonic/gin"
)

type MaterialInputHandler struct {
	intake     *service.IntakeService
	processing *service.ProcessingService
	sample     *service.SampleService
}

func NewMaterialInputHandler(intake *service.IntakeService, processing *service.ProcessingService, sample *service.SampleService) *MaterialInputHandler {
	return &MaterialInputHandler{intake: intake, processing: processing, sample: sample}
}

// Create POST /material-inputs
func (h *MaterialInputHandler) Create(c *gin.Context) {
	var req service.CreateMaterialInputReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	res, err := h.intake.Create(c.Request.Context(), CurrentActor(c), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, res)
}

// List GET /material-inputs?status=&page=&page_size=
func (h *MaterialInputHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.intake.List(c.Request.Context(), c.Query("status"), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	listResponse(c, items, total, page, pageSize)
}

// Get GET /material-inputs/:id
func (h *MaterialInputHandler) Get(c *gin.Context) {
	input, err := h.intake.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, input)
}

// History GET /material-inputs/:id/history
func (h *MaterialInputHandler) History(c *gin.Context) {
	events, err := h.intake.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, events)
}

type startProcessingReq struct {
	Steps []string `json:"steps"`
}

// StartProcessing POST /material-inputs/:id/processing
func (h *MaterialInputHandler) StartProcessing(c *gin.Context) {
	var req startProcessingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	res, err := h.processing.Start(c.Request.Context(), CurrentActor(c), c.Param("id"), req.Steps)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, res)
}

// ListProcessing GET /material-inputs/:id/processing
func (h *MaterialInputHandler) ListProcessing(c *gin.Context) {
	steps, err := h.processing.ListByMaterialInput(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, steps)
}

// ListSamples GET /material-inputs/:id/samples
func (h *MaterialInputHandler) ListSamples(c *gin.Context) {
	samples, err := h.sample.ListByMaterialInput(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, samples)
}
