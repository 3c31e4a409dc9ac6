package handler

import (
	"github.com/bitfantasy/recytrack/internal/lifecycle/repository"
	"github.com/bitfantasy/recytrack/internal/lifecycle/service"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

type OutputHandler struct {
	svc        *service.OutputService
	allocation *service.AllocationService
	export     *service.ExportService
}

func NewOutputHandler(svc *service.OutputService, allocation *service.AllocationService, export *service.ExportService) *OutputHandler {
	return &OutputHandler{svc: svc, allocation: allocation, export: export}
}

// Create POST /outputs
func (h *OutputHandler) Create(c *gin.Context) {
	var req service.CreateOutputReq
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

// List GET /outputs?status=&batch_id=&page=&page_size=
func (h *OutputHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), repository.OutputListParams{
		Status:   c.Query("status"),
		BatchID:  c.Query("batch_id"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	listResponse(c, items, total, page, pageSize)
}

// Get GET /outputs/:id
func (h *OutputHandler) Get(c *gin.Context) {
	output, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, output)
}

// Remaining GET /outputs/:id/remaining
func (h *OutputHandler) Remaining(c *gin.Context) {
	remaining, err := h.allocation.Remaining(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"remaining_kg": remaining})
}

// History GET /outputs/:id/history
func (h *OutputHandler) History(c *gin.Context) {
	events, err := h.svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, events)
}

// Allocations GET /outputs/:id/allocations
func (h *OutputHandler) Allocations(c *gin.Context) {
	items, err := h.svc.Allocations(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// ExportAllocations GET /outputs/:id/allocations/export
func (h *OutputHandler) ExportAllocations(c *gin.Context) {
	f, filename, err := h.export.AllocationLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	writeWorkbook(c, f, filename)
}

func writeWorkbook(c *gin.Context, f *excelize.File, filename string) {
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
