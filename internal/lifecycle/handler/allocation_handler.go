package handler

import (
	"github.com/bitfantasy/recytrack/internal/lifecycle/service"
	"github.com/gin-gonic/gin"
)

type AllocationHandler struct {
	svc    *service.AllocationService
	export *service.ExportService
}

func NewAllocationHandler(svc *service.AllocationService, export *service.ExportService) *AllocationHandler {
	return &AllocationHandler{svc: svc, export: export}
}

// Allocate POST /allocations
// The weight is a json.Number, so "12.5" and 12.5 are both accepted.
func (h *AllocationHandler) Allocate(c *gin.Context) {
	var req service.AllocateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	res, err := h.svc.Allocate(c.Request.Context(), CurrentActor(c), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, res)
}

// Ledger GET /allocations?output_material_id=
func (h *AllocationHandler) Ledger(c *gin.Context) {
	items, err := h.svc.Ledger(c.Request.Context(), c.Query("output_material_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// Export GET /allocations/export
func (h *AllocationHandler) Export(c *gin.Context) {
	f, filename, err := h.export.AllocationLedger(c.Request.Context(), c.Query("output_material_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	writeWorkbook(c, f, filename)
}
