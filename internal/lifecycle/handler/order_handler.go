package handler

import (
	"github.com/bitfantasy/recytrack/internal/lifecycle/service"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Create POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	order, err := h.svc.Create(c.Request.Context(), CurrentActor(c), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, order)
}

// List GET /orders?status=&page=&page_size=
func (h *OrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), c.Query("status"), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	listResponse(c, items, total, page, pageSize)
}

// Get GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, order)
}
