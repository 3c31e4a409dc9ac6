package handler

import (
	"github.com/bitfantasy/recytrack/internal/lifecycle/service"
	"github.com/gin-gonic/gin"
)

type ContainerHandler struct {
	svc *service.ContainerService
}

func NewContainerHandler(svc *service.ContainerService) *ContainerHandler {
	return &ContainerHandler{svc: svc}
}

// Create POST /containers
func (h *ContainerHandler) Create(c *gin.Context) {
	var req service.CreateContainerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	container, err := h.svc.Create(c.Request.Context(), CurrentActor(c), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, container)
}

// List GET /containers?status=
func (h *ContainerHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// Get GET /containers/:id
func (h *ContainerHandler) Get(c *gin.Context) {
	container, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, container)
}

type updateContainerStatusReq struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus PUT /containers/:id/status
func (h *ContainerHandler) UpdateStatus(c *gin.Context) {
	var req updateContainerStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	res, err := h.svc.UpdateStatus(c.Request.Context(), CurrentActor(c), c.Param("id"), req.Status)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, res)
}
