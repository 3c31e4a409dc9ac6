package handler

import (
	"github.com/bitfantasy/recytrack/internal/lifecycle/service"
	"github.com/gin-gonic/gin"
)

type PermissionHandler struct {
	resolver service.PermissionResolver
}

func NewPermissionHandler(resolver service.PermissionResolver) *PermissionHandler {
	if resolver == nil {
		resolver = service.StaticPermissions{}
	}
	return &PermissionHandler{resolver: resolver}
}

// Mine GET /me/permissions
func (h *PermissionHandler) Mine(c *gin.Context) {
	actor := CurrentActor(c)
	perms, err := h.resolver.DefaultPermissions(c.Request.Context(), actor.Role)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{
		"user_id":     actor.UserID,
		"role":        actor.Role,
		"permissions": perms,
	})
}
