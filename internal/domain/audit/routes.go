package audit

import (
	"github.com/gin-gonic/gin"

	"fieldwork/internal/domain/auth"
	"fieldwork/internal/middleware"
)

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.GET("/activity-logs",
		middleware.RequireRole(string(auth.RoleManager), string(auth.RoleSupervisor)),
		h.ListActivityLogs,
	)
}
