package equipment

import (
	"github.com/gin-gonic/gin"

	"fieldwork/internal/domain/auth"
	"fieldwork/internal/middleware"
)

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	items := r.Group("/equipment")
	{
		items.GET("", h.ListItems)
		items.GET("/:id", h.GetItem)
		items.GET("/:id/balance", h.GetBalance)

		manage := items.Group("", middleware.RequireRole(string(auth.RoleSupervisor)))
		manage.POST("", h.CreateItem)
		manage.PATCH("/:id", h.UpdateItem)
		manage.DELETE("/:id", h.DeleteItem)
	}
}
