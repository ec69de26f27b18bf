package notification

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/notifications")
	{
		g.GET("", h.GetNotifications)
		g.GET("/unread-count", h.GetUnreadCount)
		g.POST("/:id/read", h.MarkAsRead)
		g.POST("/read-all", h.MarkAllAsRead)
	}
}

// RegisterWSRoutes mounts the websocket endpoint on a group authenticated
// by query token.
func (h *Handler) RegisterWSRoutes(ws *gin.RouterGroup) {
	ws.GET("/notifications", h.ServeWS)
}
