package audit

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldwork/internal/domain/auth"
	"fieldwork/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListActivityLogs returns the activity trail. Supervisors only see their
// own entries.
func (h *Handler) ListActivityLogs(c *gin.Context) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var f Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if caller.Role != auth.RoleManager {
		f.ActorID = caller.ID
	}

	entries, total, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"activity_logs": entries, "total": total})
}
