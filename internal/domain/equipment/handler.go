package equipment

import (
	"net/http"
	"strconv"

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

// ListItems returns the inventory, optionally filtered by name.
func (h *Handler) ListItems(c *gin.Context) {
	items, err := h.service.ListItems(c.Request.Context(), c.Query("search"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": items})
}

// CreateItem adds a new item with all of its stock available.
func (h *Handler) CreateItem(c *gin.Context) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	item, err := h.service.CreateItem(c.Request.Context(), caller.ID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, item)
}

func (h *Handler) UpdateItem(c *gin.Context) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	item, err := h.service.UpdateItem(c.Request.Context(), caller.ID, id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

func (h *Handler) DeleteItem(c *gin.Context) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteItem(c.Request.Context(), caller.ID, id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) GetItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	item, err := h.service.GetItem(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// GetBalance reports total, available and borrowed stock next to the sum
// of open loans.
func (h *Handler) GetBalance(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	b, err := h.service.Balance(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return id, true
}
