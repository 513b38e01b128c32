package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scolarfaso/backend/internal/services"
)

type AdminHandler struct {
	auditService *services.AuditService
	userService  *services.UserService
}

func NewAdminHandler(auditService *services.AuditService, userService *services.UserService) *AdminHandler {
	return &AdminHandler{
		auditService: auditService,
		userService:  userService,
	}
}

// GetAuditLogs lists recent authentication events, newest first.
// Query params: page, limit, phone, action.
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	phoneFilter := c.Query("phone")
	actionFilter := c.Query("action")

	logs, total, err := h.auditService.GetRecentEvents(page, limit, phoneFilter, actionFilter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load audit logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// UpdateUserActive enables or disables an account. Disabled accounts can no
// longer request or verify login codes.
func (h *AdminHandler) UpdateUserActive(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userService.SetActive(userID, *req.IsActive); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User updated"})
}
