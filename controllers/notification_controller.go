package controllers

import (
	"net/http"
	"strconv"

	"chamapay/middleware"
	"chamapay/models"
	"chamapay/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationController struct {
	Notifications repository.NotificationRepository
	Logger        *zap.Logger
}

func NewNotificationController(notifications repository.NotificationRepository, logger *zap.Logger) *NotificationController {
	return &NotificationController{Notifications: notifications, Logger: logger}
}

// List returns the member's notifications, newest first, paginated.
func (nc *NotificationController) List(c *gin.Context) {
	memberID, ok := middleware.CurrentMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	logs, total, err := nc.Notifications.List(c.Request.Context(), models.NotificationFilter{
		MemberID: memberID,
		Unread:   c.Query("unread") == "true",
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		nc.Logger.Error("Failed to list notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": logs, "total": total, "page": page})
}

func (nc *NotificationController) MarkRead(c *gin.Context) {
	memberID, ok := middleware.CurrentMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification id"})
		return
	}

	rows, err := nc.Notifications.MarkRead(c.Request.Context(), memberID, id)
	if err != nil {
		nc.Logger.Error("Failed to mark notification read", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	if rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (nc *NotificationController) Delete(c *gin.Context) {
	memberID, ok := middleware.CurrentMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification id"})
		return
	}

	rows, err := nc.Notifications.Delete(c.Request.Context(), memberID, id)
	if err != nil {
		nc.Logger.Error("Failed to delete notification", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		return
	}
	if rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
