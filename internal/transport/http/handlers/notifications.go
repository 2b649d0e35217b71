package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/VoltanFr/memcheck-sub004/internal/usecase"
)

// NotificationHandler exposes deletion notices for subscribed users.
type NotificationHandler struct {
	notifications *usecase.NotificationService
}

// NewNotificationHandler builds a notification handler.
func NewNotificationHandler(notifications *usecase.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// RegisterRoutes binds notification endpoints.
func (h *NotificationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/deletions", h.Deletions)
}

var notificationErrorCases = []ErrorCase{
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
}

// Deletions returns one notice per subscribed card deleted since the
// subscription's last notification, newest deletion first.
func (h *NotificationHandler) Deletions(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "user_id is required"))
		return
	}

	notices, err := h.notifications.NotifyDeletions(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, notificationErrorCases, http.StatusInternalServerError, "failed to load deletion notices")
		return
	}

	resp := DeletionNoticesResponse{
		UserID:  userID,
		Notices: make([]DeletionNoticeResponse, 0, len(notices)),
	}
	for _, notice := range notices {
		resp.Notices = append(resp.Notices, newDeletionNoticeResponse(notice))
	}

	c.JSON(http.StatusOK, resp)
}
