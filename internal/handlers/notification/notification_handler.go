// internal/handlers/notification/notification_handler.go
package notification

import (
	"net/http"
	"strconv"

	"flagpost-service/internal/pkg/response"
	service "flagpost-service/internal/service/notification"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	store service.Store
}

func NewNotificationHandler(store service.Store) *NotificationHandler {
	return &NotificationHandler{
		store: store,
	}
}

// ListNotifications retrieves dispatched notifications, newest first
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	notifications, total, err := h.store.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list notifications", err)
		return
	}

	response.Success(c, http.StatusOK, "notifications retrieved", gin.H{
		"notifications": notifications,
		"total":         total,
	})
}
