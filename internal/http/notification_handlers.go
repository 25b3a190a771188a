package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listNotifications(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	notifications, err := h.notifications.List(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"items": notifications}))
}

func (h *Handler) unreadNotificationCount(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	count, err := h.notifications.UnreadCount(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"count": count}))
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "notification")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"status": "read"}))
}

func (h *Handler) markAllNotificationsRead(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	marked, err := h.notifications.MarkAllRead(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"marked": marked}))
}

func (h *Handler) deleteNotification(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "notification")
	if !ok {
		return
	}

	if err := h.notifications.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"status": "deleted"}))
}
