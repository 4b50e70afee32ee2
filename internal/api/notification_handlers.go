package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetNotifications lists the authenticated user's notifications, newest first.
// ?is_read=true|false filters by read state.
func GetNotifications(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		userID = c.Param("userId")
	}
	page, pageSize := pageParams(c)

	var isRead *bool
	switch c.Query("is_read") {
	case "true":
		v := true
		isRead = &v
	case "false":
		v := false
		isRead = &v
	}

	items, total, err := notifier(c).UserNotifications(userID, isRead, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		},
	})
}

// GetUnreadCount returns the authenticated user's unread notification count.
func GetUnreadCount(c *gin.Context) {
	userID := c.GetString("userID")

	count, err := notifier(c).UnreadCount(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"unread_count": count},
	})
}

// MarkNotificationRead marks one notification as read.
func MarkNotificationRead(c *gin.Context) {
	notification, err := notifier(c).MarkAsRead(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    notification,
	})
}

// MarkAllNotificationsRead marks all of the user's notifications as read.
func MarkAllNotificationsRead(c *gin.Context) {
	userID := c.GetString("userID")

	if err := notifier(c).MarkAllAsRead(userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "সব বিজ্ঞপ্তি পঠিত হিসেবে চিহ্নিত (All notifications marked as read)",
	})
}

// NotificationStream upgrades to a websocket and pushes the user's
// notifications live.
func NotificationStream(c *gin.Context) {
	hub := notificationHub(c)
	if hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Notification stream unavailable",
		})
		return
	}
	hub.HandleStream(c)
}
