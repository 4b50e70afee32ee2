package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gudam-backend/config"
	"gudam-backend/internal/apperr"
	"gudam-backend/internal/services"
	"gudam-backend/internal/store"
)

// dbClient builds a store client from the database connection in the request
// context.
func dbClient(c *gin.Context) *store.Client {
	db := c.MustGet("db").(*sql.DB)
	return store.New(db)
}

func appConfig(c *gin.Context) *config.Config {
	return c.MustGet("config").(*config.Config)
}

func notificationHub(c *gin.Context) *services.NotificationHub {
	if hub, exists := c.Get("hub"); exists {
		return hub.(*services.NotificationHub)
	}
	return nil
}

func notifier(c *gin.Context) *services.NotificationService {
	return services.NewNotificationService(dbClient(c), appConfig(c), notificationHub(c))
}

func authService(c *gin.Context) *services.AuthService {
	return c.MustGet("authService").(*services.AuthService)
}

func otpStore(c *gin.Context) *services.OTPStore {
	return c.MustGet("otpStore").(*services.OTPStore)
}

// respondError translates a service error into the standard envelope. Typed
// errors keep their status; anything else becomes a 500.
func respondError(c *gin.Context, err error) {
	e := apperr.From(err)
	c.JSON(e.Status, gin.H{
		"success": false,
		"error":   e.Message,
	})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   message,
	})
}

// pageParams reads page/page_size query parameters with sane bounds.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func floatQuery(c *gin.Context, key string, fallback float64) float64 {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
