package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gudam-backend/internal/models"
	"gudam-backend/internal/services"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := services.NewAuthService("test-secret", 3600)
	m := NewAuthMiddleware(auth)

	router := gin.New()
	router.GET("/protected", m.AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("userID")})
	})
	router.GET("/agent-only", m.AuthRequired(), m.RequireRoles("agent", "admin"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router, auth
}

func tokenFor(t *testing.T, auth *services.AuthService, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(&models.User{
		ID:    "USR-1",
		Phone: "+8801712345678",
		Role:  models.UserRole(role),
	})
	require.NoError(t, err)
	return token
}

func TestAuthRequiredRejectsMissingHeader(t *testing.T) {
	router, _ := newAuthRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredRejectsMalformedHeader(t *testing.T) {
	router, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	router, auth := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, auth, "farmer"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "USR-1")
}

func TestRequireRoles(t *testing.T) {
	router, auth := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/agent-only", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, auth, "farmer"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/agent-only", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, auth, "agent"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSecurityMiddlewareRequestSizeLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityMiddleware(&SecurityConfig{
		MaxRequestSize:    64,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}))
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.ContentLength = 1024
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSecurityMiddlewareRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityMiddleware(&SecurityConfig{
		MaxRequestSize:    1024,
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	var last int
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestSecurityMiddlewareRejectsWeirdContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityMiddleware(nil))
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Content-Type", "application/xml")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}
