package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/suite"

	"gudam-backend/config"
	"gudam-backend/database"
	"gudam-backend/internal/middleware"
	"gudam-backend/internal/models"
	"gudam-backend/internal/services"
	"gudam-backend/internal/store"
	"gudam-backend/internal/utils"
)

type APITestSuite struct {
	suite.Suite
	db     *sql.DB
	router *gin.Engine
	auth   *services.AuthService
}

func (s *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite3", ":memory:")
	s.Require().NoError(err)
	// One connection, one in-memory database
	db.SetMaxOpenConns(1)
	s.Require().NoError(database.Migrate(db))
	s.db = db

	cfg := &config.Config{Environment: "test", JWTSecret: "test-secret", JWTExpiration: 3600}
	s.auth = services.NewAuthService(cfg.JWTSecret, cfg.JWTExpiration)
	authMiddleware := middleware.NewAuthMiddleware(s.auth)
	otpStore := services.NewOTPStore(services.DefaultOTPTTL)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("db", db)
		c.Set("config", cfg)
		c.Set("authService", s.auth)
		c.Set("otpStore", otpStore)
		c.Next()
	})

	apiGroup := router.Group("/api")
	apiGroup.POST("/auth/register", Register)
	apiGroup.POST("/auth/login", Login)

	protected := apiGroup.Group("")
	protected.Use(authMiddleware.AuthRequired())
	{
		protected.GET("/users/me", GetMe)
		protected.GET("/users/:id/reputation", GetReputation)
		protected.POST("/ratings", SubmitRating)
		protected.POST("/match-agent", MatchAgent)
		protected.GET("/agents/:id/capacity", AgentCapacity)
		protected.POST("/products", CreateProduct)
		protected.POST("/orders", CreateOrder)
		protected.PUT("/orders/:id/status", UpdateOrderStatus)
		protected.POST("/verifications/listings/:productId/verify", StartVerification)
		protected.PUT("/verifications/:id/status", UpdateVerificationStatus)
	}

	s.router = router
}

func (s *APITestSuite) TearDownTest() {
	s.db.Close()
}

func (s *APITestSuite) request(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APITestSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *APITestSuite) registerUser(phone, role string) (string, string) {
	w := s.request(http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Test " + role,
		"phone":    phone,
		"password": "secret123",
		"role":     role,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	body := s.decode(w)
	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)
	return user["id"].(string), data["token"].(string)
}

func (s *APITestSuite) seedAgentProfile(agentID string, lat, lon, capacity float64) {
	st := store.New(s.db)
	_, err := st.Update("users", []store.Filter{store.Eq("id", agentID)}, store.Row{
		"location": models.EncodeJSON(map[string]any{"lat": lat, "lon": lon}),
		"profile_details": models.EncodeJSON(map[string]any{
			"gudam_name":              "Test গুদাম",
			"is_active":               true,
			"storage_capacity_tons":   capacity * 2,
			"current_stored_tons":     capacity,
			"available_capacity_tons": capacity,
			"average_rating":          3.0,
		}),
		"updated_at": utils.NowISO(),
	})
	s.Require().NoError(err)
}

func (s *APITestSuite) TestRegisterAndLoginFlow() {
	s.registerUser("+8801712345678", "farmer")

	w := s.request(http.MethodPost, "/api/auth/login", "", gin.H{
		"phone":    "+8801712345678",
		"password": "secret123",
	})
	s.Equal(http.StatusOK, w.Code)

	body := s.decode(w)
	s.Equal(true, body["success"])
	s.Contains(body["message"], "Login successful")
}

func (s *APITestSuite) TestProtectedRouteRequiresToken() {
	w := s.request(http.MethodGet, "/api/users/me", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.request(http.MethodGet, "/api/users/me", "not-a-token", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestGetMe() {
	userID, token := s.registerUser("+8801712345678", "farmer")

	w := s.request(http.MethodGet, "/api/users/me", token, nil)
	s.Equal(http.StatusOK, w.Code)

	body := s.decode(w)
	data := body["data"].(map[string]any)
	s.Equal(userID, data["id"])
}

func (s *APITestSuite) TestMatchAgentEndToEnd() {
	_, farmerToken := s.registerUser("+8801712345678", "farmer")
	agentID, _ := s.registerUser("+8801812345678", "agent")
	s.seedAgentProfile(agentID, 23.8103, 90.4125, 100)

	w := s.request(http.MethodPost, "/api/match-agent", farmerToken, gin.H{
		"farmer_lat":      23.8103,
		"farmer_lon":      90.4125,
		"max_distance_km": 50,
	})
	s.Equal(http.StatusOK, w.Code, w.Body.String())

	body := s.decode(w)
	data := body["data"].(map[string]any)
	best := data["best_match"].(map[string]any)
	s.Equal(agentID, best["agent_id"])
	s.InDelta(88.0, best["match_score"].(float64), 0.01)
}

func (s *APITestSuite) TestMatchAgentNoCandidates() {
	_, token := s.registerUser("+8801712345678", "farmer")

	w := s.request(http.MethodPost, "/api/match-agent", token, gin.H{
		"farmer_lat": 23.8103,
		"farmer_lon": 90.4125,
	})
	s.Equal(http.StatusNotFound, w.Code)

	body := s.decode(w)
	s.Equal(false, body["success"])
	s.Contains(body["error"], "No suitable agents found nearby")
}

func (s *APITestSuite) TestAgentCapacityEndpoint() {
	agentID, token := s.registerUser("+8801812345678", "agent")
	s.seedAgentProfile(agentID, 23.8103, 90.4125, 40)

	w := s.request(http.MethodGet, "/api/agents/"+agentID+"/capacity", token, nil)
	s.Equal(http.StatusOK, w.Code)

	body := s.decode(w)
	data := body["data"].(map[string]any)
	s.InDelta(50.0, data["utilization_percent"].(float64), 0.01)
	s.Equal(true, data["is_accepting_new"])
}

func (s *APITestSuite) TestVerificationFlowOverHTTP() {
	farmerID, farmerToken := s.registerUser("+8801712345678", "farmer")
	agentID, agentToken := s.registerUser("+8801812345678", "agent")

	w := s.request(http.MethodPost, "/api/products", farmerToken, gin.H{
		"farmer_id":      farmerID,
		"name_bn":        "আলু",
		"category":       "vegetable",
		"quantity":       100,
		"price_per_unit": 50,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	productID := s.decode(w)["data"].(map[string]any)["id"].(string)

	w = s.request(http.MethodPost, "/api/verifications/listings/"+productID+"/verify", agentToken, gin.H{
		"agent_id": agentID,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	verificationID := s.decode(w)["data"].(map[string]any)["id"].(string)

	w = s.request(http.MethodPut, "/api/verifications/"+verificationID+"/status", agentToken, gin.H{
		"status":            "verified",
		"quality_grade":     "B",
		"adjusted_quantity": 45,
	})
	s.Equal(http.StatusOK, w.Code, w.Body.String())

	body := s.decode(w)
	s.Contains(body["message"], "Product verified successfully")
	data := body["data"].(map[string]any)
	s.Equal("verified", data["status"])
}

func (s *APITestSuite) TestOrderAndRatingFlowOverHTTP() {
	farmerID, farmerToken := s.registerUser("+8801712345678", "farmer")
	buyerID, buyerToken := s.registerUser("+8801912345678", "buyer")

	w := s.request(http.MethodPost, "/api/products", farmerToken, gin.H{
		"farmer_id":      farmerID,
		"name_bn":        "আলু",
		"category":       "vegetable",
		"quantity":       100,
		"price_per_unit": 50,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	productID := s.decode(w)["data"].(map[string]any)["id"].(string)

	w = s.request(http.MethodPost, "/api/orders", buyerToken, gin.H{
		"product_id": productID,
		"buyer_id":   buyerID,
		"quantity":   10,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	order := s.decode(w)["data"].(map[string]any)
	orderID := order["id"].(string)
	s.Equal(500.0, order["total_price"].(float64))

	// Rating before delivery is refused.
	w = s.request(http.MethodPost, "/api/ratings", buyerToken, gin.H{
		"rated_user_id": farmerID,
		"from_user_id":  buyerID,
		"order_id":      orderID,
		"score":         5,
	})
	s.Equal(http.StatusBadRequest, w.Code, w.Body.String())

	w = s.request(http.MethodPut, "/api/orders/"+orderID+"/status", farmerToken, gin.H{
		"status": "delivered",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.request(http.MethodPost, "/api/ratings", buyerToken, gin.H{
		"rated_user_id": farmerID,
		"from_user_id":  buyerID,
		"order_id":      orderID,
		"score":         5,
	})
	s.Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.request(http.MethodGet, "/api/users/"+farmerID+"/reputation", buyerToken, nil)
	s.Equal(http.StatusOK, w.Code)
	rep := s.decode(w)["data"].(map[string]any)
	s.InDelta(5.0, rep["average_score"].(float64), 0.001)
}

func (s *APITestSuite) TestSubmitRatingValidation() {
	_, token := s.registerUser("+8801712345678", "buyer")

	// Score out of range fails binding.
	w := s.request(http.MethodPost, "/api/ratings", token, gin.H{
		"rated_user_id": "USR-x",
		"from_user_id":  "USR-y",
		"score":         9,
	})
	s.Equal(http.StatusBadRequest, w.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
