// Package models defines the persisted entities of the marketplace and the
// decoding of generic store rows into them. JSON-typed columns (location,
// profile details, images) are stored as TEXT and decoded here.
package models

import (
	"encoding/json"

	"gudam-backend/internal/store"
)

// UserRole represents a user role
type UserRole string

const (
	RoleFarmer UserRole = "farmer"
	RoleAgent  UserRole = "agent"
	RoleBuyer  UserRole = "buyer"
	RoleAdmin  UserRole = "admin"
)

// ProductStatus represents a product listing status
type ProductStatus string

const (
	ProductStatusPendingVerification ProductStatus = "pending_verification"
	ProductStatusVerified            ProductStatus = "verified"
	ProductStatusSold                ProductStatus = "sold"
)

// OrderStatus represents an order lifecycle state
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// ValidOrderStatus reports whether s names a known order state.
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPlaced, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCanceled:
		return true
	}
	return false
}

// Rateable reports whether the order has reached a state in which the parties
// may rate each other.
func (s OrderStatus) Rateable() bool {
	return s == OrderStatusDelivered || s == OrderStatusCompleted
}

// VerificationStatus represents a verification workflow state
type VerificationStatus string

const (
	VerificationStatusPending            VerificationStatus = "pending"
	VerificationStatusInProgress         VerificationStatus = "in_progress"
	VerificationStatusVerified           VerificationStatus = "verified"
	VerificationStatusRejected           VerificationStatus = "rejected"
	VerificationStatusAdjustmentProposed VerificationStatus = "adjustment_proposed"
	VerificationStatusConfirmed          VerificationStatus = "confirmed"
	VerificationStatusAdjusted           VerificationStatus = "adjusted"
)

// ValidVerificationStatus reports whether s names a known workflow state.
func ValidVerificationStatus(s string) bool {
	switch VerificationStatus(s) {
	case VerificationStatusPending, VerificationStatusInProgress,
		VerificationStatusVerified, VerificationStatusRejected,
		VerificationStatusAdjustmentProposed, VerificationStatusConfirmed,
		VerificationStatusAdjusted:
		return true
	}
	return false
}

// TerminalForProduct reports whether the status counts as a successful
// verification for product-update purposes.
func (s VerificationStatus) TerminalForProduct() bool {
	return s == VerificationStatusVerified || s == VerificationStatusConfirmed || s == VerificationStatusAdjusted
}

// User is an account row with the password hash stripped.
type User struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email,omitempty"`
	Phone          string         `json:"phone"`
	Role           UserRole       `json:"role"`
	AvatarURL      string         `json:"avatar_url,omitempty"`
	Location       map[string]any `json:"location,omitempty"`
	ProfileDetails map[string]any `json:"profile_details,omitempty"`
	IsVerified     bool           `json:"is_verified"`
	DeletedAt      string         `json:"deleted_at,omitempty"`
	CreatedAt      string         `json:"created_at"`
}

// UserFromRow decodes a users-table row. The password hash never leaves the
// model layer.
func UserFromRow(r store.Row) *User {
	return &User{
		ID:             Str(r, "id"),
		Name:           Str(r, "name"),
		Email:          Str(r, "email"),
		Phone:          Str(r, "phone"),
		Role:           UserRole(Str(r, "role")),
		AvatarURL:      Str(r, "avatar_url"),
		Location:       JSONMap(r, "location"),
		ProfileDetails: JSONMap(r, "profile_details"),
		IsVerified:     Bool(r, "is_verified"),
		DeletedAt:      Str(r, "deleted_at"),
		CreatedAt:      Str(r, "created_at"),
	}
}

// Agent is the agent-specific view of a user: identity plus the warehouse
// capacity profile kept inside profile_details.
type Agent struct {
	ID                    string         `json:"id"`
	Name                  string         `json:"name"`
	Phone                 string         `json:"phone"`
	GudamName             string         `json:"gudam_name"`
	Location              map[string]any `json:"location"`
	IsActive              bool           `json:"is_active"`
	StorageCapacityTons   float64        `json:"storage_capacity_tons"`
	CurrentStoredTons     float64        `json:"current_stored_tons"`
	AvailableCapacityTons float64        `json:"available_capacity_tons"`
	AverageRating         float64        `json:"average_rating"`
	StorageType           string         `json:"storage_type"`
	CommissionRatePercent float64        `json:"commission_rate_percent"`
	OperatingHours        string         `json:"operating_hours"`
	ServiceAreas          []string       `json:"service_areas"`
	Resources             map[string]any `json:"resources"`
}

// AgentFromRow extracts the agent profile from a users-table row. Missing
// capacity fields default to zero; the static fallback rating defaults to 3.0.
func AgentFromRow(r store.Row) *Agent {
	profile := JSONMap(r, "profile_details")
	agent := &Agent{
		ID:                    Str(r, "id"),
		Name:                  Str(r, "name"),
		Phone:                 Str(r, "phone"),
		GudamName:             mapStr(profile, "gudam_name"),
		Location:              JSONMap(r, "location"),
		IsActive:              mapBool(profile, "is_active"),
		StorageCapacityTons:   mapFloat(profile, "storage_capacity_tons", 0),
		CurrentStoredTons:     mapFloat(profile, "current_stored_tons", 0),
		AvailableCapacityTons: mapFloat(profile, "available_capacity_tons", 0),
		AverageRating:         mapFloat(profile, "average_rating", 3.0),
		StorageType:           mapStr(profile, "storage_type"),
		CommissionRatePercent: mapFloat(profile, "commission_rate_percent", 0),
		OperatingHours:        mapStr(profile, "operating_hours"),
		Resources:             nil,
	}
	if res, ok := profile["resources"].(map[string]any); ok {
		agent.Resources = res
	}
	if areas, ok := profile["service_areas"].([]any); ok {
		for _, a := range areas {
			if s, ok := a.(string); ok {
				agent.ServiceAreas = append(agent.ServiceAreas, s)
			}
		}
	}
	return agent
}

// Coordinates returns the agent's latitude/longitude, reporting whether a
// usable location is present.
func (a *Agent) Coordinates() (lat, lon float64, ok bool) {
	if a.Location == nil {
		return 0, 0, false
	}
	latV, latOK := a.Location["lat"].(float64)
	lonV, lonOK := a.Location["lon"].(float64)
	if !latOK || !lonOK {
		return 0, 0, false
	}
	return latV, lonV, true
}

// Product is a farmer's produce listing.
type Product struct {
	ID               string         `json:"id"`
	FarmerID         string         `json:"farmer_id"`
	NameBN           string         `json:"name_bn"`
	NameEN           string         `json:"name_en,omitempty"`
	Category         string         `json:"category"`
	Quantity         float64        `json:"quantity"`
	Unit             string         `json:"unit"`
	QualityGrade     string         `json:"quality_grade"`
	PricePerUnit     float64        `json:"price_per_unit"`
	Currency         string         `json:"currency"`
	Status           ProductStatus  `json:"status"`
	Images           []string       `json:"images"`
	Location         string         `json:"location,omitempty"`
	DescriptionBN    string         `json:"description_bn,omitempty"`
	VerifiedBy       string         `json:"verified_by,omitempty"`
	VerificationDate string         `json:"verification_date,omitempty"`
	DeletedAt        string         `json:"deleted_at,omitempty"`
	CreatedAt        string         `json:"created_at"`
}

// ProductFromRow decodes a products-table row.
func ProductFromRow(r store.Row) *Product {
	return &Product{
		ID:               Str(r, "id"),
		FarmerID:         Str(r, "farmer_id"),
		NameBN:           Str(r, "name_bn"),
		NameEN:           Str(r, "name_en"),
		Category:         Str(r, "category"),
		Quantity:         Float(r, "quantity"),
		Unit:             Str(r, "unit"),
		QualityGrade:     Str(r, "quality_grade"),
		PricePerUnit:     Float(r, "price_per_unit"),
		Currency:         Str(r, "currency"),
		Status:           ProductStatus(Str(r, "status")),
		Images:           JSONStrings(r, "images"),
		Location:         Str(r, "location"),
		DescriptionBN:    Str(r, "description_bn"),
		VerifiedBy:       Str(r, "verified_by"),
		VerificationDate: Str(r, "verification_date"),
		DeletedAt:        Str(r, "deleted_at"),
		CreatedAt:        Str(r, "created_at"),
	}
}

// Verification is an inspection record linking a product, the inspecting
// agent and the listing farmer.
type Verification struct {
	ID               string             `json:"id"`
	ProductID        string             `json:"product_id"`
	AgentID          string             `json:"agent_id"`
	FarmerID         string             `json:"farmer_id,omitempty"`
	Status           VerificationStatus `json:"status"`
	OriginalGrade    string             `json:"original_grade,omitempty"`
	VerifiedGrade    string             `json:"verified_grade,omitempty"`
	OriginalQuantity float64            `json:"original_quantity,omitempty"`
	VerifiedQuantity float64            `json:"verified_quantity,omitempty"`
	Notes            string             `json:"notes,omitempty"`
	NotesBN          string             `json:"notes_bn,omitempty"`
	AdjustmentReason string             `json:"adjustment_reason,omitempty"`
	CreatedAt        string             `json:"created_at"`
	VerifiedAt       string             `json:"verified_at,omitempty"`

	// Enrichment fields, populated on listings only
	ProductNameBN string `json:"product_name_bn,omitempty"`
	ProductNameEN string `json:"product_name_en,omitempty"`
	ProductUnit   string `json:"product_unit,omitempty"`
	FarmerName    string `json:"farmer_name,omitempty"`
}

// VerificationFromRow decodes a verifications-table row.
func VerificationFromRow(r store.Row) *Verification {
	return &Verification{
		ID:               Str(r, "id"),
		ProductID:        Str(r, "product_id"),
		AgentID:          Str(r, "agent_id"),
		FarmerID:         Str(r, "farmer_id"),
		Status:           VerificationStatus(Str(r, "status")),
		OriginalGrade:    Str(r, "original_grade"),
		VerifiedGrade:    Str(r, "verified_grade"),
		OriginalQuantity: Float(r, "original_quantity"),
		VerifiedQuantity: Float(r, "verified_quantity"),
		Notes:            Str(r, "notes"),
		NotesBN:          Str(r, "notes_bn"),
		AdjustmentReason: Str(r, "adjustment_reason"),
		CreatedAt:        Str(r, "created_at"),
		VerifiedAt:       Str(r, "verified_at"),
	}
}

// Order is a buyer's purchase of a listed product. Price is derived from the
// listing at placement time and never changes afterwards.
type Order struct {
	ID              string         `json:"id"`
	ProductID       string         `json:"product_id"`
	BuyerID         string         `json:"buyer_id"`
	FarmerID        string         `json:"farmer_id"`
	AgentID         string         `json:"agent_id,omitempty"`
	Quantity        float64        `json:"quantity"`
	UnitPrice       float64        `json:"unit_price"`
	TotalPrice      float64        `json:"total_price"`
	Status          OrderStatus    `json:"status"`
	DeliveryAddress map[string]any `json:"delivery_address,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	PlacedAt        string         `json:"placed_at,omitempty"`
	ConfirmedAt     string         `json:"confirmed_at,omitempty"`
	ShippedAt       string         `json:"shipped_at,omitempty"`
	DeliveredAt     string         `json:"delivered_at,omitempty"`
	DeletedAt       string         `json:"deleted_at,omitempty"`
	CreatedAt       string         `json:"created_at"`

	// Enrichment fields, populated on listings only
	ProductNameBN string `json:"product_name_bn,omitempty"`
	ProductNameEN string `json:"product_name_en,omitempty"`
	ProductUnit   string `json:"product_unit,omitempty"`
	FarmerName    string `json:"farmer_name,omitempty"`
	BuyerName     string `json:"buyer_name,omitempty"`
	AgentName     string `json:"agent_name,omitempty"`
}

// OrderFromRow decodes an orders-table row.
func OrderFromRow(r store.Row) *Order {
	return &Order{
		ID:              Str(r, "id"),
		ProductID:       Str(r, "product_id"),
		BuyerID:         Str(r, "buyer_id"),
		FarmerID:        Str(r, "farmer_id"),
		AgentID:         Str(r, "agent_id"),
		Quantity:        Float(r, "quantity"),
		UnitPrice:       Float(r, "unit_price"),
		TotalPrice:      Float(r, "total_price"),
		Status:          OrderStatus(Str(r, "status")),
		DeliveryAddress: JSONMap(r, "delivery_address"),
		Notes:           Str(r, "notes"),
		PlacedAt:        Str(r, "placed_at"),
		ConfirmedAt:     Str(r, "confirmed_at"),
		ShippedAt:       Str(r, "shipped_at"),
		DeliveredAt:     Str(r, "delivered_at"),
		DeletedAt:       Str(r, "deleted_at"),
		CreatedAt:       Str(r, "created_at"),
	}
}

// Rating is an immutable score one user gave another.
type Rating struct {
	ID              string  `json:"id"`
	ToUserID        string  `json:"to_user_id"`
	FromUserID      string  `json:"from_user_id"`
	OrderID         string  `json:"order_id,omitempty"`
	ProductID       string  `json:"product_id,omitempty"`
	RatedEntityType string  `json:"rated_entity_type,omitempty"`
	Category        string  `json:"type"`
	Score           float64 `json:"rating"`
	Review          string  `json:"review,omitempty"`
	ReviewBN        string  `json:"review_bn,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// RatingFromRow decodes a ratings-table row.
func RatingFromRow(r store.Row) *Rating {
	return &Rating{
		ID:              Str(r, "id"),
		ToUserID:        Str(r, "to_user_id"),
		FromUserID:      Str(r, "from_user_id"),
		OrderID:         Str(r, "order_id"),
		ProductID:       Str(r, "product_id"),
		RatedEntityType: Str(r, "rated_entity_type"),
		Category:        Str(r, "type"),
		Score:           Float(r, "rating"),
		Review:          Str(r, "review"),
		ReviewBN:        Str(r, "review_bn"),
		CreatedAt:       Str(r, "created_at"),
	}
}

// Reputation is the derived aggregate of a user's received ratings. It is
// recomputed on every read and never persisted.
type Reputation struct {
	UserID         string             `json:"user_id"`
	AverageScore   float64            `json:"average_score"`
	TotalRatings   int                `json:"total_ratings"`
	ScoreBreakdown map[string]int     `json:"score_breakdown"`
	CategoryScores map[string]float64 `json:"category_scores"`
	EntityScores   map[string]float64 `json:"entity_scores"`
	Badge          string             `json:"badge,omitempty"`
	BadgeBN        string             `json:"badge_bn,omitempty"`
}

// Notification is an in-app message, optionally mirrored over SMS.
type Notification struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	TitleBN   string `json:"title_bn,omitempty"`
	Message   string `json:"message"`
	MessageBN string `json:"message_bn,omitempty"`
	RelatedID string `json:"related_id,omitempty"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// NotificationFromRow decodes a notifications-table row.
func NotificationFromRow(r store.Row) *Notification {
	return &Notification{
		ID:        Str(r, "id"),
		UserID:    Str(r, "user_id"),
		Type:      Str(r, "type"),
		Title:     Str(r, "title"),
		TitleBN:   Str(r, "title_bn"),
		Message:   Str(r, "message"),
		MessageBN: Str(r, "message_bn"),
		RelatedID: Str(r, "related_id"),
		IsRead:    Bool(r, "is_read"),
		CreatedAt: Str(r, "created_at"),
	}
}

// ─── Row access helpers ──────────────────────────────────────────────────────

// Str returns the string value of a column, "" when NULL or absent.
func Str(r store.Row, key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Float returns the numeric value of a column, 0 when NULL or absent.
func Float(r store.Row, key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns the boolean value of a column; sqlite stores booleans as
// integers.
func Bool(r store.Row, key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	}
	return false
}

// JSONMap decodes a TEXT column holding a JSON object.
func JSONMap(r store.Row, key string) map[string]any {
	s, ok := r[key].(string)
	if !ok || s == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

// JSONStrings decodes a TEXT column holding a JSON string array.
func JSONStrings(r store.Row, key string) []string {
	s, ok := r[key].(string)
	if !ok || s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// EncodeJSON renders v as a TEXT column value, nil staying NULL.
func EncodeJSON(v any) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(data)
}

func mapStr(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func mapFloat(m map[string]any, key string, fallback float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return fallback
}

func mapBool(m map[string]any, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}
