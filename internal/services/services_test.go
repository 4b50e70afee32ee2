package services

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"gudam-backend/config"
	"gudam-backend/database"
	"gudam-backend/internal/models"
	"gudam-backend/internal/store"
	"gudam-backend/internal/utils"
)

// newTestStore opens a single-connection in-memory database with the full
// schema applied.
func newTestStore(t *testing.T) *store.Client {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// One connection, one in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return store.New(db)
}

// newTestNotifier builds a notification service with no SMS key configured, so
// every SMS attempt is skipped and only in-app rows are written.
func newTestNotifier(t *testing.T, st *store.Client) *NotificationService {
	t.Helper()
	return NewNotificationService(st, &config.Config{}, nil)
}

func seedUser(t *testing.T, st *store.Client, id, name, role string) {
	t.Helper()
	_, err := st.Insert("users", store.Row{
		"id":            id,
		"name":          name,
		"phone":         "+88017" + id,
		"password_hash": "x",
		"role":          role,
		"created_at":    utils.NowISO(),
	})
	require.NoError(t, err)
}

// seedAgent creates an agent user with a location and capacity profile.
func seedAgent(t *testing.T, st *store.Client, id, name string, lat, lon, capacityTons, staticRating float64, active bool) {
	t.Helper()
	profile := map[string]any{
		"gudam_name":              name + " গুদাম",
		"is_active":               active,
		"storage_capacity_tons":   capacityTons * 2,
		"current_stored_tons":     capacityTons,
		"available_capacity_tons": capacityTons,
		"average_rating":          staticRating,
		"storage_type":            "dry",
	}
	_, err := st.Insert("users", store.Row{
		"id":              id,
		"name":            name,
		"phone":           "+88018" + id,
		"password_hash":   "x",
		"role":            "agent",
		"location":        models.EncodeJSON(map[string]any{"lat": lat, "lon": lon}),
		"profile_details": models.EncodeJSON(profile),
		"created_at":      utils.NowISO(),
	})
	require.NoError(t, err)
}

func seedProduct(t *testing.T, st *store.Client, id, farmerID string, quantity, price float64) {
	t.Helper()
	_, err := st.Insert("products", store.Row{
		"id":             id,
		"farmer_id":      farmerID,
		"name_bn":        "আলু",
		"name_en":        "Potato",
		"category":       "vegetable",
		"quantity":       quantity,
		"unit":           "কেজি",
		"quality_grade":  "A",
		"price_per_unit": price,
		"currency":       "BDT",
		"status":         string(models.ProductStatusPendingVerification),
		"created_at":     utils.NowISO(),
	})
	require.NoError(t, err)
}

func seedOrder(t *testing.T, st *store.Client, id, productID, buyerID, farmerID, status string) {
	t.Helper()
	_, err := st.Insert("orders", store.Row{
		"id":          id,
		"product_id":  productID,
		"buyer_id":    buyerID,
		"farmer_id":   farmerID,
		"quantity":    10.0,
		"total_price": 500.0,
		"status":      status,
		"created_at":  utils.NowISO(),
	})
	require.NoError(t, err)
}

func seedRating(t *testing.T, st *store.Client, id, toUser, fromUser string, score float64, category, entityType string) {
	t.Helper()
	row := store.Row{
		"id":           id,
		"to_user_id":   toUser,
		"from_user_id": fromUser,
		"type":         category,
		"rating":       score,
		"created_at":   utils.NowISO(),
	}
	if entityType != "" {
		row["rated_entity_type"] = entityType
	}
	_, err := st.Insert("ratings", row)
	require.NoError(t, err)
}
