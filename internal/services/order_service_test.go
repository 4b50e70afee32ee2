package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gudam-backend/internal/apperr"
	"gudam-backend/internal/models"
	"gudam-backend/internal/store"
)

func newOrderFixture(t *testing.T) (*store.Client, *OrderService) {
	t.Helper()
	st := newTestStore(t)
	return st, NewOrderService(st, newTestNotifier(t, st))
}

func notificationTypes(t *testing.T, st *store.Client, userID string) []string {
	t.Helper()
	rows, _, err := st.Select("notifications", store.Query{
		Filters: []store.Filter{store.Eq("user_id", userID)},
	})
	require.NoError(t, err)
	types := make([]string, 0, len(rows))
	for _, r := range rows {
		types = append(types, models.Str(r, "type"))
	}
	return types
}

func TestOrderCreateDerivesPriceFromListing(t *testing.T) {
	st, svc := newOrderFixture(t)
	seedUser(t, st, "FRM-1", "Karim", "farmer")
	seedUser(t, st, "BYR-1", "Rahim", "buyer")
	seedUser(t, st, "AGT-1", "Salam", "agent")
	seedProduct(t, st, "PRD-1", "FRM-1", 100, 50)
	_, err := st.Update("products",
		[]store.Filter{store.Eq("id", "PRD-1")},
		store.Row{"verified_by": "AGT-1"})
	require.NoError(t, err)

	order, err := svc.Create(CreateOrderInput{
		ProductID: "PRD-1",
		BuyerID:   "BYR-1",
		Quantity:  10,
		Notes:     "সকালে ডেলিভারি",
	})
	require.NoError(t, err)

	assert.Contains(t, order.ID, "ORD-")
	assert.Equal(t, models.OrderStatusPlaced, order.Status)
	assert.Equal(t, "FRM-1", order.FarmerID)
	assert.Equal(t, "AGT-1", order.AgentID)
	assert.Equal(t, 50.0, order.UnitPrice)
	assert.Equal(t, 500.0, order.TotalPrice)
	assert.NotEmpty(t, order.PlacedAt)

	// Farmer and verifying agent both hear about the new order.
	assert.Contains(t, notificationTypes(t, st, "FRM-1"), NotifTypeOrderPlaced)
	assert.Contains(t, notificationTypes(t, st, "AGT-1"), NotifTypeOrderPlaced)
}

func TestOrderCreateUnknownProduct(t *testing.T) {
	_, svc := newOrderFixture(t)

	_, err := svc.Create(CreateOrderInput{ProductID: "PRD-x", BuyerID: "BYR-1", Quantity: 5})
	require.Error(t, err)
	assert.Equal(t, 404, apperr.From(err).Status)
}

func TestOrderUpdateStatusStampsTimestampAndNotifiesBuyer(t *testing.T) {
	st, svc := newOrderFixture(t)
	seedUser(t, st, "FRM-1", "Karim", "farmer")
	seedUser(t, st, "BYR-1", "Rahim", "buyer")
	seedProduct(t, st, "PRD-1", "FRM-1", 100, 50)

	order, err := svc.Create(CreateOrderInput{ProductID: "PRD-1", BuyerID: "BYR-1", Quantity: 4})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(order.ID, UpdateOrderStatusInput{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)
	assert.NotEmpty(t, updated.ConfirmedAt)
	assert.Empty(t, updated.ShippedAt)

	updated, err = svc.UpdateStatus(order.ID, UpdateOrderStatusInput{Status: "delivered"})
	require.NoError(t, err)
	assert.NotEmpty(t, updated.DeliveredAt)

	assert.Contains(t, notificationTypes(t, st, "BYR-1"), NotifTypeOrderStatus)
}

func TestOrderUpdateStatusValidation(t *testing.T) {
	st, svc := newOrderFixture(t)
	seedUser(t, st, "FRM-1", "Karim", "farmer")
	seedUser(t, st, "BYR-1", "Rahim", "buyer")
	seedProduct(t, st, "PRD-1", "FRM-1", 100, 50)

	order, err := svc.Create(CreateOrderInput{ProductID: "PRD-1", BuyerID: "BYR-1", Quantity: 4})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(order.ID, UpdateOrderStatusInput{Status: "teleported"})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Status)

	_, err = svc.UpdateStatus("ORD-x", UpdateOrderStatusInput{Status: "confirmed"})
	require.Error(t, err)
	assert.Equal(t, 404, apperr.From(err).Status)
}

func TestOrderLifecycleUnlocksRating(t *testing.T) {
	st, svc := newOrderFixture(t)
	reputation := NewReputationService(st)
	seedUser(t, st, "FRM-1", "Karim", "farmer")
	seedUser(t, st, "BYR-1", "Rahim", "buyer")
	seedProduct(t, st, "PRD-1", "FRM-1", 100, 50)

	order, err := svc.Create(CreateOrderInput{ProductID: "PRD-1", BuyerID: "BYR-1", Quantity: 10})
	require.NoError(t, err)

	// A freshly placed order cannot be rated yet.
	_, err = reputation.SubmitRating(RatingInput{
		RatedUserID: "FRM-1",
		FromUserID:  "BYR-1",
		OrderID:     order.ID,
		Score:       5,
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Status)

	_, err = svc.UpdateStatus(order.ID, UpdateOrderStatusInput{Status: "delivered"})
	require.NoError(t, err)

	rating, err := reputation.SubmitRating(RatingInput{
		RatedUserID: "FRM-1",
		FromUserID:  "BYR-1",
		OrderID:     order.ID,
		Score:       5,
	})
	require.NoError(t, err)
	assert.Equal(t, order.ID, rating.OrderID)
}

func TestOrderListFiltersAndEnrichment(t *testing.T) {
	st, svc := newOrderFixture(t)
	seedUser(t, st, "FRM-1", "Karim", "farmer")
	seedUser(t, st, "BYR-1", "Rahim", "buyer")
	seedUser(t, st, "BYR-2", "Jamal", "buyer")
	seedProduct(t, st, "PRD-1", "FRM-1", 100, 50)

	_, err := svc.Create(CreateOrderInput{ProductID: "PRD-1", BuyerID: "BYR-1", Quantity: 5})
	require.NoError(t, err)
	_, err = svc.Create(CreateOrderInput{ProductID: "PRD-1", BuyerID: "BYR-2", Quantity: 7})
	require.NoError(t, err)

	orders, total, err := svc.List(ListOrdersOptions{BuyerID: "BYR-2"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, "আলু", orders[0].ProductNameBN)
	assert.Equal(t, "কেজি", orders[0].ProductUnit)
	assert.Equal(t, "Karim", orders[0].FarmerName)
	assert.Equal(t, "Jamal", orders[0].BuyerName)

	orders, total, err = svc.List(ListOrdersOptions{FarmerID: "FRM-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, orders, 2)
}

func TestOrderSoftDeleteAndRestore(t *testing.T) {
	st, svc := newOrderFixture(t)
	seedUser(t, st, "FRM-1", "Karim", "farmer")
	seedUser(t, st, "BYR-1", "Rahim", "buyer")
	seedProduct(t, st, "PRD-1", "FRM-1", 100, 50)

	order, err := svc.Create(CreateOrderInput{ProductID: "PRD-1", BuyerID: "BYR-1", Quantity: 5})
	require.NoError(t, err)

	require.NoError(t, svc.SoftDelete(order.ID))

	_, err = svc.Get(order.ID)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.From(err).Status)

	_, total, err := svc.List(ListOrdersOptions{BuyerID: "BYR-1"})
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	restored, err := svc.Restore(order.ID)
	require.NoError(t, err)
	assert.Empty(t, restored.DeletedAt)

	_, err = svc.Restore(order.ID)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.From(err).Status)
}
