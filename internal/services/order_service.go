package services

import (
	"github.com/google/uuid"

	"gudam-backend/internal/apperr"
	"gudam-backend/internal/models"
	"gudam-backend/internal/store"
	"gudam-backend/internal/utils"
)

// OrderService manages purchases of listed products. Orders price themselves
// from the listing at placement time; later listing edits do not reprice an
// existing order.
type OrderService struct {
	store    *store.Client
	notifier *NotificationService
}

// NewOrderService creates a new order service
func NewOrderService(st *store.Client, notifier *NotificationService) *OrderService {
	return &OrderService{store: st, notifier: notifier}
}

// CreateOrderInput is a new order request. Unit price always comes from the
// listing, never from the caller.
type CreateOrderInput struct {
	ProductID       string         `json:"product_id" binding:"required"`
	BuyerID         string         `json:"buyer_id" binding:"required"`
	Quantity        float64        `json:"quantity" binding:"required,gt=0"`
	DeliveryAddress map[string]any `json:"delivery_address"`
	Notes           string         `json:"notes"`
}

// UpdateOrderStatusInput moves an order to a new lifecycle state.
type UpdateOrderStatusInput struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// ListOrdersOptions filters the order listing.
type ListOrdersOptions struct {
	FarmerID string
	BuyerID  string
	AgentID  string
	Status   string
	Page     int
	PageSize int
}

var orderStatusLabelsBN = map[models.OrderStatus]string{
	models.OrderStatusConfirmed: "নিশ্চিত হয়েছে",
	models.OrderStatusShipped:   "পাঠানো হয়েছে",
	models.OrderStatusDelivered: "ডেলিভারি হয়েছে",
	models.OrderStatusCompleted: "সম্পন্ন হয়েছে",
	models.OrderStatusCanceled:  "বাতিল হয়েছে",
}

// Create places an order against a listing, deriving the price from it, and
// notifies the farmer and the verifying agent.
func (s *OrderService) Create(input CreateOrderInput) (*models.Order, error) {
	products, _, err := s.store.Select("products", store.Query{Filters: []store.Filter{
		store.Eq("id", input.ProductID),
		store.IsNull("deleted_at"),
	}})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(products) == 0 {
		return nil, apperr.NotFound("পণ্য পাওয়া যায়নি (Product not found)")
	}
	product := models.ProductFromRow(products[0])

	now := utils.NowISO()
	order := &models.Order{
		ID:              utils.ShortID("ORD", uuid.New().String()),
		ProductID:       product.ID,
		BuyerID:         input.BuyerID,
		FarmerID:        product.FarmerID,
		AgentID:         product.VerifiedBy,
		Quantity:        input.Quantity,
		UnitPrice:       product.PricePerUnit,
		TotalPrice:      product.PricePerUnit * input.Quantity,
		Status:          models.OrderStatusPlaced,
		DeliveryAddress: input.DeliveryAddress,
		Notes:           input.Notes,
		PlacedAt:        now,
		CreatedAt:       now,
	}

	_, err = s.store.Insert("orders", store.Row{
		"id":               order.ID,
		"product_id":       order.ProductID,
		"buyer_id":         order.BuyerID,
		"farmer_id":        order.FarmerID,
		"agent_id":         nullable(order.AgentID),
		"quantity":         order.Quantity,
		"unit_price":       order.UnitPrice,
		"total_price":      order.TotalPrice,
		"status":           string(order.Status),
		"delivery_address": models.EncodeJSON(order.DeliveryAddress),
		"notes":            nullable(order.Notes),
		"placed_at":        order.PlacedAt,
		"created_at":       order.CreatedAt,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	name := product.NameBN
	if name == "" {
		name = product.ID
	}
	s.notifier.Send(order.FarmerID, NotifTypeOrderPlaced,
		"New Order Received", "নতুন অর্ডার পেয়েছেন",
		"New order for "+name,
		name+" পণ্যের জন্য নতুন অর্ডার এসেছে",
		order.ID, true)
	if order.AgentID != "" {
		s.notifier.Send(order.AgentID, NotifTypeOrderPlaced,
			"New Order for Your Listing", "আপনার পণ্যের নতুন অর্ডার",
			"New order placed for product "+name,
			name+" পণ্যের জন্য নতুন অর্ডার এসেছে",
			order.ID, true)
	}

	return order, nil
}

// Get returns an order by id.
func (s *OrderService) Get(orderID string) (*models.Order, error) {
	rows, _, err := s.store.Select("orders", store.Query{Filters: []store.Filter{
		store.Eq("id", orderID),
		store.IsNull("deleted_at"),
	}})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("অর্ডার পাওয়া যায়নি (Order not found)")
	}
	return models.OrderFromRow(rows[0]), nil
}

// List returns orders matching the given filters, newest first, enriched with
// product and party names.
func (s *OrderService) List(opts ListOrdersOptions) ([]*models.Order, int, error) {
	filters := []store.Filter{store.IsNull("deleted_at")}
	if opts.FarmerID != "" {
		filters = append(filters, store.Eq("farmer_id", opts.FarmerID))
	}
	if opts.BuyerID != "" {
		filters = append(filters, store.Eq("buyer_id", opts.BuyerID))
	}
	if opts.AgentID != "" {
		filters = append(filters, store.Eq("agent_id", opts.AgentID))
	}
	if opts.Status != "" {
		filters = append(filters, store.Eq("status", opts.Status))
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}

	rows, total, err := s.store.Select("orders", store.Query{
		Filters:    filters,
		OrderBy:    "created_at",
		Descending: true,
		Offset:     (opts.Page - 1) * opts.PageSize,
		Limit:      opts.PageSize,
		Count:      true,
	})
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}

	orders := make([]*models.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, models.OrderFromRow(r))
	}
	if err := s.enrich(orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// enrich attaches product and party names to a page of orders.
func (s *OrderService) enrich(orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	productIDs := make([]string, 0, len(orders))
	userIDs := make([]string, 0, len(orders)*3)
	seenProducts := map[string]bool{}
	seenUsers := map[string]bool{}
	for _, o := range orders {
		if o.ProductID != "" && !seenProducts[o.ProductID] {
			seenProducts[o.ProductID] = true
			productIDs = append(productIDs, o.ProductID)
		}
		for _, uid := range []string{o.FarmerID, o.BuyerID, o.AgentID} {
			if uid != "" && !seenUsers[uid] {
				seenUsers[uid] = true
				userIDs = append(userIDs, uid)
			}
		}
	}

	productRows, _, err := s.store.Select("products", store.Query{
		Filters: []store.Filter{store.In("id", productIDs)},
	})
	if err != nil {
		return apperr.Internal(err)
	}
	products := make(map[string]store.Row, len(productRows))
	for _, r := range productRows {
		products[models.Str(r, "id")] = r
	}

	userRows, _, err := s.store.Select("users", store.Query{
		Filters: []store.Filter{store.In("id", userIDs)},
	})
	if err != nil {
		return apperr.Internal(err)
	}
	names := make(map[string]string, len(userRows))
	for _, r := range userRows {
		names[models.Str(r, "id")] = models.Str(r, "name")
	}

	for _, o := range orders {
		if p, ok := products[o.ProductID]; ok {
			o.ProductNameBN = models.Str(p, "name_bn")
			o.ProductNameEN = models.Str(p, "name_en")
			o.ProductUnit = models.Str(p, "unit")
		}
		o.FarmerName = names[o.FarmerID]
		o.BuyerName = names[o.BuyerID]
		o.AgentName = names[o.AgentID]
	}
	return nil
}

// UpdateStatus moves an order to a new state, stamps the matching timestamp
// column and notifies the buyer.
func (s *OrderService) UpdateStatus(orderID string, input UpdateOrderStatusInput) (*models.Order, error) {
	if !models.ValidOrderStatus(input.Status) {
		return nil, apperr.BadRequest("অবৈধ অর্ডার অবস্থা (Invalid order status): " + input.Status)
	}

	order, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}

	status := models.OrderStatus(input.Status)
	patch := store.Row{"status": input.Status}
	switch status {
	case models.OrderStatusConfirmed:
		patch["confirmed_at"] = utils.NowISO()
	case models.OrderStatusShipped:
		patch["shipped_at"] = utils.NowISO()
	case models.OrderStatusDelivered:
		patch["delivered_at"] = utils.NowISO()
	}
	if input.Notes != "" {
		patch["notes"] = input.Notes
	}

	updated, err := s.store.Update("orders", []store.Filter{store.Eq("id", orderID)}, patch)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	statusBN, ok := orderStatusLabelsBN[status]
	if !ok {
		statusBN = input.Status
	}
	// SMS only on the states the buyer acts on.
	sms := status.Rateable()
	s.notifier.Send(order.BuyerID, NotifTypeOrderStatus,
		"Order "+input.Status, "অর্ডার "+statusBN,
		"Your order "+orderID+" has been "+input.Status,
		"আপনার অর্ডার "+orderID+" "+statusBN,
		orderID, sms)

	return models.OrderFromRow(updated[0]), nil
}

// SoftDelete moves an order to the recycle bin.
func (s *OrderService) SoftDelete(orderID string) error {
	if _, err := s.Get(orderID); err != nil {
		return err
	}
	if _, err := s.store.Update("orders",
		[]store.Filter{store.Eq("id", orderID)},
		store.Row{"deleted_at": utils.NowISO()}); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Restore brings an order back from the recycle bin.
func (s *OrderService) Restore(orderID string) (*models.Order, error) {
	rows, _, err := s.store.Select("orders", store.Query{Filters: []store.Filter{
		store.Eq("id", orderID),
		store.NotNull("deleted_at"),
	}})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("রিসাইকেল বিনে অর্ডার পাওয়া যায়নি (Order not found in recycle bin)")
	}

	updated, err := s.store.Update("orders",
		[]store.Filter{store.Eq("id", orderID)},
		store.Row{"deleted_at": nil})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return models.OrderFromRow(updated[0]), nil
}
