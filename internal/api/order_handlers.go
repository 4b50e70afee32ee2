package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gudam-backend/internal/services"
)

func orderService(c *gin.Context) *services.OrderService {
	return services.NewOrderService(dbClient(c), notifier(c))
}

// CreateOrder places an order against a listing.
func CreateOrder(c *gin.Context) {
	var input services.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "অবৈধ অর্ডার তথ্য (Invalid order data): "+err.Error())
		return
	}

	order, err := orderService(c).Create(input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
		"message": "অর্ডার সফলভাবে দেওয়া হয়েছে (Order placed successfully)",
	})
}

// GetOrder returns one order.
func GetOrder(c *gin.Context) {
	order, err := orderService(c).Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders returns orders filtered by party or status.
func ListOrders(c *gin.Context) {
	page, pageSize := pageParams(c)
	opts := services.ListOrdersOptions{
		FarmerID: c.Query("farmer_id"),
		BuyerID:  c.Query("buyer_id"),
		AgentID:  c.Query("agent_id"),
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	}

	orders, total, err := orderService(c).List(opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
		"meta": gin.H{
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		},
	})
}

// UpdateOrderStatus moves an order through its lifecycle.
func UpdateOrderStatus(c *gin.Context) {
	var input services.UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "status প্রয়োজন (status is required)")
		return
	}

	order, err := orderService(c).UpdateStatus(c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
		"message": "অর্ডারের অবস্থা আপডেট হয়েছে (Order status updated)",
	})
}

// DeleteOrder moves an order to the recycle bin.
func DeleteOrder(c *gin.Context) {
	if err := orderService(c).SoftDelete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "অর্ডার রিসাইকেল বিনে সরানো হয়েছে (Order moved to recycle bin)",
	})
}

// RestoreOrder brings an order back from the recycle bin.
func RestoreOrder(c *gin.Context) {
	order, err := orderService(c).Restore(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
		"message": "অর্ডার পুনরুদ্ধার করা হয়েছে (Order restored successfully)",
	})
}
