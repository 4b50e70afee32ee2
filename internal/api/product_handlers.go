package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gudam-backend/internal/services"
)

func productService(c *gin.Context) *services.ProductService {
	return services.NewProductService(dbClient(c), notifier(c))
}

// CreateProduct lists a new product for verification.
func CreateProduct(c *gin.Context) {
	var input services.CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "অবৈধ পণ্য তথ্য (Invalid product data): "+err.Error())
		return
	}

	product, err := productService(c).Create(input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    product,
		"message": "পণ্য সফলভাবে তালিকাভুক্ত হয়েছে (Product listed successfully)",
	})
}

// GetProduct returns one listing.
func GetProduct(c *gin.Context) {
	product, err := productService(c).Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    product,
	})
}

// ListProducts returns listings filtered by category, status, farmer or name.
func ListProducts(c *gin.Context) {
	page, pageSize := pageParams(c)
	opts := services.ListProductsOptions{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		FarmerID: c.Query("farmer_id"),
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	}

	products, total, err := productService(c).List(opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
		"meta": gin.H{
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		},
	})
}

// UpdateProduct applies a partial listing update.
func UpdateProduct(c *gin.Context) {
	var input services.UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "অবৈধ অনুরোধ (Invalid request): "+err.Error())
		return
	}

	product, err := productService(c).Update(c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    product,
		"message": "পণ্য আপডেট হয়েছে (Product updated)",
	})
}

// DeleteProduct soft-deletes a listing.
func DeleteProduct(c *gin.Context) {
	if err := productService(c).SoftDelete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "পণ্য মুছে ফেলা হয়েছে (Product deleted)",
	})
}

// RestoreProduct clears a listing's deletion mark.
func RestoreProduct(c *gin.Context) {
	product, err := productService(c).Restore(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    product,
		"message": "পণ্য পুনরুদ্ধার হয়েছে (Product restored)",
	})
}
