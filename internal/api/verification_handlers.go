package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gudam-backend/internal/services"
)

func verificationService(c *gin.Context) *services.VerificationService {
	return services.NewVerificationService(dbClient(c), notifier(c))
}

// StartVerification assigns an agent to inspect a product listing.
func StartVerification(c *gin.Context) {
	productID := c.Param("productId")

	var input services.StartVerificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "অবৈধ অনুরোধ (Invalid request): "+err.Error())
		return
	}

	verification, err := verificationService(c).Start(productID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    verification,
		"message": "যাচাই শুরু হয়েছে (Verification started)",
	})
}

// UpdateVerificationStatus applies an agent's findings to a verification.
func UpdateVerificationStatus(c *gin.Context) {
	verificationID := c.Param("id")

	var input services.StatusUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "অবৈধ অনুরোধ (Invalid request): "+err.Error())
		return
	}

	verification, err := verificationService(c).UpdateStatus(verificationID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    verification,
		"message": services.StatusMessage(input.Status),
	})
}

// GetVerification returns one verification with its product attached.
func GetVerification(c *gin.Context) {
	verification, product, err := verificationService(c).Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"verification": verification,
			"product":      product,
		},
	})
}

// ListVerifications returns verifications filtered by status and/or agent.
func ListVerifications(c *gin.Context) {
	page, pageSize := pageParams(c)
	opts := services.ListVerificationsOptions{
		Status:   c.Query("status"),
		AgentID:  c.Query("agent_id"),
		Page:     page,
		PageSize: pageSize,
	}

	items, total, err := verificationService(c).List(opts)
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
