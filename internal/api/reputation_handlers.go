package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gudam-backend/internal/services"
)

// GetReputation returns the derived reputation aggregate for a user.
func GetReputation(c *gin.Context) {
	userID := c.Param("id")

	rep, err := services.NewReputationService(dbClient(c)).ComputeReputation(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rep,
	})
}

// SubmitRating records a rating against a user.
func SubmitRating(c *gin.Context) {
	var input services.RatingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "অবৈধ রেটিং (Invalid rating): "+err.Error())
		return
	}

	rating, err := services.NewReputationService(dbClient(c)).SubmitRating(input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    rating,
		"message": "রেটিং সংরক্ষিত হয়েছে (Rating saved)",
	})
}

// GetUserRatings lists the ratings a user has received, newest first.
func GetUserRatings(c *gin.Context) {
	userID := c.Param("id")
	category := c.Query("category")
	page, pageSize := pageParams(c)

	ratings, total, err := services.NewReputationService(dbClient(c)).UserRatings(userID, category, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    ratings,
		"meta": gin.H{
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		},
	})
}
