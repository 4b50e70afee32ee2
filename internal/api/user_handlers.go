package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gudam-backend/internal/services"
)

// GetMe returns the authenticated user's profile.
func GetMe(c *gin.Context) {
	user, err := userService(c).Get(c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// GetUser returns a user profile by id.
func GetUser(c *gin.Context) {
	user, err := userService(c).Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// UpdateUser applies a partial profile update.
func UpdateUser(c *gin.Context) {
	var input services.UpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "অবৈধ অনুরোধ (Invalid request): "+err.Error())
		return
	}

	user, err := userService(c).Update(c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
		"message": "প্রোফাইল আপডেট হয়েছে (Profile updated)",
	})
}

// ListUsers lists users, optionally filtered by role.
func ListUsers(c *gin.Context) {
	page, pageSize := pageParams(c)

	users, total, err := userService(c).List(c.Query("role"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    users,
		"meta": gin.H{
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		},
	})
}
