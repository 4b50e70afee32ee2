package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gudam-backend/internal/services"
)

func userService(c *gin.Context) *services.UserService {
	return services.NewUserService(dbClient(c), authService(c))
}

// Register creates a new account and returns it with a signed token.
func Register(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "অবৈধ নিবন্ধন তথ্য (Invalid registration data): "+err.Error())
		return
	}

	user, token, err := userService(c).Register(input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"user":  user,
			"token": token,
		},
		"message": "নিবন্ধন সফল হয়েছে (Registration successful)",
	})
}

// Login authenticates with phone and password.
func Login(c *gin.Context) {
	var input services.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "ফোন নম্বর এবং পাসওয়ার্ড প্রয়োজন (Phone and password required)")
		return
	}

	user, token, err := userService(c).Login(input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"user":  user,
			"token": token,
		},
		"message": "লগইন সফল (Login successful)",
	})
}

// ChangePassword updates the authenticated user's password.
func ChangePassword(c *gin.Context) {
	var input struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "অবৈধ অনুরোধ (Invalid request): "+err.Error())
		return
	}

	userID := c.GetString("userID")
	if err := userService(c).ChangePassword(userID, input.CurrentPassword, input.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "পাসওয়ার্ড পরিবর্তন হয়েছে (Password changed)",
	})
}
