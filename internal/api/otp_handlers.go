package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gudam-backend/internal/services"
	"gudam-backend/internal/store"
	"gudam-backend/internal/utils"
)

func otpService(c *gin.Context) *services.OTPService {
	return services.NewOTPService(otpStore(c), notifier(c))
}

// SendOTP issues a fresh verification code to the user's phone.
func SendOTP(c *gin.Context) {
	var input struct {
		UserID string `json:"user_id" binding:"required"`
		Phone  string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "user_id এবং phone প্রয়োজন (user_id and phone are required)")
		return
	}

	phone := utils.NormalizeBDPhone(input.Phone)
	sent := otpService(c).Send(input.UserID, phone)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"sms_sent": sent},
		"message": "OTP পাঠানো হয়েছে (OTP sent)",
	})
}

// VerifyOTP checks a submitted code and marks the user's phone verified.
func VerifyOTP(c *gin.Context) {
	var input struct {
		UserID string `json:"user_id" binding:"required"`
		Phone  string `json:"phone" binding:"required"`
		Code   string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "user_id, phone এবং code প্রয়োজন (user_id, phone and code are required)")
		return
	}

	phone := utils.NormalizeBDPhone(input.Phone)
	if err := otpService(c).Verify(input.UserID, phone, input.Code); err != nil {
		respondError(c, err)
		return
	}

	// Code accepted, mark the account verified.
	if _, err := dbClient(c).Update("users",
		[]store.Filter{store.Eq("id", input.UserID)},
		store.Row{"is_verified": true}); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "ফোন নম্বর যাচাই সম্পন্ন (Phone number verified)",
	})
}
