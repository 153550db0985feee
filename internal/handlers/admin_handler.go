package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"live-platform/internal/models"
	"live-platform/internal/services"
)

type AdminHandler struct {
	db              *gorm.DB
	referralService *services.ReferralService
}

func NewAdminHandler(db *gorm.DB, referralService *services.ReferralService) *AdminHandler {
	return &AdminHandler{
		db:              db,
		referralService: referralService,
	}
}

// AdminMiddleware checks if the authenticated user is an admin
func (h *AdminHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		var user models.User
		err := h.db.Where("id = ? AND is_admin = ?", userID.(uint), true).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusForbidden, gin.H{"error": "Not an admin"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check admin access"})
			}
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUnvestedReferrals lists rewarded referrals whose payout has not vested yet
func (h *AdminHandler) GetUnvestedReferrals(c *gin.Context) {
	referrals, err := h.referralService.ListUnvested()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get unvested referrals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    referrals,
		"count":   len(referrals),
	})
}
