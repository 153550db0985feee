package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"live-platform/internal/services"
)

type PaymentHandler struct {
	vestingService *services.VestingService
}

func NewPaymentHandler(vestingService *services.VestingService) *PaymentHandler {
	return &PaymentHandler{vestingService: vestingService}
}

// PurchaseWebhook receives completed-purchase events from the payment
// provider. A purchase by a referred user vests their referral; purchases
// by everyone else acknowledge without side effects.
func (h *PaymentHandler) PurchaseWebhook(c *gin.Context) {
	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Amount string `json:"amount" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}

	result, err := h.vestingService.VestOnPurchase(req.UserID, amount)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process purchase"})
		return
	}

	resp := gin.H{"success": true}
	if result != nil {
		resp["data"] = result
	}
	c.JSON(http.StatusOK, resp)
}
