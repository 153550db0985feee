package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"live-platform/internal/auth"
	"live-platform/internal/services"
)

type ReferralHandler struct {
	referralService *services.ReferralService
	vestingService  *services.VestingService
}

func NewReferralHandler(referralService *services.ReferralService, vestingService *services.VestingService) *ReferralHandler {
	return &ReferralHandler{
		referralService: referralService,
		vestingService:  vestingService,
	}
}

// GetReferralCode returns user's referral code
func (h *ReferralHandler) GetReferralCode(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	code, err := h.referralService.GetUserReferralCode(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get referral code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    code,
	})
}

// RecordClick records an unauthenticated visit carrying a referral code.
// The browser-side capture script posts here when it first sees the code.
func (h *ReferralHandler) RecordClick(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.referralService.RecordClick(req.Code); err != nil {
		if errors.Is(err, services.ErrInvalidReferralCode) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record click"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ApplyReferralCode attributes the current user's signup to a referral code
func (h *ReferralHandler) ApplyReferralCode(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.referralService.AttributeSignup(req.Code, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidReferralCode):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrSelfReferral), errors.Is(err, services.ErrAlreadyReferred):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply referral code"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Referral code applied successfully",
	})
}

// GetReferrals returns all referrals for the current user
func (h *ReferralHandler) GetReferrals(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	referrals, err := h.referralService.GetUserReferrals(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get referrals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    referrals,
		"count":   len(referrals),
	})
}

// MarkActive records the qualifying-activity event for a referred user.
// Repeated deliveries are no-ops.
func (h *ReferralHandler) MarkActive(c *gin.Context) {
	var req struct {
		ReferredID uint `json:"referred_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.referralService.MarkActive(req.ReferredID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark referral active"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GrantRewards advances a referral to rewarded and credits both sides.
// Repeated deliveries credit nothing.
func (h *ReferralHandler) GrantRewards(c *gin.Context) {
	var req struct {
		ReferrerID uint `json:"referrer_id" binding:"required"`
		ReferredID uint `json:"referred_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.referralService.GrantRewards(req.ReferrerID, req.ReferredID); err != nil {
		if errors.Is(err, services.ErrInvalidReferralCode) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Referral not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grant rewards"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Vest releases a rewarded referral's pending gems into the referrer's
// cashable wallet. Calling it for an already-vested referral is a soft
// success reporting already_vested.
func (h *ReferralHandler) Vest(c *gin.Context) {
	var req struct {
		ReferrerID uint `json:"referrer_id" binding:"required"`
		ReferredID uint `json:"referred_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.vestingService.Vest(req.ReferrerID, req.ReferredID, "manual vest")
	if err != nil {
		if errors.Is(err, services.ErrReferralNotEligible) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vest referral"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
