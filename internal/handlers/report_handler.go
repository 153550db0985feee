package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"live-platform/internal/auth"
	"live-platform/internal/services"
)

type ReportHandler struct {
	suspensionService *services.SuspensionService
}

func NewReportHandler(suspensionService *services.SuspensionService) *ReportHandler {
	return &ReportHandler{suspensionService: suspensionService}
}

// SubmitReport files an abuse report against another user
func (h *ReportHandler) SubmitReport(c *gin.Context) {
	reporterID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		ReportedID  uint   `json:"reported_id" binding:"required"`
		RoomID      *uint  `json:"room_id"`
		Category    string `json:"category" binding:"required"`
		Description string `json:"description"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.suspensionService.SubmitReport(reporterID, req.ReportedID,
		req.RoomID, req.Category, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSelfReport), errors.Is(err, services.ErrInvalidCategory):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrDuplicateReport):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit report"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"report_count":   outcome.ReportCount,
			"user_suspended": outcome.Suspended,
		},
	})
}
