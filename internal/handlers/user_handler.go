package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/releasedesk/backend/internal/middleware"
	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/services"
)

// SubmissionLister reads the submission log
type SubmissionLister interface {
	ListForUser(ctx context.Context, userID string, page, limit int, action string) ([]models.SubmissionLog, int64, error)
}

type UserHandler struct {
	userService *services.UserService
	submissions SubmissionLister
}

func NewUserHandler(userService *services.UserService, submissions SubmissionLister) *UserHandler {
	return &UserHandler{userService: userService, submissions: submissions}
}

// GetProfile returns the signed-in artist from the session
func (h *UserHandler) GetProfile(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"user":       sess.User,
		"currency":   sess.Currency,
		"currencies": services.SupportedCurrencies,
	})
}

// UpdateProfile forwards the changed profile fields
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req services.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}

// SetCurrency changes the earnings display currency
func (h *UserHandler) SetCurrency(c *gin.Context) {
	var req struct {
		Currency string `json:"currency" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := middleware.CurrentSession(c)
	if err := h.userService.SetCurrency(c.Request.Context(), sess, req.Currency); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currency": sess.Currency})
}

// GetSubmissions lists the artist's own submission log
func (h *UserHandler) GetSubmissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	logs, total, err := h.submissions.ListForUser(c.Request.Context(), middleware.CurrentSession(c).UserID, page, limit, c.Query("action"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": logs,
		"total":       total,
		"page":        page,
		"limit":       limit,
	})
}
