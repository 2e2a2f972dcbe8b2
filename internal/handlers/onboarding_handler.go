package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/services"
)

type OnboardingHandler struct {
	onboardingService *services.OnboardingService
}

func NewOnboardingHandler(onboardingService *services.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{onboardingService: onboardingService}
}

// GET /onboarding
func (h *OnboardingHandler) GetOnboarding(c *gin.Context) {
	view, err := h.onboardingService.Get(c.Request.Context(), actor(c))
	respondStep(c, view, err)
}

// POST /onboarding
func (h *OnboardingHandler) ResetOnboarding(c *gin.Context) {
	view, err := h.onboardingService.Reset(c.Request.Context(), actor(c))
	respondStep(c, view, err)
}

// SetStep overwrites the fields of one step
// PUT /onboarding/steps/:step where step is profile, address or bank
func (h *OnboardingHandler) SetStep(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		view *services.OnboardingView
		err  error
	)

	switch c.Param("step") {
	case "profile":
		var req models.Profile
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		view, err = h.onboardingService.SetProfile(ctx, actor(c), req)
	case "address":
		var req models.Address
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		view, err = h.onboardingService.SetAddress(ctx, actor(c), req)
	case "bank":
		var req models.BankDetails
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		view, err = h.onboardingService.SetBank(ctx, actor(c), req)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown onboarding step"})
		return
	}
	respondStep(c, view, err)
}

// UploadDocument stages a KYC document
// POST /onboarding/documents (multipart, fields "kind" and "file")
func (h *OnboardingHandler) UploadDocument(c *gin.Context) {
	kind := c.PostForm("kind")
	up, closer, ok := formUpload(c)
	if !ok {
		return
	}
	defer closer.Close()
	view, err := h.onboardingService.AttachDocument(c.Request.Context(), actor(c), kind, up)
	respondStep(c, view, err)
}

// POST /onboarding/next
func (h *OnboardingHandler) Next(c *gin.Context) {
	view, err := h.onboardingService.Next(c.Request.Context(), actor(c))
	respondStep(c, view, err)
}

// POST /onboarding/previous
func (h *OnboardingHandler) Previous(c *gin.Context) {
	view, err := h.onboardingService.Previous(c.Request.Context(), actor(c))
	respondStep(c, view, err)
}

// POST /onboarding/jump/:step
func (h *OnboardingHandler) JumpTo(c *gin.Context) {
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid step"})
		return
	}
	view, err := h.onboardingService.JumpTo(c.Request.Context(), actor(c), step)
	respondStep(c, view, err)
}
