package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/releasedesk/backend/internal/services"
	"github.com/releasedesk/backend/internal/wizard"
)

type WizardHandler struct {
	wizardService *services.WizardService
}

func NewWizardHandler(wizardService *services.WizardService) *WizardHandler {
	return &WizardHandler{wizardService: wizardService}
}

// GetWizard returns the release wizard of the session
// GET /wizard
func (h *WizardHandler) GetWizard(c *gin.Context) {
	view, err := h.wizardService.Get(c.Request.Context(), actor(c))
	respondStep(c, view, err)
}

// ResetWizard starts a new release
// POST /wizard
func (h *WizardHandler) ResetWizard(c *gin.Context) {
	view, err := h.wizardService.Reset(c.Request.Context(), actor(c))
	respondStep(c, view, err)
}

// SetReleaseInfo
// PUT /wizard/release-info
func (h *WizardHandler) SetReleaseInfo(c *gin.Context) {
	var req wizard.ReleaseInfo
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.wizardService.SetReleaseInfo(c.Request.Context(), actor(c), req)
	respondStep(c, view, err)
}

// SetTracks replaces the track list
// PUT /wizard/tracks
// Body: {"tracks": [{"name": "...", "language": "...", "genre": "..."}]}
func (h *WizardHandler) SetTracks(c *gin.Context) {
	var req struct {
		Tracks []wizard.TrackDetails `json:"tracks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.wizardService.SetTracks(c.Request.Context(), actor(c), req.Tracks)
	respondStep(c, view, err)
}

// SetTrackArtists replaces the credits of one track
// PUT /wizard/tracks/:index/artists
func (h *WizardHandler) SetTrackArtists(c *gin.Context) {
	index, ok := trackIndex(c)
	if !ok {
		return
	}
	var req wizard.TrackArtists
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.wizardService.SetTrackArtists(c.Request.Context(), actor(c), index, req)
	respondStep(c, view, err)
}

// UploadArtwork
// POST /wizard/artwork (multipart, field "file")
func (h *WizardHandler) UploadArtwork(c *gin.Context) {
	up, closer, ok := formUpload(c)
	if !ok {
		return
	}
	defer closer.Close()
	view, err := h.wizardService.AttachArtwork(c.Request.Context(), actor(c), up)
	respondStep(c, view, err)
}

// UploadTrackAudio
// POST /wizard/tracks/:index/audio (multipart, field "file")
func (h *WizardHandler) UploadTrackAudio(c *gin.Context) {
	index, ok := trackIndex(c)
	if !ok {
		return
	}
	up, closer, ok := formUpload(c)
	if !ok {
		return
	}
	defer closer.Close()
	view, err := h.wizardService.AttachTrackAudio(c.Request.Context(), actor(c), index, up)
	respondStep(c, view, err)
}

// SetReview
// PUT /wizard/review
// Body: {"confirmed": true, "remark": "..."}
func (h *WizardHandler) SetReview(c *gin.Context) {
	var req struct {
		Confirmed bool   `json:"confirmed"`
		Remark    string `json:"remark"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.wizardService.Confirm(c.Request.Context(), actor(c), req.Confirmed, req.Remark)
	respondStep(c, view, err)
}

// Next validates and submits the current step
// POST /wizard/next
func (h *WizardHandler) Next(c *gin.Context) {
	view, err := h.wizardService.Next(c.Request.Context(), actor(c))
	respondStep(c, view, err)
}

// POST /wizard/previous
func (h *WizardHandler) Previous(c *gin.Context) {
	view, err := h.wizardService.Previous(c.Request.Context(), actor(c))
	respondStep(c, view, err)
}

// POST /wizard/jump/:step
func (h *WizardHandler) JumpTo(c *gin.Context) {
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid step"})
		return
	}
	view, err := h.wizardService.JumpTo(c.Request.Context(), actor(c), step)
	respondStep(c, view, err)
}

func trackIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid track index"})
		return 0, false
	}
	return index, true
}
