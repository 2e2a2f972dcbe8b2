package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/services"
)

type ReleaseHandler struct {
	releaseService *services.ReleaseService
	reportService  *services.ReportService
}

func NewReleaseHandler(releaseService *services.ReleaseService, reportService *services.ReportService) *ReleaseHandler {
	return &ReleaseHandler{releaseService: releaseService, reportService: reportService}
}

// GetReleases lists releases for the dashboard table
// GET /releases?status=&page=&limit=&sort=&order=
func (h *ReleaseHandler) GetReleases(c *gin.Context) {
	var status models.ReleaseStatus
	if s := c.Query("status"); s != "" {
		parsed, err := models.ParseReleaseStatus(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status = parsed
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := h.releaseService.List(c.Request.Context(), actor(c), services.ListOptions{
		Status: status,
		Page:   page,
		Limit:  limit,
		Sort:   c.Query("sort"),
		Order:  c.Query("order"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSummary returns the release count per status
// GET /releases/summary
func (h *ReleaseHandler) GetSummary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"summary": h.releaseService.Summary(c.Request.Context(), actor(c))})
}

// GET /releases/:id
func (h *ReleaseHandler) GetRelease(c *gin.Context) {
	release, err := h.releaseService.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, release)
}

// GET /releases/:id/artists
func (h *ReleaseHandler) GetReleaseArtists(c *gin.Context) {
	artists, err := h.releaseService.Artists(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artists": artists})
}

// SubmitRelease sends a draft for review
// POST /releases/:id/submit
// Body: {"remark": "..."} (optional)
func (h *ReleaseHandler) SubmitRelease(c *gin.Context) {
	var req struct {
		Remark string `json:"remark"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	release, err := h.releaseService.SubmitForReview(c.Request.Context(), actor(c), c.Param("id"), req.Remark)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, release)
}

// GetReleaseSummaryPDF renders the printable summary with a QR code
// GET /releases/:id/summary.pdf
func (h *ReleaseHandler) GetReleaseSummaryPDF(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	release, err := h.releaseService.Get(ctx, actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	artists, err := h.releaseService.Artists(ctx, actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	pdf, err := h.reportService.ReleaseSummaryPDF(release, artists)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=release_%s.pdf", id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
