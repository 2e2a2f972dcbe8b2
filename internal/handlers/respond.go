package handlers

import (
	"net/http"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/releasedesk/backend/internal/middleware"
	"github.com/releasedesk/backend/internal/pkg/audio"
	"github.com/releasedesk/backend/internal/services"
	"github.com/releasedesk/backend/internal/session"
	"github.com/releasedesk/backend/internal/wizard"
)

func actor(c *gin.Context) services.Actor {
	return services.Actor{
		Session:   middleware.CurrentSession(c),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// respondError maps service errors to HTTP responses
func respondError(c *gin.Context, err error) {
	var fe wizard.FieldErrors
	if errors.As(err, &fe) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed", "fields": fe})
		return
	}

	var ue *services.UpstreamError
	if errors.As(err, &ue) {
		status := ue.StatusCode
		if status >= http.StatusInternalServerError || status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": ue.Message})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.IsAny(err, session.ErrNotFound, services.ErrInvalidToken, services.ErrTokenRevoked):
		status = http.StatusUnauthorized
	case errors.IsAny(err, session.ErrBusy, services.ErrReleaseLocked, services.ErrReleaseNotCreated):
		status = http.StatusConflict
	case errors.IsAny(err, wizard.ErrInvalidStep, wizard.ErrAtFirstStep, wizard.ErrAtLastStep, wizard.ErrTrackIndex, services.ErrEmptyUpload, services.ErrUnknownSort):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUnsupportedMedia):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, services.ErrUploadTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, audio.ErrNoAudio):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": errors.UnwrapAll(err).Error()})
}

// respondStep answers a wizard operation with the wizard view. An incomplete
// step still returns the view so the browser can show the field errors.
func respondStep(c *gin.Context, view interface{}, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, view)
	case errors.Is(err, wizard.ErrStepIncomplete) && view != nil:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Step is incomplete", "wizard": view})
	default:
		respondError(c, err)
	}
}
