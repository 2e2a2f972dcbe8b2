package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/releasedesk/backend/internal/services"
)

// formUpload opens the "file" part of a multipart request. The caller closes
// the returned closer.
func formUpload(c *gin.Context) (services.Upload, io.Closer, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return services.Upload{}, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read upload"})
		return services.Upload{}, nil, false
	}
	return services.Upload{Filename: fh.Filename, Size: fh.Size, Body: f}, f, true
}
