package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pattern-editor/pkg/services"
)

// ListMedia lists the media files exported into the theme.
func (h *Handler) ListMedia(c *gin.Context) {
	files, err := services.ListAssets(h.Assets, h.ContentURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list media: " + err.Error()})
		return
	}
	if files == nil {
		files = []services.MediaFile{}
	}
	c.JSON(http.StatusOK, files)
}
