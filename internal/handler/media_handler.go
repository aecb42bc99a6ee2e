package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"blogapi/internal/storage"
)

// Uploaded objects are written once under a fresh key and never modified.
const mediaCacheControl = "public, max-age=31536000, immutable"

// MediaSource opens stored images by key.
type MediaSource interface {
	Open(ctx context.Context, key string) (*storage.Object, error)
}

// MediaHandler serves uploaded post images and profile pictures.
type MediaHandler struct {
	media MediaSource
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(media MediaSource) *MediaHandler {
	return &MediaHandler{media: media}
}

// ServeMedia godoc
// @Summary Download an uploaded image
// @Description Keys look like blog_images/<name> or profile_pics/<name>, as stored on posts and profiles.
// @Tags media
// @Produce octet-stream
// @Param key path string true "Object key"
// @Success 200 {file} binary
// @Failure 404 {object} errors.ErrorResponse
// @Router /media/{key} [get]
func (h *MediaHandler) ServeMedia(c echo.Context) error {
	obj, err := h.media.Open(c.Request().Context(), c.Param("*"))
	if err != nil {
		return err
	}
	defer obj.Body.Close()

	header := c.Response().Header()
	header.Set(echo.HeaderCacheControl, mediaCacheControl)
	if obj.Size >= 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(obj.Size, 10))
	}
	return c.Stream(http.StatusOK, obj.ContentType, obj.Body)
}
