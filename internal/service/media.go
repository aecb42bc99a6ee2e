package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	apperrors "blogapi/internal/errors"
	"blogapi/internal/storage"
)

const (
	postImagePrefix      = "blog_images"
	profilePicturePrefix = "profile_pics"
)

// ImageStore is the part of object storage the services use.
type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// Upload is an image file received with a request.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Media stores uploaded images and removes replaced ones.
// A Media without a store rejects every upload.
type Media struct {
	store    ImageStore
	maxBytes int64
	log      *slog.Logger
}

// NewMedia wraps store. store may be nil when uploads are disabled.
func NewMedia(store ImageStore, maxBytes int64, log *slog.Logger) *Media {
	if log == nil {
		log = slog.Default()
	}
	return &Media{store: store, maxBytes: maxBytes, log: log}
}

// save validates and stores up under prefix and returns the object key.
// A nil upload stores nothing and returns "".
func (m *Media) save(ctx context.Context, field, prefix string, up *Upload) (string, error) {
	if up == nil {
		return "", nil
	}
	if m == nil || m.store == nil {
		return "", apperrors.NewValidationError(field, "Image uploads are not enabled.")
	}
	if m.maxBytes > 0 && up.Size > m.maxBytes {
		return "", apperrors.NewValidationError(field,
			fmt.Sprintf("Ensure this file is no larger than %d bytes.", m.maxBytes))
	}
	if up.Size == 0 {
		return "", apperrors.NewValidationError(field, "The submitted file is empty.")
	}

	contentType, ext, body, err := storage.SniffImage(up.Content)
	if err != nil {
		if errors.Is(err, storage.ErrNotAnImage) {
			return "", apperrors.NewValidationError(field,
				"Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		}
		return "", fmt.Errorf("read upload: %w", err)
	}

	key := storage.ObjectKey(prefix, ext)
	if err := m.store.Put(ctx, key, io.LimitReader(body, up.Size), up.Size, contentType); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return key, nil
}

// remove deletes key best-effort. Failures are logged, never returned.
func (m *Media) remove(ctx context.Context, key *string) {
	if m == nil || m.store == nil || key == nil || *key == "" {
		return
	}
	if err := m.store.Delete(ctx, *key); err != nil {
		m.log.WarnContext(ctx, "failed to delete image", "key", *key, "error", err)
	}
}

// Open returns the stored image under key for serving. Keys outside the
// post image and profile picture folders, missing objects, and a Media
// without a store all yield NotFound.
func (m *Media) Open(ctx context.Context, key string) (*storage.Object, error) {
	if m == nil || m.store == nil || !isMediaKey(key) {
		return nil, apperrors.NotFound("Not found.")
	}
	obj, err := m.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NotFound("Not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	return obj, nil
}

// isMediaKey accepts "<folder>/<name>" for the folders uploads are written to.
func isMediaKey(key string) bool {
	if key == "" || path.Clean(key) != key {
		return false
	}
	folder, name, ok := strings.Cut(key, "/")
	if !ok || name == "" || name == ".." || strings.Contains(name, "/") {
		return false
	}
	return folder == postImagePrefix || folder == profilePicturePrefix
}
