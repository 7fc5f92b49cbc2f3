// Package storage persists uploaded images and hands back the URL they are
// served from.
package storage

import (
	"context"
	"errors"

	"github.com/geocoder89/captionhub/internal/domain/caption"
	"github.com/google/uuid"
)

var ErrForeignRef = errors.New("image reference not owned by this store")

type ImageStore interface {
	// Save stores data and returns its public reference.
	Save(ctx context.Context, contentType string, data []byte) (string, error)
	// Delete removes the object behind a reference Save returned.
	Delete(ctx context.Context, ref string) error
}

// objectName builds a fresh "<uuid><ext>" name for an accepted content type.
func objectName(contentType string) (string, error) {
	ext, ok := caption.ImageExtension(contentType)
	if !ok {
		return "", caption.ErrUnsupportedImage
	}
	return uuid.NewString() + ext, nil
}
