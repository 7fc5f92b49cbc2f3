package caption

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("caption not found")

// ListLimit caps how many captions a history listing returns.
const ListLimit = 50

type Caption struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Text      string    `json:"caption"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// MaxImageBytes is the largest upload accepted for captioning.
const MaxImageBytes = 5 << 20

var (
	ErrNoImage          = errors.New("no image uploaded")
	ErrUnsupportedImage = errors.New("invalid file type. Only JPEG, PNG, and GIF are allowed")
	ErrImageTooLarge    = errors.New("file size exceeds 5MB limit")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// ImageExtension maps an accepted upload content type to the file extension
// it is stored under.
func ImageExtension(contentType string) (string, bool) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// ValidateImage applies the upload rules for content type and size.
func ValidateImage(contentType string, size int64) error {
	if size <= 0 {
		return ErrNoImage
	}
	if _, ok := ImageExtension(contentType); !ok {
		return ErrUnsupportedImage
	}
	if size > MaxImageBytes {
		return ErrImageTooLarge
	}
	return nil
}
