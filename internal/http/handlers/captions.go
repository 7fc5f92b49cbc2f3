package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/geocoder89/captionhub/internal/domain/caption"
	"github.com/geocoder89/captionhub/internal/domain/user"
	"github.com/geocoder89/captionhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const (
	imageField         = "image"
	msgCaptionNotFound = "Caption not found"
	msgCaptionUpstream = "Failed to generate caption"
	msgNoImage         = "No image uploaded"
	cleanupTimeout     = storeTimeout
)

type CaptionsHandler struct {
	captions  CaptionStore
	captioner ImageCaptioner
	images    ImageStore
	log       *slog.Logger
}

func NewCaptionsHandler(captions CaptionStore, captioner ImageCaptioner, images ImageStore, log *slog.Logger) *CaptionsHandler {
	if log == nil {
		log = slog.Default()
	}

	return &CaptionsHandler{
		captions:  captions,
		captioner: captioner,
		images:    images,
		log:       log,
	}
}

// Create captions the uploaded image first; nothing is stored unless the
// provider succeeds, and a failed insert removes the stored image again.
func (h *CaptionsHandler) Create(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	contentType, data, err := readImage(ctx)
	if err != nil {
		switch {
		case errors.Is(err, caption.ErrNoImage):
			RespondBadRequest(ctx, msgNoImage)
		case errors.Is(err, caption.ErrUnsupportedImage):
			RespondBadRequest(ctx, "Invalid file type. Only JPEG, PNG, and GIF are allowed")
		case errors.Is(err, caption.ErrImageTooLarge):
			RespondBadRequest(ctx, "File size exceeds 5MB limit")
		default:
			RespondInternal(ctx, h.log, "Could not read upload", err)
		}
		return
	}

	text, err := h.captioner.Caption(ctx.Request.Context(), data)
	if err != nil {
		h.log.WarnContext(ctx.Request.Context(), "caption generation failed",
			"error", err,
			"user_id", userID,
		)
		RespondError(ctx, http.StatusBadGateway, msgCaptionUpstream)
		return
	}

	cctx, cancel := requestTimeout(ctx, storeTimeout)
	defer cancel()

	ref, err := h.images.Save(cctx, contentType, data)
	if err != nil {
		RespondInternal(ctx, h.log, "Could not store image", err)
		return
	}

	c, err := h.captions.Create(cctx, userID, text, ref)
	if err != nil {
		h.removeImage(ref)

		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, msgUserNotFound)
			return
		}
		RespondInternal(ctx, h.log, "Could not save caption", err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Caption generated successfully",
		"caption": c,
	})
}

func (h *CaptionsHandler) List(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	cctx, cancel := requestTimeout(ctx, storeTimeout)
	defer cancel()

	items, err := h.captions.ListOwned(cctx, userID, caption.ListLimit)
	if err != nil {
		RespondInternal(ctx, h.log, "Could not list captions", err)
		return
	}
	if items == nil {
		items = []caption.Caption{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"captions": items,
		"count":    len(items),
	})
}

func (h *CaptionsHandler) Get(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	id, ok := pathID(ctx)
	if !ok {
		RespondNotFound(ctx, msgCaptionNotFound)
		return
	}

	cctx, cancel := requestTimeout(ctx, storeTimeout)
	defer cancel()

	c, err := h.captions.GetOwned(cctx, id, userID)
	if err != nil {
		if errors.Is(err, caption.ErrNotFound) {
			RespondNotFound(ctx, msgCaptionNotFound)
			return
		}
		RespondInternal(ctx, h.log, "Could not load caption", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"caption": c})
}

func (h *CaptionsHandler) Delete(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	id, ok := pathID(ctx)
	if !ok {
		RespondNotFound(ctx, msgCaptionNotFound)
		return
	}

	cctx, cancel := requestTimeout(ctx, storeTimeout)
	defer cancel()

	c, err := h.captions.DeleteOwned(cctx, id, userID)
	if err != nil {
		if errors.Is(err, caption.ErrNotFound) {
			RespondNotFound(ctx, msgCaptionNotFound)
			return
		}
		RespondInternal(ctx, h.log, "Could not delete caption", err)
		return
	}

	h.removeImage(c.ImageURL)

	ctx.JSON(http.StatusOK, gin.H{"message": "Caption deleted successfully"})
}

// removeImage is best effort and detached from the request so a client
// hanging up does not leave the file behind.
func (h *CaptionsHandler) removeImage(ref string) {
	cctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if err := h.images.Delete(cctx, ref); err != nil {
		h.log.Warn("image cleanup failed", "ref", ref, "error", err)
	}
}

func readImage(ctx *gin.Context) (string, []byte, error) {
	fh, err := ctx.FormFile(imageField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", nil, caption.ErrImageTooLarge
		}
		return "", nil, caption.ErrNoImage
	}

	contentType := strings.ToLower(strings.TrimSpace(fh.Header.Get("Content-Type")))
	if err := caption.ValidateImage(contentType, fh.Size); err != nil {
		return "", nil, err
	}

	data, err := readPart(fh)
	if err != nil {
		return "", nil, err
	}

	return contentType, data, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, caption.MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > caption.MaxImageBytes {
		return nil, caption.ErrImageTooLarge
	}
	if len(data) == 0 {
		return nil, caption.ErrNoImage
	}

	return data, nil
}
