package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Every error leaves the API as {"error": "..."}; validation failures add
// an "errors" list.

func RespondError(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"error": message})
}

func RespondValidation(ctx *gin.Context, message string, fields []FieldError) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"error":  message,
		"errors": fields,
	})
}

func RespondBadRequest(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusBadRequest, message)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message)
}

// RespondInternal logs err against the request context, which carries the
// request id, and answers with a generic message so internals never reach
// the client.
func RespondInternal(ctx *gin.Context, log *slog.Logger, message string, err error) {
	if log == nil {
		log = slog.Default()
	}

	log.ErrorContext(ctx.Request.Context(), "request failed",
		"error", err,
		"path", ctx.FullPath(),
	)

	RespondError(ctx, http.StatusInternalServerError, message)
}
