package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// pathID returns the :id parameter when it is a well-formed UUID. Callers
// answer a malformed id exactly like a missing resource.
func pathID(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
