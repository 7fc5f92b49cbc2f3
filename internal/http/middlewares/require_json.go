package middlewares

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireContentType rejects write requests whose media type is not one of
// types with 415. Parameters such as charset or boundary are ignored.
// Bodiless DELETEs are not checked.
func RequireContentType(types ...string) gin.HandlerFunc {
	accepted := make(map[string]struct{}, len(types))
	for _, t := range types {
		accepted[t] = struct{}{}
	}

	msg := "Content-Type must be " + types[0]
	if len(types) > 1 {
		msg = "Unsupported Content-Type"
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		mt, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if _, ok := accepted[mt]; err != nil || !ok {
			abortWithError(c, http.StatusUnsupportedMediaType, msg)
			return
		}

		c.Next()
	}
}

// RequireJSON is RequireContentType for JSON route groups.
func RequireJSON() gin.HandlerFunc {
	return RequireContentType("application/json")
}
