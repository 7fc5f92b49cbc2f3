package middlewares

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods  = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	corsAllowHeaders  = "Authorization,Content-Type,X-Request-Id"
	corsExposeHeaders = "X-Request-Id,Retry-After"
	corsMaxAge        = 10 * 60
)

// CORSMiddleware allows credentialed requests from the listed origins. A
// "*" entry allows any origin; it is echoed back rather than sent as "*"
// so the browser keeps sending the Authorization header. Preflights from
// origins outside the list are refused with 403.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	anyOrigin := false

	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			anyOrigin = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	isAllowed := func(origin string) bool {
		if anyOrigin {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		if origin == "" {
			ctx.Next()
			return
		}

		ctx.Writer.Header().Add("Vary", "Origin")
		ok := isAllowed(origin)
		if ok {
			ctx.Header("Access-Control-Allow-Origin", origin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Expose-Headers", corsExposeHeaders)
		}

		preflight := ctx.Request.Method == http.MethodOptions &&
			ctx.GetHeader("Access-Control-Request-Method") != ""
		if !preflight {
			ctx.Next()
			return
		}

		if !ok {
			abortWithError(ctx, http.StatusForbidden, "Origin not allowed")
			return
		}

		ctx.Header("Access-Control-Allow-Methods", corsAllowMethods)
		ctx.Header("Access-Control-Allow-Headers", corsAllowHeaders)
		ctx.Header("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
		ctx.AbortWithStatus(http.StatusNoContent)
	}
}
