package middlewares

import "github.com/gin-gonic/gin"

const CtxIdentity = "auth.identity"

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
