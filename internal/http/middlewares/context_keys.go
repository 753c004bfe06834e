package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// gin context keys
const (
	CtxRequestID = "request_id"
	CtxUsername  = "auth.username"
)

// abortWithError writes the shared error envelope and stops the chain.
func abortWithError(c *gin.Context, status int, code, message string) {
	body := gin.H{
		"code":    code,
		"message": message,
	}

	if id := c.GetString(CtxRequestID); id != "" {
		body["requestId"] = id
	}

	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func abortUnauthorized(c *gin.Context, code, message string) {
	abortWithError(c, http.StatusUnauthorized, code, message)
}
