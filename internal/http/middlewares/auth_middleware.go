package middlewares

import (
	"errors"
	"strings"

	"github.com/geocoder89/timeledger/internal/actorctx"
	"github.com/geocoder89/timeledger/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Validate(token string) (string, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
}

func NewAuthMiddleware(tokens TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "token_missing", "Missing Authorization Header")
			return
		}

		username, err := m.tokens.Validate(raw)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				abortUnauthorized(c, "token_expired", "Token has expired")
			case errors.Is(err, auth.ErrTokenMissing):
				abortUnauthorized(c, "token_missing", "Missing Authorization Header")
			default:
				abortUnauthorized(c, "token_invalid", "Invalid token")
			}
			return
		}

		c.Set(CtxUsername, username)
		c.Request = c.Request.WithContext(actorctx.WithUsername(c.Request.Context(), username))

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	raw := strings.TrimSpace(rest)

	return raw, raw != ""
}

// UsernameFromContext returns the identity RequireAuth stored.
func UsernameFromContext(c *gin.Context) (string, bool) {
	username := c.GetString(CtxUsername)

	return username, username != ""
}
