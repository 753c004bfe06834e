package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/timeledger/internal/domain/user"
	"github.com/geocoder89/timeledger/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type Credentials interface {
	Register(ctx context.Context, username, password string) (user.User, error)
	Verify(ctx context.Context, username, password string) (user.User, error)
}

type TokenIssuer interface {
	Issue(username string) (string, time.Time, error)
}

type AuthHandler struct {
	creds  Credentials
	tokens TokenIssuer
	now    func() time.Time
}

func NewAuthHandler(creds Credentials, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{creds: creds, tokens: tokens, now: time.Now}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.creds.Register(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"userId":   u.ID,
		"username": u.Username,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.creds.Verify(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(u.Username)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"tokenType":   "Bearer",
		"expiresIn":   int64(expiresAt.Sub(h.now()).Seconds()),
		"userId":      u.ID,
		"username":    u.Username,
	})
}

// Me echoes the identity carried by the bearer token.
func (h *AuthHandler) Me(ctx *gin.Context) {
	username, ok := middlewares.UsernameFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "token_missing", "Missing Authorization Header")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"username": username})
}
