package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/timeledger/internal/auth"
	"github.com/geocoder89/timeledger/internal/domain/category"
	"github.com/geocoder89/timeledger/internal/domain/entry"
	"github.com/geocoder89/timeledger/internal/domain/user"
	"github.com/geocoder89/timeledger/internal/domain/validation"
	"github.com/geocoder89/timeledger/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if id := ctx.GetString(middlewares.CtxRequestID); id != "" {
		return id
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details any) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details any) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusNotFound, code, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

// RespondServiceError maps an error returned by the service layer onto the
// envelope. Anything unrecognised is an opaque 500.
func RespondServiceError(ctx *gin.Context, err error) {
	if v, ok := validation.As(err); ok {
		RespondBadRequest(ctx, v.Error(), gin.H{
			"fields": []FieldError{{Field: v.Field, Rule: "invalid", Message: v.Message}},
		})
		return
	}

	switch {
	case errors.Is(err, user.ErrDuplicateUsername):
		RespondConflict(ctx, "username_taken", "Username already exists")
	case errors.Is(err, user.ErrInvalidCredentials):
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid username or password")
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "user_not_found", "User not found")
	case errors.Is(err, category.ErrNotFound):
		RespondNotFound(ctx, "category_not_found", "Category not found")
	case errors.Is(err, entry.ErrNotFoundOrForbidden):
		RespondNotFound(ctx, "entry_not_found", "Entry not found or access denied")
	case errors.Is(err, auth.ErrTokenExpired):
		RespondUnAuthorized(ctx, "token_expired", "Token has expired")
	case errors.Is(err, auth.ErrTokenMissing):
		RespondUnAuthorized(ctx, "token_missing", "Missing Authorization Header")
	case errors.Is(err, auth.ErrTokenInvalid):
		RespondUnAuthorized(ctx, "token_invalid", "Invalid token")
	default:
		RespondInternal(ctx, "Internal server error")
	}
}
