package user

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/geocoder89/timeledger/internal/domain/validation"
)

const (
	MaxUsernameLength = 100
	MinPasswordLength = 6
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	CreatedAt    time.Time `json:"createdAt"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// NormalizeUsername trims surrounding whitespace and enforces length limits.
// Usernames are case-sensitive.
func NormalizeUsername(raw string) (string, error) {
	name := strings.TrimSpace(raw)

	if name == "" || utf8.RuneCountInString(name) > MaxUsernameLength {
		return "", validation.New("username", "must be between 1 and 100 characters")
	}

	if strings.ContainsRune(name, 0) {
		return "", validation.New("username", "must not contain NUL characters")
	}

	return name, nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return validation.New("password", "must be at least 6 characters")
	}

	return nil
}
