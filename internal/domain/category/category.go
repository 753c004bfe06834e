package category

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/geocoder89/timeledger/internal/domain/validation"
)

const MaxNameLength = 100

var ErrNotFound = errors.New("category not found")

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)

	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", validation.New("name", "must be between 1 and 100 characters")
	}

	if strings.ContainsRune(name, 0) {
		return "", validation.New("name", "must not contain NUL characters")
	}

	return name, nil
}
