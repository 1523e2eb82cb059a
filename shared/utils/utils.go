package utils

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// GenerateTransactionID returns a time-ordered UUIDv7. Within one process the
// generator is strictly monotonic, so the string form sorts in creation order
// even when several ids share a millisecond.
func GenerateTransactionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ValidateTransactionID reports whether s parses as a UUID.
func ValidateTransactionID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// TrimmedLength trims surrounding whitespace and returns the result with its
// length in characters.
func TrimmedLength(s string) (string, int) {
	trimmed := strings.TrimSpace(s)
	return trimmed, utf8.RuneCountInString(trimmed)
}
