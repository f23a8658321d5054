package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID returns a short id, the first 8 hex chars of a random uuid.
func GenerateUUID() string {
	uuidStr := uuid.New().String()
	return strings.ReplaceAll(uuidStr, "-", "")[:8]
}

// GenerateUID returns a full, time ordered uuid string.
func GenerateUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
