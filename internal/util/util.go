// Package util provides small helpers shared across the server.
package util

import (
	"github.com/google/uuid"
)

// GenUUID generates a new UUID string.
func GenUUID() string {
	return uuid.NewString()
}

// TruncateRunes truncates s to at most limit runes, appending an ellipsis
// when anything was cut off. Multi-byte input is never split mid-rune.
func TruncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
