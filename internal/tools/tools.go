// Package tools holds the small text utilities offered next to the cleaner.
package tools

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EncodeBase64 returns the standard padded encoding of text.
func EncodeBase64(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// DecodeBase64 decodes standard or URL-safe input, padded or not. Embedded
// whitespace is ignored.
func DecodeBase64(encoded string) (string, error) {
	s := strings.Join(strings.Fields(encoded), "")
	if s == "" {
		return "", nil
	}

	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var firstErr error
	for _, enc := range encodings {
		out, err := enc.DecodeString(s)
		if err == nil {
			return string(out), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", fmt.Errorf("invalid base64 input: %w", firstErr)
}

// NewUUID returns a random (version 4) UUID.
func NewUUID() string {
	return uuid.New().String()
}
