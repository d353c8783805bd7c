package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// apiKeyBytes gives 256 bits of entropy per generated key.
const apiKeyBytes = 32

// GenerateAPIKey returns a URL-safe random key for the X-Api-Key gate.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
