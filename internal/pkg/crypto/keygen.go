// Package crypto provides key generation utilities for Pluginverse.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecret generates a random secret of n bytes, returned as a hex
// string. Used to mint JWT signing secrets for new deployments.
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("secret length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
