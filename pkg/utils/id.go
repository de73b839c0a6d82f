package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateID returns n random bytes hex encoded.
func GenerateID(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
