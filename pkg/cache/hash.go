package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Namespace derives a short, filesystem- and key-safe namespace for a base
// URL, so mirrors of different API servers never share entries.
func Namespace(baseURL string) string {
	return Hash([]byte(baseURL))[:12]
}
