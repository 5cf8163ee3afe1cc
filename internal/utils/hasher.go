package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes returns the hex SHA-256 of data. Used as a content fingerprint.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
