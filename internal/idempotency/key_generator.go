package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// GenerateKey hashes the scope parts into a fixed-length storage key.
func GenerateKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
