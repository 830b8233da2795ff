package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashSecret returns a hex-encoded SHA-256 digest of a short-lived secret such as an OTP code.
// Only the digest is persisted.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

