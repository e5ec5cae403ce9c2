package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// tokenBytes is the entropy of a verification/reset token. 32 bytes =
// 256 bits, hex-encoded to 64 characters.
const tokenBytes = 32

// GenerateToken creates a cryptographically random hex-encoded token. The
// plaintext goes into the outbound email; only its digest is stored.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// DigestToken computes the SHA-256 hex digest of a token. Deterministic and
// keyless: the same plaintext always digests to the same value, which is how
// a presented token is matched against the stored column.
func DigestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
