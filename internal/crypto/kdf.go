package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Iterations is the work factor of DeriveKey.
	PBKDF2Iterations = 100_000

	// KeyBytes is the length of derived and session keys.
	KeyBytes = 32
)

// DeriveKey stretches password with salt into an AES-256-GCM key using
// PBKDF2-HMAC-SHA-256.
func DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, PBKDF2Iterations, KeyBytes, sha256.New)
}
