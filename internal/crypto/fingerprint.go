package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}

// HashData returns the full SHA-256 hex digest of data.
func HashData(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AnonymousHash derives a 16 hex char handle for name that cannot be linked
// across sessions: the name is mixed with the time and 16 random bytes.
func AnonymousHash(name string) (string, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return "", err
	}
	seed := fmt.Sprintf("%s:%d:%x", name, time.Now().UnixMilli(), salt)
	return HashData([]byte(seed))[:16], nil
}
