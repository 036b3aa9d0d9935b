package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// NonceBytes is the AES-GCM nonce length prepended to every ciphertext.
const NonceBytes = 12

// GenerateSessionKey fills a fresh AES-256 key from r.
func GenerateSessionKey(r io.Reader) (key [32]byte, err error) {
	if _, err = io.ReadFull(r, key[:]); err != nil {
		return key, fmt.Errorf("read session key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext under key with a fresh random nonce and returns
// base64(nonce || ciphertext || tag).
func Encrypt(plaintext string, key []byte) (string, error) {
	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, NonceBytes, NonceBytes+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return B64(sealed), nil
}

// Decrypt reverses Encrypt. It reports false on malformed encoding, short
// input, a wrong key or a failed authentication check.
func Decrypt(encoded string, key []byte) (string, bool) {
	raw, err := FromB64(encoded)
	if err != nil {
		return "", false
	}
	aead, err := newGCM(key)
	if err != nil {
		return "", false
	}
	if len(raw) < NonceBytes+aead.Overhead() {
		return "", false
	}
	pt, err := aead.Open(nil, raw[:NonceBytes], raw[NonceBytes:], nil)
	if err != nil {
		return "", false
	}
	return string(pt), true
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("session key: want 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
