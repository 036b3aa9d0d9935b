package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
)

// RSABits is the modulus size of the per-session key pair.
const RSABits = 2048

var errNotRSA = errors.New("public key is not RSA")

// GenerateRSA returns a fresh RSA-2048 key pair read from r.
func GenerateRSA(r io.Reader) (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(r, RSABits)
}

// MarshalPublicKey encodes pub as base64 PKIX DER for the key directory.
func MarshalPublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return B64(der), nil
}

// ParsePublicKey decodes a MarshalPublicKey string.
func ParsePublicKey(encoded string) (*rsa.PublicKey, error) {
	der, err := FromB64(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errNotRSA
	}
	return pub, nil
}

// WrapKey encrypts a session key for pub with RSA-OAEP/SHA-256.
func WrapKey(pub *rsa.PublicKey, key []byte) (string, error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return "", err
	}
	return B64(ct), nil
}

// UnwrapKey reverses WrapKey with our private key.
func UnwrapKey(priv *rsa.PrivateKey, wrapped string) ([]byte, error) {
	ct, err := FromB64(wrapped)
	if err != nil {
		return nil, fmt.Errorf("decode wrapped key: %w", err)
	}
	return rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ct, nil)
}
