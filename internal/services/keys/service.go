package keys

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"argoya/internal/crypto"
	"argoya/internal/domain"
	"argoya/internal/util/memzero"
)

// Manager owns the key material of one session.
//
// The material contains:
//   - An RSA key pair used to receive peers' session keys.
//   - An AES-256 session key used for every message we send.
type Manager struct {
	rand io.Reader

	mu       sync.Mutex
	material *domain.KeyMaterial
}

// Option configures a Manager.
type Option func(*Manager)

// WithRand replaces the entropy source. Tests use it to simulate exhaustion.
func WithRand(r io.Reader) Option {
	return func(m *Manager) { m.rand = r }
}

// New returns a Manager reading entropy from crypto/rand.
func New(opts ...Option) *Manager {
	m := &Manager{rand: rand.Reader}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Generate creates fresh key material, replacing and wiping any previous set.
func (m *Manager) Generate() (*domain.KeyMaterial, error) {
	sessionKey, err := crypto.GenerateSessionKey(m.rand)
	if err != nil {
		return nil, generationFailed(err)
	}
	priv, err := crypto.GenerateRSA(m.rand)
	if err != nil {
		memzero.Zero(sessionKey[:])
		return nil, generationFailed(err)
	}

	km := &domain.KeyMaterial{Private: priv, SessionKey: sessionKey}
	memzero.Zero(sessionKey[:])

	m.mu.Lock()
	old := m.material
	m.material = km
	m.mu.Unlock()

	wipe(old)
	return km, nil
}

// Material returns the live key material, if any.
func (m *Manager) Material() (*domain.KeyMaterial, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.material, m.material != nil
}

// Destroy wipes and forgets the key material. Calling it again is a no-op.
func (m *Manager) Destroy() {
	m.mu.Lock()
	km := m.material
	m.material = nil
	m.mu.Unlock()

	wipe(km)
}

// DeriveFromPassword stretches password into an AES-256-GCM key using
// PBKDF2-HMAC-SHA-256 with 100,000 iterations. It is not part of the
// join/send/receive flow.
func (m *Manager) DeriveFromPassword(password, salt string) ([]byte, error) {
	if password == "" {
		return nil, &domain.ValidationError{Field: "password", Reason: "must not be empty"}
	}
	if salt == "" {
		return nil, &domain.ValidationError{Field: "salt", Reason: "must not be empty"}
	}
	return crypto.DeriveKey([]byte(password), []byte(salt)), nil
}

// PublicKey returns the base64 PKIX encoding of our RSA public key.
func (m *Manager) PublicKey() (string, error) {
	km, ok := m.Material()
	if !ok {
		return "", domain.ErrKeysDestroyed
	}
	return crypto.MarshalPublicKey(&km.Private.PublicKey)
}

// Fingerprint returns a short fingerprint of our RSA public key.
func (m *Manager) Fingerprint() (domain.Fingerprint, error) {
	pub, err := m.PublicKey()
	if err != nil {
		return "", err
	}
	return domain.Fingerprint(crypto.Fingerprint([]byte(pub))), nil
}

func wipe(km *domain.KeyMaterial) {
	if km == nil {
		return
	}
	memzero.Zero(km.SessionKey[:])
	memzero.RSA(km.Private)
	km.Private = nil
}

func generationFailed(err error) error {
	return &domain.CryptoError{
		Op:  "generate",
		Err: fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err),
	}
}

// Compile-time assertion that Manager implements domain.KeyService.
var _ domain.KeyService = (*Manager)(nil)
