package store

import (
	"bytes"
	"slices"
	"sync"

	"argoya/internal/domain"
	"argoya/internal/util/memzero"
)

// KeyRing remembers the session keys peers shared with us, newest first.
// A peer that leaves and rejoins under the same name gets a second entry.
type KeyRing struct {
	mu   sync.RWMutex
	keys map[domain.DisplayName][][]byte
}

// NewKeyRing returns an empty KeyRing.
func NewKeyRing() *KeyRing {
	return &KeyRing{keys: make(map[domain.DisplayName][][]byte)}
}

// Add records key for sender and reports whether it was new.
func (k *KeyRing) Add(sender domain.DisplayName, key []byte) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, have := range k.keys[sender] {
		if bytes.Equal(have, key) {
			return false
		}
	}
	k.keys[sender] = slices.Insert(k.keys[sender], 0, bytes.Clone(key))
	return true
}

// Keys returns the keys known for sender, newest first.
func (k *KeyRing) Keys(sender domain.DisplayName) [][]byte {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return slices.Clone(k.keys[sender])
}

// Clear wipes every key. Used on leave.
func (k *KeyRing) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, list := range k.keys {
		for _, key := range list {
			memzero.Zero(key)
		}
	}
	k.keys = make(map[domain.DisplayName][][]byte)
}

// Compile-time assertion that KeyRing implements domain.KeyRing.
var _ domain.KeyRing = (*KeyRing)(nil)
