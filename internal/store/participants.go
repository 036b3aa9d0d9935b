package store

import (
	"slices"
	"sync"

	"argoya/internal/domain"
)

// ParticipantList caches the active display names in server order.
// Each Replace swaps the whole list; nothing is merged.
type ParticipantList struct {
	mu    sync.RWMutex
	names []domain.DisplayName
}

// NewParticipantList returns an empty list.
func NewParticipantList() *ParticipantList { return &ParticipantList{} }

// Replace installs names as the current list.
func (p *ParticipantList) Replace(names []domain.DisplayName) {
	cp := slices.Clone(names)
	p.mu.Lock()
	p.names = cp
	p.mu.Unlock()
}

// Names returns a copy of the current list.
func (p *ParticipantList) Names() []domain.DisplayName {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.names)
}

// Contains reports whether name is currently listed.
func (p *ParticipantList) Contains(name domain.DisplayName) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Contains(p.names, name)
}

// Clear empties the list. Used on leave.
func (p *ParticipantList) Clear() {
	p.mu.Lock()
	p.names = nil
	p.mu.Unlock()
}

// Compile-time assertion that ParticipantList implements domain.ParticipantStore.
var _ domain.ParticipantStore = (*ParticipantList)(nil)
