package store

import (
	"iter"
	"sync"

	"argoya/internal/domain"
)

// SessionStore holds the conversation log of one session in memory.
//
// Messages keep insertion order. No two stored messages share a non-empty
// ID; messages without an ID (optimistic local sends) are always appended.
type SessionStore struct {
	mu   sync.RWMutex
	log  []domain.Message
	seen map[domain.MessageID]struct{}
}

// NewSessionStore returns an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{seen: make(map[domain.MessageID]struct{})}
}

// Append stores msg unless another message with the same non-empty ID is
// already present. It reports whether msg was inserted.
func (s *SessionStore) Append(msg domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID != "" {
		if _, dup := s.seen[msg.ID]; dup {
			return false
		}
		s.seen[msg.ID] = struct{}{}
	}
	s.log = append(s.log, msg)
	return true
}

// Contains reports whether a message with id is stored.
func (s *SessionStore) Contains(id domain.MessageID) bool {
	if id == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of stored messages.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}

// All yields the stored messages in insertion order. Each iteration walks a
// snapshot taken when it starts, so it can be restarted and never observes a
// concurrent Clear halfway through.
func (s *SessionStore) All() iter.Seq[domain.Message] {
	return func(yield func(domain.Message) bool) {
		s.mu.RLock()
		snapshot := s.log[:len(s.log):len(s.log)]
		s.mu.RUnlock()

		for _, m := range snapshot {
			if !yield(m) {
				return
			}
		}
	}
}

// Clear drops every message. Used on leave.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log = nil
	s.seen = make(map[domain.MessageID]struct{})
}

// Compile-time assertion that SessionStore implements domain.MessageStore.
var _ domain.MessageStore = (*SessionStore)(nil)
