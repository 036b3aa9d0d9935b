package interfaces

import (
	"iter"

	domaintypes "argoya/internal/domain/types"
)

// MessageStore holds the deduplicated conversation log of one session.
type MessageStore interface {
	Append(msg domaintypes.Message) bool
	Contains(id domaintypes.MessageID) bool
	Len() int
	All() iter.Seq[domaintypes.Message]
	Clear()
}

// ParticipantStore caches the most recently fetched active-name list.
type ParticipantStore interface {
	Replace(names []domaintypes.DisplayName)
	Names() []domaintypes.DisplayName
	Clear()
}

// KeyRing remembers the session keys peers shared with us.
type KeyRing interface {
	Add(sender domaintypes.DisplayName, key []byte) bool
	Keys(sender domaintypes.DisplayName) [][]byte
	Clear()
}
