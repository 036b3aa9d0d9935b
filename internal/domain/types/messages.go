package types

import "time"

// PlaceholderText replaces content that could not be decrypted.
const PlaceholderText = "[Encrypted Message]"

// Message is one entry of the local conversation log.
//
// ID is empty for messages composed locally that the log recorded before the
// relay echoed them back. Messages are never mutated after creation.
type Message struct {
	ID        MessageID   `json:"id,omitempty"`
	Sender    DisplayName `json:"sender"`
	Text      string      `json:"message"`
	Encrypted bool        `json:"encrypted"`
	Timestamp time.Time   `json:"timestamp"`
	Own       bool        `json:"own"`
}

// RemoteMessage is one entry of a FetchMessages batch.
//
// Message carries the ciphertext envelope when Encrypted is set.
type RemoteMessage struct {
	ID        MessageID   `json:"id"`
	Sender    DisplayName `json:"sender"`
	Message   string      `json:"message"`
	Encrypted bool        `json:"encrypted"`
	Timestamp time.Time   `json:"timestamp"`
}
