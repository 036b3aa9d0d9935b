package types

// DisplayName is the throwaway name a participant joins with.
type DisplayName string

// String returns the string form of the display name.
func (n DisplayName) String() string { return string(n) }

// SessionID is the opaque token the coordinating service issues on join.
type SessionID string

// String returns the string form of the session identifier.
func (id SessionID) String() string { return string(id) }

// MessageID is the server-assigned identifier of a stored message.
type MessageID string

// String returns the string form of the message identifier.
func (id MessageID) String() string { return string(id) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// Recipient values accepted by the relay when sending.
const (
	// RecipientAll broadcasts a message to every active participant.
	RecipientAll = "all"
)
