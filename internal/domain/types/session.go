package types

import "time"

// Session is created on a successful join and is immutable until leave.
type Session struct {
	ID          SessionID   `json:"session_id"`
	DisplayName DisplayName `json:"display_name"`
	UserHash    string      `json:"user_hash,omitempty"`
	JoinedAt    time.Time   `json:"joined_at"`
}

// JoinResult is what the relay answers to a join request.
type JoinResult struct {
	SessionID   SessionID   `json:"session_id"`
	DisplayName DisplayName `json:"username"`
	UserHash    string      `json:"user_hash,omitempty"`
}
