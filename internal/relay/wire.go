package relay

import (
	"time"

	"argoya/internal/domain"
)

// Request and response bodies of the relay HTTP API. Field names follow the
// original web service so either side can talk to the other.

type joinRequest struct {
	Username string `json:"username"`
}

type joinResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	UserHash  string `json:"user_hash"`
	Username  string `json:"username"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type sendRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Recipient string `json:"recipient"`
}

type sendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
}

type wireMessage struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	SenderHash string `json:"sender_hash,omitempty"`
	Message    string `json:"message"`
	Recipient  string `json:"recipient,omitempty"`
	Timestamp  string `json:"timestamp"`
	Encrypted  bool   `json:"encrypted"`
}

type messagesResponse struct {
	Messages []wireMessage `json:"messages"`
}

type usersResponse struct {
	Users []string `json:"users"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type publishKeyRequest struct {
	SessionID string `json:"session_id"`
	PublicKey string `json:"public_key"`
}

type keysResponse struct {
	Keys []domain.PeerKey `json:"keys"`
}

type keyEnvelopeRequest struct {
	SessionID  string `json:"session_id"`
	Recipient  string `json:"recipient"`
	WrappedKey string `json:"wrapped_key"`
}

type keyEnvelopesResponse struct {
	Envelopes []domain.KeyEnvelope `json:"envelopes"`
}

// timestampLayouts are tried in order when parsing message timestamps. The
// second one is Python's datetime.isoformat() without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatTimestamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func (m wireMessage) toDomain() domain.RemoteMessage {
	return domain.RemoteMessage{
		ID:        domain.MessageID(m.ID),
		Sender:    domain.DisplayName(m.Sender),
		Message:   m.Message,
		Encrypted: m.Encrypted,
		Timestamp: parseTimestamp(m.Timestamp),
	}
}
