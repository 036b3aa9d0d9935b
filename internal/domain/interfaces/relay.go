package interfaces

import (
	"context"

	domaintypes "argoya/internal/domain/types"
)

// Transport is how the client talks to the coordinating service, all with context.
type Transport interface {
	Join(ctx context.Context, name domaintypes.DisplayName) (domaintypes.JoinResult, error)
	Send(
		ctx context.Context,
		sessionID domaintypes.SessionID,
		envelope string,
		recipient string,
	) (domaintypes.MessageID, error)
	FetchMessages(
		ctx context.Context,
		sessionID domaintypes.SessionID,
	) ([]domaintypes.RemoteMessage, error)
	FetchActiveUsers(ctx context.Context) ([]domaintypes.DisplayName, error)
	Leave(ctx context.Context, sessionID domaintypes.SessionID) error
}

// KeyDirectory is the optional relay surface used to distribute session keys.
// Transports that also implement it enable the key exchange.
type KeyDirectory interface {
	PublishKey(ctx context.Context, sessionID domaintypes.SessionID, publicKey string) error
	FetchKeys(ctx context.Context, sessionID domaintypes.SessionID) ([]domaintypes.PeerKey, error)
	SendKeyEnvelope(
		ctx context.Context,
		sessionID domaintypes.SessionID,
		recipient domaintypes.DisplayName,
		wrappedKey string,
	) error
	FetchKeyEnvelopes(
		ctx context.Context,
		sessionID domaintypes.SessionID,
	) ([]domaintypes.KeyEnvelope, error)
}
