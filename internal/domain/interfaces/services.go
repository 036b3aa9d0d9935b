package interfaces

import (
	"context"
	"iter"

	domaintypes "argoya/internal/domain/types"
)

// KeyService owns generation and destruction of per-session key material.
type KeyService interface {
	Generate() (*domaintypes.KeyMaterial, error)
	Material() (*domaintypes.KeyMaterial, bool)
	Fingerprint() (domaintypes.Fingerprint, error)
	Destroy()
}

// KeyExchangeService publishes our public key, hands our session key to
// peers and collects theirs.
type KeyExchangeService interface {
	Sync(ctx context.Context) error
	Collect(ctx context.Context) error
}

// SyncService keeps the local log in step with the relay and sends messages.
type SyncService interface {
	Start(ctx context.Context)
	Stop()
	Send(ctx context.Context, text string) error
	Messages() iter.Seq[domaintypes.Message]
	Participants() []domaintypes.DisplayName
	Updates() <-chan struct{}
}
