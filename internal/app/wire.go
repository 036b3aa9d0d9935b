package app

import (
	"net/http"

	"github.com/rs/zerolog"

	"argoya/internal/domain"
	"argoya/internal/relay"
	"argoya/internal/services/keys"
	sessionsvc "argoya/internal/services/session"
	"argoya/internal/telemetry"
)

// Wire bundles the relay client and the session lifecycle for the CLI.
type Wire struct {
	Relay     *relay.HTTP
	Lifecycle *sessionsvc.Lifecycle
	Keys      *keys.Manager // standalone manager for key utilities outside a session
	HTTP      *http.Client
	Metrics   *telemetry.Metrics
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg *Config, logger zerolog.Logger, metrics *telemetry.Metrics, httpClient *http.Client) *Wire {
	// Ensure an HTTP client is available for outbound calls
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Relay.Timeout}
	}
	if metrics == nil {
		metrics = telemetry.Nop()
	}

	rc := relay.NewHTTP(cfg.Relay.URL, httpClient)

	lifecycle := sessionsvc.New(rc,
		sessionsvc.WithKeyFactory(func() domain.KeyService { return keys.New() }),
		sessionsvc.WithKeyExchange(cfg.Sync.KeyExchange),
		sessionsvc.WithIntervals(cfg.Sync.MessageInterval, cfg.Sync.ParticipantInterval),
		sessionsvc.WithLogger(logger),
		sessionsvc.WithMetrics(metrics),
	)

	return &Wire{
		Relay:     rc,
		Lifecycle: lifecycle,
		Keys:      keys.New(),
		HTTP:      httpClient,
		Metrics:   metrics,
	}
}
