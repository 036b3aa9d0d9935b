package keyexchange

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"argoya/internal/crypto"
	"argoya/internal/domain"
	logpkg "argoya/internal/log"
	"argoya/internal/telemetry"
)

// Service runs the key exchange for one session.
//
// Sync performs, in order:
//   - Publishing our public key once.
//   - Wrapping our session key for each participant whose public key we have
//     not served yet (a rejoin under the same name yields a new key and is
//     served again).
//   - Collecting envelopes addressed to us into the KeyRing.
type Service struct {
	dir     domain.KeyDirectory
	keys    domain.KeyService
	ring    domain.KeyRing
	session domain.Session
	log     zerolog.Logger
	metrics *telemetry.Metrics

	mu        sync.Mutex
	published bool
	served    map[domain.DisplayName]string
	processed map[string]struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// WithMetrics sets the instruments to report into.
func WithMetrics(m *telemetry.Metrics) Option { return func(s *Service) { s.metrics = m } }

// New returns a Service for session.
func New(
	dir domain.KeyDirectory,
	keys domain.KeyService,
	ring domain.KeyRing,
	session domain.Session,
	opts ...Option,
) *Service {
	s := &Service{
		dir:       dir,
		keys:      keys,
		ring:      ring,
		session:   session,
		log:       logpkg.Nop(),
		metrics:   telemetry.Nop(),
		served:    make(map[domain.DisplayName]string),
		processed: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync publishes, distributes and collects. Failures for single peers are
// logged and retried on the next call; the joined error is returned.
func (s *Service) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	km, ok := s.keys.Material()
	if !ok {
		return domain.ErrKeysDestroyed
	}
	if err := s.publish(ctx, km); err != nil {
		return err
	}
	distErr := s.distribute(ctx, km)
	return errors.Join(distErr, s.collect(ctx, km))
}

// Collect only unwraps newly arrived envelopes. The message loop calls it
// when a sender's key is still unknown.
func (s *Service) Collect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	km, ok := s.keys.Material()
	if !ok {
		return domain.ErrKeysDestroyed
	}
	return s.collect(ctx, km)
}

func (s *Service) publish(ctx context.Context, km *domain.KeyMaterial) error {
	if s.published {
		return nil
	}
	pub, err := crypto.MarshalPublicKey(&km.Private.PublicKey)
	if err != nil {
		return &domain.CryptoError{Op: "marshal public key", Err: err}
	}
	if err := s.dir.PublishKey(ctx, s.session.ID, pub); err != nil {
		return err
	}
	s.published = true
	s.log.Debug().Str("fingerprint", crypto.Fingerprint([]byte(pub))).Msg("public key published")
	return nil
}

func (s *Service) distribute(ctx context.Context, km *domain.KeyMaterial) error {
	peers, err := s.dir.FetchKeys(ctx, s.session.ID)
	if err != nil {
		return err
	}
	var errs []error
	for _, peer := range peers {
		if peer.Name == s.session.DisplayName || s.served[peer.Name] == peer.PublicKey {
			continue
		}
		pub, err := crypto.ParsePublicKey(peer.PublicKey)
		if err != nil {
			errs = append(errs, fmt.Errorf("peer %q: %w", peer.Name, err))
			continue
		}
		wrapped, err := crypto.WrapKey(pub, km.SessionKey[:])
		if err != nil {
			errs = append(errs, &domain.CryptoError{Op: "wrap key", Err: err})
			continue
		}
		if err := s.dir.SendKeyEnvelope(ctx, s.session.ID, peer.Name, wrapped); err != nil {
			errs = append(errs, err)
			continue
		}
		s.served[peer.Name] = peer.PublicKey
		s.log.Debug().Str(logpkg.FieldUser, peer.Name.String()).Msg("session key shared")
	}
	return errors.Join(errs...)
}

func (s *Service) collect(ctx context.Context, km *domain.KeyMaterial) error {
	envs, err := s.dir.FetchKeyEnvelopes(ctx, s.session.ID)
	if err != nil {
		return err
	}
	for _, env := range envs {
		if _, done := s.processed[env.ID]; done {
			continue
		}
		s.processed[env.ID] = struct{}{}

		key, err := crypto.UnwrapKey(km.Private, env.WrappedKey)
		if err != nil || len(key) != domain.SessionKeySize {
			s.log.Warn().Str(logpkg.FieldUser, env.Sender.String()).Msg("discarding unreadable key envelope")
			continue
		}
		if s.ring.Add(env.Sender, key) {
			s.metrics.KeysLearned.Add(ctx, 1)
			s.log.Debug().Str(logpkg.FieldUser, env.Sender.String()).Msg("learned session key")
		}
	}
	return nil
}

// Compile-time assertion that Service implements domain.KeyExchangeService.
var _ domain.KeyExchangeService = (*Service)(nil)
