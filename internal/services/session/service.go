package session

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"argoya/internal/domain"
	logpkg "argoya/internal/log"
	"argoya/internal/services/keyexchange"
	"argoya/internal/services/keys"
	"argoya/internal/services/message"
	"argoya/internal/store"
	"argoya/internal/telemetry"
)

// Display name bounds, in runes, after trimming.
const (
	MinNameLength = 3
	MaxNameLength = 20
)

// State is the lifecycle phase of the client.
type State int

const (
	Idle State = iota
	Joining
	Active
	Leaving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Joining:
		return "joining"
	case Active:
		return "active"
	case Leaving:
		return "leaving"
	default:
		return "unknown"
	}
}

// Lifecycle owns the one live session: its keys, its stores and its sync
// engine. Join builds them, Leave tears them down.
//
// Join:
//  1. Validate the display name.
//  2. Generate fresh key material.
//  3. Register the name with the relay.
//  4. Build the stores, the key exchange (if the relay supports it) and the
//     sync engine, and start the engine.
//
// Any failure destroys the new keys and returns to Idle.
//
// Leave stops the engine, tells the relay (best effort), destroys the keys
// and clears every store.
type Lifecycle struct {
	transport   domain.Transport
	newKeys     func() domain.KeyService
	keyExchange bool
	engineOpts  []message.Option
	now         func() time.Time
	log         zerolog.Logger
	metrics     *telemetry.Metrics

	mu    sync.Mutex
	state State
	live  *live
}

// live is everything that exists only while a session is active.
type live struct {
	session      domain.Session
	keys         domain.KeyService
	store        *store.SessionStore
	participants *store.ParticipantList
	ring         *store.KeyRing
	engine       *message.Engine
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithKeyFactory sets how per-session key managers are created.
func WithKeyFactory(f func() domain.KeyService) Option {
	return func(l *Lifecycle) { l.newKeys = f }
}

// WithKeyExchange toggles the key exchange. It only takes effect when the
// transport also implements domain.KeyDirectory.
func WithKeyExchange(enabled bool) Option {
	return func(l *Lifecycle) { l.keyExchange = enabled }
}

// WithIntervals sets the engine's poll cadences.
func WithIntervals(messages, participants time.Duration) Option {
	return func(l *Lifecycle) {
		l.engineOpts = append(l.engineOpts, message.WithIntervals(messages, participants))
	}
}

// WithClock overrides time.Now for session timestamps.
func WithClock(now func() time.Time) Option { return func(l *Lifecycle) { l.now = now } }

// WithLogger sets the logger handed to every session component.
func WithLogger(lg zerolog.Logger) Option { return func(l *Lifecycle) { l.log = lg } }

// WithMetrics sets the instruments handed to every session component.
func WithMetrics(m *telemetry.Metrics) Option { return func(l *Lifecycle) { l.metrics = m } }

// New constructs an idle Lifecycle talking to transport.
func New(transport domain.Transport, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		transport:   transport,
		newKeys:     func() domain.KeyService { return keys.New() },
		keyExchange: true,
		now:         time.Now,
		log:         logpkg.Nop(),
		metrics:     telemetry.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current phase.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Session returns the active session, if any.
func (l *Lifecycle) Session() (domain.Session, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Active {
		return domain.Session{}, false
	}
	return l.live.session, true
}

// Engine returns the sync engine of the active session, if any.
func (l *Lifecycle) Engine() (domain.SyncService, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Active {
		return nil, false
	}
	return l.live.engine, true
}

// Fingerprint returns the fingerprint of the active session's public key.
func (l *Lifecycle) Fingerprint() (domain.Fingerprint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Active {
		return "", domain.ErrNotActive
	}
	return l.live.keys.Fingerprint()
}

// Join starts a session under name. It is only valid from Idle; otherwise it
// returns the current session (if any) and ErrAlreadyActive.
func (l *Lifecycle) Join(ctx context.Context, name string) (domain.Session, error) {
	display, err := ValidateName(name)
	if err != nil {
		return domain.Session{}, err
	}

	l.mu.Lock()
	if l.state != Idle {
		var cur domain.Session
		if l.live != nil {
			cur = l.live.session
		}
		l.mu.Unlock()
		return cur, domain.ErrAlreadyActive
	}
	l.state = Joining
	l.mu.Unlock()

	lv, err := l.join(ctx, display)
	if err != nil {
		l.setState(Idle)
		l.log.Warn().Err(err).Str(logpkg.FieldUser, display.String()).Msg("join failed")
		return domain.Session{}, err
	}

	// The loops outlive the request that started them.
	lv.engine.Start(context.WithoutCancel(ctx))

	l.mu.Lock()
	l.live = lv
	l.state = Active
	l.mu.Unlock()

	l.log.Info().
		Str(logpkg.FieldUser, lv.session.DisplayName.String()).
		Str(logpkg.FieldSession, lv.session.ID.String()).
		Msg("joined")
	return lv.session, nil
}

func (l *Lifecycle) join(ctx context.Context, name domain.DisplayName) (*live, error) {
	ks := l.newKeys()
	if _, err := ks.Generate(); err != nil {
		ks.Destroy()
		return nil, err
	}

	res, err := l.transport.Join(ctx, name)
	if err != nil {
		ks.Destroy()
		return nil, err
	}
	if res.SessionID == "" {
		ks.Destroy()
		return nil, &domain.TransportError{Op: "join", Err: domain.ErrInvalidSession}
	}
	if res.DisplayName == "" {
		res.DisplayName = name
	}

	lv := &live{
		session: domain.Session{
			ID:          res.SessionID,
			DisplayName: res.DisplayName,
			UserHash:    res.UserHash,
			JoinedAt:    l.now(),
		},
		keys:         ks,
		store:        store.NewSessionStore(),
		participants: store.NewParticipantList(),
		ring:         store.NewKeyRing(),
	}

	opts := append([]message.Option{
		message.WithLogger(l.log),
		message.WithMetrics(l.metrics),
	}, l.engineOpts...)
	if dir, ok := l.transport.(domain.KeyDirectory); ok && l.keyExchange {
		kx := keyexchange.New(dir, ks, lv.ring, lv.session,
			keyexchange.WithLogger(l.log),
			keyexchange.WithMetrics(l.metrics),
		)
		opts = append(opts, message.WithKeyExchange(kx))
	}
	lv.engine = message.New(l.transport, ks, lv.session, lv.store, lv.participants, lv.ring, opts...)
	return lv, nil
}

// Send posts text to the group. It requires an active session.
func (l *Lifecycle) Send(ctx context.Context, text string) error {
	eng, ok := l.Engine()
	if !ok {
		return domain.ErrNotActive
	}
	return eng.Send(ctx, text)
}

// Leave ends the active session. Outside Active it does nothing. Local
// teardown always completes; a failed relay notification is logged and
// returned afterwards.
func (l *Lifecycle) Leave(ctx context.Context) error {
	l.mu.Lock()
	if l.state != Active {
		l.mu.Unlock()
		return nil
	}
	l.state = Leaving
	lv := l.live
	l.mu.Unlock()

	lv.engine.Stop()

	err := l.transport.Leave(ctx, lv.session.ID)
	if err != nil {
		l.log.Warn().Err(err).Str(logpkg.FieldSession, lv.session.ID.String()).Msg("relay leave failed; tearing down locally")
	}

	lv.keys.Destroy()
	lv.store.Clear()
	lv.participants.Clear()
	lv.ring.Clear()

	l.mu.Lock()
	l.live = nil
	l.state = Idle
	l.mu.Unlock()

	l.log.Info().Str(logpkg.FieldUser, lv.session.DisplayName.String()).Msg("left")
	return err
}

func (l *Lifecycle) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// ValidateName trims name and checks its length in runes.
func ValidateName(name string) (domain.DisplayName, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	switch {
	case n < MinNameLength:
		return "", &domain.ValidationError{Field: "display name", Reason: "must be at least 3 characters"}
	case n > MaxNameLength:
		return "", &domain.ValidationError{Field: "display name", Reason: "must be at most 20 characters"}
	}
	return domain.DisplayName(name), nil
}
