package message

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"argoya/internal/crypto"
	"argoya/internal/domain"
	logpkg "argoya/internal/log"
	"argoya/internal/telemetry"
)

// Default poll cadences.
const (
	DefaultMessageInterval     = 2 * time.Second
	DefaultParticipantInterval = 5 * time.Second
)

const (
	loopMessages     = "messages"
	loopParticipants = "participants"
)

// Engine keeps one session's local log and participant list in step with the
// relay, and sends messages on behalf of the caller.
//
// High-level flow:
//   - Message loop: fetch the session's messages, skip ids already stored or
//     reconciled, drop echoes of our own sends, decrypt the rest with the
//     sender's keys and append. Undecryptable content becomes the placeholder.
//   - Participant loop: replace the participant list wholesale; on failure the
//     previous list stays. With key exchange enabled it also runs a key sync.
//   - Send: encrypt with our session key, share the key with known peers,
//     post, and only on success append an optimistic copy without an id.
//
// Loop failures are logged and retried on the next tick.
type Engine struct {
	transport    domain.Transport
	keys         domain.KeyService
	session      domain.Session
	store        domain.MessageStore
	participants domain.ParticipantStore
	ring         domain.KeyRing
	kx           domain.KeyExchangeService

	log                 zerolog.Logger
	metrics             *telemetry.Metrics
	messageInterval     time.Duration
	participantInterval time.Duration

	updates chan struct{}

	runMu   sync.Mutex
	cancel  context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
	sending sync.WaitGroup

	// Echo bookkeeping. sent holds ciphertexts we posted; acked holds ids
	// the relay assigned to them; reconciled holds ids of fetched echoes.
	echoMu     sync.Mutex
	sent       map[string]struct{}
	acked      map[domain.MessageID]struct{}
	reconciled map[domain.MessageID]struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithKeyExchange enables the key exchange on the participant loop and lets
// the message loop collect envelopes for senders whose key is unknown.
func WithKeyExchange(kx domain.KeyExchangeService) Option {
	return func(e *Engine) { e.kx = kx }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithMetrics sets the instruments to report into.
func WithMetrics(m *telemetry.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithIntervals overrides the poll cadences. Non-positive values keep the default.
func WithIntervals(messages, participants time.Duration) Option {
	return func(e *Engine) {
		if messages > 0 {
			e.messageInterval = messages
		}
		if participants > 0 {
			e.participantInterval = participants
		}
	}
}

// New constructs an Engine for session. The stores are owned by the caller,
// which clears them on leave.
func New(
	transport domain.Transport,
	keys domain.KeyService,
	session domain.Session,
	store domain.MessageStore,
	participants domain.ParticipantStore,
	ring domain.KeyRing,
	opts ...Option,
) *Engine {
	e := &Engine{
		transport:           transport,
		keys:                keys,
		session:             session,
		store:               store,
		participants:        participants,
		ring:                ring,
		log:                 logpkg.Nop(),
		metrics:             telemetry.Nop(),
		messageInterval:     DefaultMessageInterval,
		participantInterval: DefaultParticipantInterval,
		updates:             make(chan struct{}, 1),
		sent:                make(map[string]struct{}),
		acked:               make(map[domain.MessageID]struct{}),
		reconciled:          make(map[domain.MessageID]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().Str(logpkg.FieldSession, session.ID.String()).Logger()
	return e
}

// Start launches both loops. Each runs one cycle immediately and then on its
// ticker. Calling Start on a running engine does nothing.
func (e *Engine) Start(ctx context.Context) {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel != nil {
		return
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.closed = false

	e.wg.Add(2)
	go e.loop(ctx, loopMessages, e.messageInterval, e.pollMessages)
	go e.loop(ctx, loopParticipants, e.participantInterval, e.pollParticipants)
	e.log.Debug().
		Dur("messages", e.messageInterval).
		Dur("participants", e.participantInterval).
		Msg("sync started")
}

// Stop cancels both loops and waits for them and for any Send in flight. A
// cycle already in flight may finish and apply its result; no new cycle or
// send starts. Idempotent.
func (e *Engine) Stop() {
	e.runMu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.closed = true
	e.runMu.Unlock()
	if cancel != nil {
		cancel()
		e.wg.Wait()
		e.log.Debug().Msg("sync stopped")
	}
	e.sending.Wait()
}

func (e *Engine) loop(ctx context.Context, name string, every time.Duration, cycle func(context.Context)) {
	defer e.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		cycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Send encrypts text with our session key and posts it to everyone. With key
// exchange enabled the key is shared first so peers can read the message even
// if we leave straight after. Nothing is appended unless the relay accepts
// the message. After Stop it returns ErrNotActive.
func (e *Engine) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return &domain.ValidationError{Field: "message", Reason: "must not be empty", Err: domain.ErrEmptyMessage}
	}
	e.runMu.Lock()
	if e.closed {
		e.runMu.Unlock()
		return domain.ErrNotActive
	}
	e.sending.Add(1)
	e.runMu.Unlock()
	defer e.sending.Done()

	km, ok := e.keys.Material()
	if !ok {
		return domain.ErrKeysDestroyed
	}
	envelope, err := crypto.Encrypt(text, km.SessionKey[:])
	if err != nil {
		return &domain.CryptoError{Op: "encrypt", Err: err}
	}

	if e.kx != nil {
		if err := e.kx.Sync(ctx); err != nil {
			e.log.Debug().Err(err).Msg("key exchange before send incomplete")
		}
	}

	// Registered before posting so a poll racing the send still recognises
	// the echo.
	e.echoMu.Lock()
	e.sent[envelope] = struct{}{}
	e.echoMu.Unlock()

	id, err := e.transport.Send(ctx, e.session.ID, envelope, domain.RecipientAll)
	if err != nil {
		e.echoMu.Lock()
		delete(e.sent, envelope)
		e.echoMu.Unlock()
		e.metrics.SendFailures.Add(ctx, 1)
		return err
	}

	e.echoMu.Lock()
	if id != "" {
		e.acked[id] = struct{}{}
	}
	e.echoMu.Unlock()

	e.store.Append(domain.Message{
		Sender:    e.session.DisplayName,
		Text:      text,
		Timestamp: time.Now(),
		Own:       true,
	})
	e.metrics.Sends.Add(ctx, 1)
	e.log.Debug().Str(logpkg.FieldMessageID, id.String()).Msg("message sent")
	e.notify()
	return nil
}

// Messages returns the local log in display order.
func (e *Engine) Messages() iter.Seq[domain.Message] { return e.store.All() }

// Participants returns the last successfully fetched participant list.
func (e *Engine) Participants() []domain.DisplayName { return e.participants.Names() }

// Updates signals, coalesced, that the log or participant list changed.
func (e *Engine) Updates() <-chan struct{} { return e.updates }

func (e *Engine) notify() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}

func (e *Engine) pollMessages(ctx context.Context) {
	e.metrics.Polls.Add(ctx, 1, telemetry.Loop(loopMessages))
	batch, err := e.transport.FetchMessages(ctx, e.session.ID)
	if err != nil {
		if ctx.Err() == nil {
			e.metrics.PollFailures.Add(ctx, 1, telemetry.Loop(loopMessages))
			e.log.Warn().Err(err).Str(logpkg.FieldLoop, loopMessages).Msg("fetch messages failed; retrying next tick")
		}
		return
	}
	e.metrics.MessagesFetched.Add(ctx, int64(len(batch)))

	collected := false
	appended := 0
	for _, rm := range batch {
		if e.seen(rm.ID) {
			continue
		}
		if e.reconcile(rm) {
			continue
		}

		m := domain.Message{
			ID:        rm.ID,
			Sender:    rm.Sender,
			Text:      rm.Message,
			Encrypted: rm.Encrypted,
			Timestamp: rm.Timestamp,
		}
		if rm.Sender == e.session.DisplayName {
			// Ours but not a recognised echo, e.g. a send that failed on our
			// side after the relay stored it. The payload is left as delivered.
			m.Own = true
			m.Encrypted = true
		} else if rm.Encrypted {
			m.Text = e.open(ctx, rm, &collected)
		}
		if e.store.Append(m) {
			appended++
		}
	}
	if appended > 0 {
		e.metrics.MessagesAppended.Add(ctx, int64(appended))
		e.log.Debug().Int(logpkg.FieldCount, appended).Msg("messages appended")
		e.notify()
	}
}

func (e *Engine) seen(id domain.MessageID) bool {
	if id == "" {
		return false
	}
	if e.store.Contains(id) {
		return true
	}
	e.echoMu.Lock()
	defer e.echoMu.Unlock()
	_, ok := e.reconciled[id]
	return ok
}

// reconcile reports whether rm echoes a message we sent. A match on the
// acked id, or on our own name and the exact ciphertext, counts.
func (e *Engine) reconcile(rm domain.RemoteMessage) bool {
	e.echoMu.Lock()
	defer e.echoMu.Unlock()

	_, byID := e.acked[rm.ID]
	_, byPayload := e.sent[rm.Message]
	if !byID && !(byPayload && rm.Sender == e.session.DisplayName) {
		return false
	}
	if rm.ID != "" {
		e.reconciled[rm.ID] = struct{}{}
		delete(e.acked, rm.ID)
	}
	delete(e.sent, rm.Message)
	return true
}

// open decrypts rm with every key known for its sender, newest first, then
// our own. If none works it collects pending key envelopes once per cycle and
// retries before falling back to the placeholder.
func (e *Engine) open(ctx context.Context, rm domain.RemoteMessage, collected *bool) string {
	if text, ok := e.tryKeys(rm); ok {
		return text
	}
	if e.kx != nil && !*collected {
		*collected = true
		if err := e.kx.Collect(ctx); err != nil {
			e.log.Debug().Err(err).Msg("collect key envelopes failed")
		} else if text, ok := e.tryKeys(rm); ok {
			return text
		}
	}
	e.metrics.DecryptFailures.Add(ctx, 1)
	e.log.Debug().
		Str(logpkg.FieldMessageID, rm.ID.String()).
		Str(logpkg.FieldUser, rm.Sender.String()).
		Msg("message not decryptable; showing placeholder")
	return domain.PlaceholderText
}

func (e *Engine) tryKeys(rm domain.RemoteMessage) (string, bool) {
	candidates := e.ring.Keys(rm.Sender)
	if km, ok := e.keys.Material(); ok {
		candidates = append(candidates, km.SessionKey[:])
	}
	for _, key := range candidates {
		if text, ok := crypto.Decrypt(rm.Message, key); ok {
			return text, true
		}
	}
	return "", false
}

func (e *Engine) pollParticipants(ctx context.Context) {
	e.metrics.Polls.Add(ctx, 1, telemetry.Loop(loopParticipants))
	names, err := e.transport.FetchActiveUsers(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.metrics.PollFailures.Add(ctx, 1, telemetry.Loop(loopParticipants))
			e.log.Warn().Err(err).Str(logpkg.FieldLoop, loopParticipants).Msg("fetch participants failed; keeping previous list")
		}
	} else if !slices.Equal(names, e.participants.Names()) {
		e.participants.Replace(names)
		e.notify()
	}

	if e.kx != nil && ctx.Err() == nil {
		if err := e.kx.Sync(ctx); err != nil && ctx.Err() == nil {
			e.log.Warn().Err(err).Msg("key exchange incomplete; retrying next tick")
		}
	}
}

// Compile-time assertion that Engine implements domain.SyncService.
var _ domain.SyncService = (*Engine)(nil)
