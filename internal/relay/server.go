package relay

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"argoya/internal/crypto"
	"argoya/internal/domain"
	logpkg "argoya/internal/log"
)

// Defaults of the development relay.
const (
	DefaultSessionTTL    = 30 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
	DefaultMaxMessages   = 1000

	minUsernameLen  = 3
	maxRequestBytes = 64 << 10
	headerRequestID = "X-Request-ID"
)

type participant struct {
	sessionID  string
	username   string
	userHash   string
	joinedAt   time.Time
	lastActive time.Time
	publicKey  string
	envelopes  []domain.KeyEnvelope
}

// Server is an in-memory relay implementing the HTTP API the client speaks.
// All state is lost when the process exits. It never sees plaintext or
// private keys.
type Server struct {
	log         zerolog.Logger
	now         func() time.Time
	ttl         time.Duration
	maxMessages int
	router      *mux.Router

	mu       sync.Mutex
	sessions map[string]*participant // by session id
	names    map[string]string       // lowercased username -> session id
	order    []string                // session ids in join order
	messages []wireMessage
	stamps   []time.Time // parallel to messages
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the access and event logger.
func WithLogger(l zerolog.Logger) ServerOption { return func(s *Server) { s.log = l } }

// WithClock replaces time.Now. Tests use it to drive expiry.
func WithClock(now func() time.Time) ServerOption { return func(s *Server) { s.now = now } }

// WithSessionTTL sets how long an idle session survives.
func WithSessionTTL(d time.Duration) ServerOption { return func(s *Server) { s.ttl = d } }

// WithMaxMessages caps the broadcast log; the oldest messages go first.
func WithMaxMessages(n int) ServerOption { return func(s *Server) { s.maxMessages = n } }

// NewServer returns a ready-to-serve relay.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		log:         logpkg.Nop(),
		now:         time.Now,
		ttl:         DefaultSessionTTL,
		maxMessages: DefaultMaxMessages,
		sessions:    make(map[string]*participant),
		names:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(s.accessLog)
	r.HandleFunc("/join", s.handleJoin).Methods(http.MethodPost)
	r.HandleFunc("/send_message", s.handleSend).Methods(http.MethodPost)
	r.HandleFunc("/get_messages", s.handleMessages).Methods(http.MethodPost)
	r.HandleFunc("/leave", s.handleLeave).Methods(http.MethodPost)
	r.HandleFunc("/active_users", s.handleActiveUsers).Methods(http.MethodGet)
	r.HandleFunc("/keys", s.handlePublishKey).Methods(http.MethodPost)
	r.HandleFunc("/keys/list", s.handleListKeys).Methods(http.MethodPost)
	r.HandleFunc("/key_envelopes", s.handleSendEnvelope).Methods(http.MethodPost)
	r.HandleFunc("/key_envelopes/list", s.handleListEnvelopes).Methods(http.MethodPost)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Sweep removes sessions idle for longer than the TTL and returns how many
// were dropped.
func (s *Server) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	var expired []string
	for id, p := range s.sessions {
		if p.lastActive.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		s.log.Info().Str(logpkg.FieldUser, s.sessions[id].username).Msg("session expired")
		s.deleteLocked(id)
	}
	return len(expired)
}

// RunJanitor sweeps every interval until ctx is done. A non-positive
// interval uses DefaultSweepInterval.
func (s *Server) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug().Int(logpkg.FieldCount, n).Msg("sweep")
			}
		}
	}
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var in joinRequest
	if !decode(w, r, &in) {
		return
	}
	name := strings.TrimSpace(in.Username)
	if utf8.RuneCountInString(name) < minUsernameLen {
		writeError(w, http.StatusBadRequest, "Username must be at least 3 characters")
		return
	}

	hash, err := crypto.AnonymousHash(name)
	if err != nil {
		lg := logpkg.Ctx(r.Context())
		lg.Error().Err(err).Msg("anonymous hash")
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	s.mu.Lock()
	if _, taken := s.names[strings.ToLower(name)]; taken {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Username already taken")
		return
	}
	sessionID := randomHex(16)
	now := s.now()
	s.sessions[sessionID] = &participant{
		sessionID:  sessionID,
		username:   name,
		userHash:   hash,
		joinedAt:   now,
		lastActive: now,
	}
	s.names[strings.ToLower(name)] = sessionID
	s.order = append(s.order, sessionID)
	s.mu.Unlock()

	lg := logpkg.Ctx(r.Context())
	lg.Info().Str(logpkg.FieldUser, name).Msg("joined")
	writeJSON(w, http.StatusOK, joinResponse{Success: true, SessionID: sessionID, UserHash: hash, Username: name})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var in sendRequest
	if !decode(w, r, &in) {
		return
	}
	if in.Message == "" {
		writeError(w, http.StatusBadRequest, "Message is empty")
		return
	}
	if in.Recipient == "" {
		in.Recipient = domain.RecipientAll
	}

	s.mu.Lock()
	p, ok := s.touchLocked(in.SessionID)
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid session")
		return
	}
	now := s.now()
	msg := wireMessage{
		ID:         uuid.NewString(),
		Sender:     p.username,
		SenderHash: p.userHash,
		Message:    in.Message,
		Recipient:  in.Recipient,
		Timestamp:  formatTimestamp(now),
		Encrypted:  true,
	}
	s.messages = append(s.messages, msg)
	s.stamps = append(s.stamps, now)
	if over := len(s.messages) - s.maxMessages; s.maxMessages > 0 && over > 0 {
		s.messages = append([]wireMessage(nil), s.messages[over:]...)
		s.stamps = append([]time.Time(nil), s.stamps[over:]...)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, sendResponse{Success: true, MessageID: msg.ID})
}

// handleMessages returns every message broadcast, or addressed to the
// caller, since the caller joined.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	var in sessionRequest
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	p, ok := s.touchLocked(in.SessionID)
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid session")
		return
	}
	out := make([]wireMessage, 0)
	for i, m := range s.messages {
		if s.stamps[i].Before(p.joinedAt) {
			continue
		}
		if m.Recipient != domain.RecipientAll && !strings.EqualFold(m.Recipient, p.username) && m.Sender != p.username {
			continue
		}
		out = append(out, m)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, messagesResponse{Messages: out})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var in sessionRequest
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	if p, ok := s.sessions[in.SessionID]; ok {
		lg := logpkg.Ctx(r.Context())
		lg.Info().Str(logpkg.FieldUser, p.username).Msg("left")
		s.deleteLocked(in.SessionID)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleActiveUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	users := make([]string, 0, len(s.order))
	for _, id := range s.order {
		users = append(users, s.sessions[id].username)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, usersResponse{Users: users})
}

func (s *Server) handlePublishKey(w http.ResponseWriter, r *http.Request) {
	var in publishKeyRequest
	if !decode(w, r, &in) {
		return
	}
	if _, err := crypto.ParsePublicKey(in.PublicKey); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid public key")
		return
	}
	s.mu.Lock()
	p, ok := s.touchLocked(in.SessionID)
	if ok {
		p.publicKey = in.PublicKey
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid session")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	var in sessionRequest
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	_, ok := s.touchLocked(in.SessionID)
	keys := make([]domain.PeerKey, 0, len(s.order))
	if ok {
		for _, id := range s.order {
			if p := s.sessions[id]; p.publicKey != "" {
				keys = append(keys, domain.PeerKey{Name: domain.DisplayName(p.username), PublicKey: p.publicKey})
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid session")
		return
	}
	writeJSON(w, http.StatusOK, keysResponse{Keys: keys})
}

func (s *Server) handleSendEnvelope(w http.ResponseWriter, r *http.Request) {
	var in keyEnvelopeRequest
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.touchLocked(in.SessionID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid session")
		return
	}
	rid, ok := s.names[strings.ToLower(in.Recipient)]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown recipient")
		return
	}
	recipient := s.sessions[rid]
	recipient.envelopes = append(recipient.envelopes, domain.KeyEnvelope{
		ID:         uuid.NewString(),
		Sender:     domain.DisplayName(sender.username),
		Recipient:  domain.DisplayName(recipient.username),
		WrappedKey: in.WrappedKey,
	})
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleListEnvelopes(w http.ResponseWriter, r *http.Request) {
	var in sessionRequest
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	p, ok := s.touchLocked(in.SessionID)
	var envs []domain.KeyEnvelope
	if ok {
		envs = append(make([]domain.KeyEnvelope, 0, len(p.envelopes)), p.envelopes...)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid session")
		return
	}
	writeJSON(w, http.StatusOK, keyEnvelopesResponse{Envelopes: envs})
}

// touchLocked looks up a session and refreshes its activity time.
func (s *Server) touchLocked(sessionID string) (*participant, bool) {
	p, ok := s.sessions[sessionID]
	if ok {
		p.lastActive = s.now()
	}
	return p, ok
}

func (s *Server) deleteLocked(sessionID string) {
	p, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	delete(s.sessions, sessionID)
	delete(s.names, strings.ToLower(p.username))
	for i, id := range s.order {
		if id == sessionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// accessLog records method, path, status and duration for each request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get(headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, reqID)

		logger := s.log.With().Str("request_id", reqID).Logger()
		r = r.WithContext(logpkg.WithLogger(r.Context(), logger))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
