package relay

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"argoya/internal/crypto"
	"argoya/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRelay(t *testing.T, opts ...ServerOption) (*Server, *HTTP) {
	t.Helper()
	srv := NewServer(opts...)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, NewHTTP(ts.URL+"/", ts.Client())
}

func TestClientServer_JoinSendFetchLeave(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	_, c := newTestRelay(t)

	alice, err := c.Join(ctx, "alice")
	require.NoError(err)
	require.NotEmpty(alice.SessionID)
	require.Equal(domain.DisplayName("alice"), alice.DisplayName)
	require.Len(alice.UserHash, 16)

	bob, err := c.Join(ctx, "bob")
	require.NoError(err)

	users, err := c.FetchActiveUsers(ctx)
	require.NoError(err)
	require.Equal([]domain.DisplayName{"alice", "bob"}, users)

	id, err := c.Send(ctx, alice.SessionID, "ciphertext-1", domain.RecipientAll)
	require.NoError(err)
	require.NotEmpty(id)

	for _, sid := range []domain.SessionID{alice.SessionID, bob.SessionID} {
		msgs, err := c.FetchMessages(ctx, sid)
		require.NoError(err)
		require.Len(msgs, 1)
		require.Equal(id, msgs[0].ID)
		require.Equal(domain.DisplayName("alice"), msgs[0].Sender)
		require.Equal("ciphertext-1", msgs[0].Message)
		require.True(msgs[0].Encrypted)
		require.False(msgs[0].Timestamp.IsZero())
	}

	require.NoError(c.Leave(ctx, alice.SessionID))
	users, err = c.FetchActiveUsers(ctx)
	require.NoError(err)
	require.Equal([]domain.DisplayName{"bob"}, users)

	// A left session is rejected with 401.
	_, err = c.FetchMessages(ctx, alice.SessionID)
	require.ErrorIs(err, domain.ErrInvalidSession)
	var te *domain.TransportError
	require.ErrorAs(err, &te)
	require.Equal(http.StatusUnauthorized, te.Status)

	// Leave is idempotent from the client's point of view.
	require.NoError(c.Leave(ctx, alice.SessionID))
}

func TestServer_JoinRules(t *testing.T) {
	ctx := context.Background()
	_, c := newTestRelay(t)

	_, err := c.Join(ctx, "al")
	require.Error(t, err)
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, http.StatusBadRequest, te.Status)
	require.Contains(t, err.Error(), "at least 3 characters")

	_, err = c.Join(ctx, "Alice")
	require.NoError(t, err)
	_, err = c.Join(ctx, "alice")
	require.ErrorContains(t, err, "already taken")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServer_JoinLogsCarryRequestID(t *testing.T) {
	ctx := context.Background()
	var out lockedBuffer
	_, c := newTestRelay(t, WithLogger(zerolog.New(&out).Level(zerolog.DebugLevel)))

	_, err := c.Join(ctx, "alice")
	require.NoError(t, err)

	var joined string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.Contains(line, `"message":"joined"`) {
			joined = line
		}
	}
	require.NotEmpty(t, joined)
	require.Contains(t, joined, `"request_id":`)
	require.Contains(t, joined, `"username":"alice"`)
}

func TestServer_UserHashIsFreshPerJoin(t *testing.T) {
	ctx := context.Background()
	_, c := newTestRelay(t)

	first, err := c.Join(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, c.Leave(ctx, first.SessionID))
	second, err := c.Join(ctx, "alice")
	require.NoError(t, err)

	require.Len(t, first.UserHash, 16)
	require.Len(t, second.UserHash, 16)
	require.NotEqual(t, first.UserHash, second.UserHash)
}

func TestServer_LateJoinerSeesOnlyNewMessages(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	_, c := newTestRelay(t, WithClock(clock.Now))

	alice, err := c.Join(ctx, "alice")
	require.NoError(t, err)
	_, err = c.Send(ctx, alice.SessionID, "early", domain.RecipientAll)
	require.NoError(t, err)

	clock.Advance(time.Second)
	bob, err := c.Join(ctx, "bob")
	require.NoError(t, err)
	_, err = c.Send(ctx, alice.SessionID, "late", domain.RecipientAll)
	require.NoError(t, err)

	msgs, err := c.FetchMessages(ctx, bob.SessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "late", msgs[0].Message)
}

func TestServer_SweepExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	srv, c := newTestRelay(t, WithClock(clock.Now), WithSessionTTL(30*time.Minute))

	alice, err := c.Join(ctx, "alice")
	require.NoError(t, err)
	bob, err := c.Join(ctx, "bob")
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	_, err = c.FetchMessages(ctx, bob.SessionID) // keeps bob alive
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	require.Equal(t, 1, srv.Sweep())

	users, err := c.FetchActiveUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.DisplayName{"bob"}, users)

	_, err = c.Send(ctx, alice.SessionID, "x", domain.RecipientAll)
	require.ErrorIs(t, err, domain.ErrInvalidSession)

	// The freed name can be taken again.
	_, err = c.Join(ctx, "alice")
	require.NoError(t, err)
}

func TestServer_MaxMessages(t *testing.T) {
	ctx := context.Background()
	_, c := newTestRelay(t, WithMaxMessages(2))

	alice, err := c.Join(ctx, "alice")
	require.NoError(t, err)
	for _, m := range []string{"a", "b", "c"} {
		_, err := c.Send(ctx, alice.SessionID, m, domain.RecipientAll)
		require.NoError(t, err)
	}
	msgs, err := c.FetchMessages(ctx, alice.SessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "b", msgs[0].Message)
}

func TestKeyDirectory(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	_, c := newTestRelay(t)

	alice, err := c.Join(ctx, "alice")
	require.NoError(err)
	bob, err := c.Join(ctx, "bob")
	require.NoError(err)

	priv, err := crypto.GenerateRSA(rand.Reader)
	require.NoError(err)
	pub, err := crypto.MarshalPublicKey(&priv.PublicKey)
	require.NoError(err)

	require.Error(c.PublishKey(ctx, bob.SessionID, "garbage"))
	require.NoError(c.PublishKey(ctx, bob.SessionID, pub))

	keys, err := c.FetchKeys(ctx, alice.SessionID)
	require.NoError(err)
	require.Equal([]domain.PeerKey{{Name: "bob", PublicKey: pub}}, keys)

	require.NoError(c.SendKeyEnvelope(ctx, alice.SessionID, "bob", "wrapped"))
	err = c.SendKeyEnvelope(ctx, alice.SessionID, "nobody", "wrapped")
	var te *domain.TransportError
	require.ErrorAs(err, &te)
	require.Equal(http.StatusNotFound, te.Status)

	envs, err := c.FetchKeyEnvelopes(ctx, bob.SessionID)
	require.NoError(err)
	require.Len(envs, 1)
	require.Equal(domain.DisplayName("alice"), envs[0].Sender)
	require.Equal("wrapped", envs[0].WrappedKey)
	require.NotEmpty(envs[0].ID)

	envs, err = c.FetchKeyEnvelopes(ctx, alice.SessionID)
	require.NoError(err)
	require.Empty(envs)
}

func TestClient_TransportErrors(t *testing.T) {
	ctx := context.Background()

	// Unreachable relay.
	c := NewHTTP("http://127.0.0.1:1", nil)
	_, err := c.FetchActiveUsers(ctx)
	require.True(t, domain.IsTransport(err))

	// Garbage body.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer ts.Close()
	_, err = NewHTTP(ts.URL, ts.Client()).FetchActiveUsers(ctx)
	require.True(t, domain.IsTransport(err))
	require.ErrorContains(t, err, "decode response")

	// Cancelled context.
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewHTTP(ts.URL, ts.Client()).FetchActiveUsers(cctx)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 3, 4, 5, 6, 7, 123456000, time.UTC)
	require.True(t, want.Equal(parseTimestamp("2025-03-04T05:06:07.123456Z")))
	require.True(t, want.Equal(parseTimestamp("2025-03-04T05:06:07.123456")))
	require.True(t, parseTimestamp("yesterday").IsZero())
}
