package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"argoya/internal/domain"
	"argoya/internal/relay"
	sessionsvc "argoya/internal/services/session"
)

func TestRunChat(t *testing.T) {
	ts := httptest.NewServer(relay.NewServer())
	defer ts.Close()
	rc := relay.NewHTTP(ts.URL, ts.Client())
	lc := sessionsvc.New(rc, sessionsvc.WithKeyExchange(false),
		sessionsvc.WithIntervals(time.Hour, time.Hour))

	in := strings.NewReader("/whoami\nhello\n/help\n/quit\nnever sent\n")
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), lc, "alice", in, &out))

	got := out.String()
	require.Contains(t, got, "joined as alice")
	require.Regexp(t, `alice \(anonymous id [0-9a-f]{16}, key [0-9a-f]{20}\)`, got)
	require.Contains(t, got, "/quit    leave")
	require.Contains(t, got, "left; keys and history erased")
	require.Equal(t, sessionsvc.Idle, lc.State())

	// Alice's name is released on leave.
	_, err := rc.Join(context.Background(), "bob")
	require.NoError(t, err)
	users, err := rc.FetchActiveUsers(context.Background())
	require.NoError(t, err)
	require.Equal(t, []domain.DisplayName{"bob"}, users)
}

func TestRunChat_InvalidName(t *testing.T) {
	lc := sessionsvc.New(relay.NewHTTP("http://127.0.0.1:1", nil))
	err := runChat(context.Background(), lc, "x", strings.NewReader(""), &bytes.Buffer{})
	require.True(t, domain.IsValidation(err))
}

func TestJoinNames(t *testing.T) {
	require.Equal(t, "-", joinNames(nil, "alice"))
	require.Equal(t, "alice (you), bob", joinNames([]domain.DisplayName{"alice", "bob"}, "alice"))
}
