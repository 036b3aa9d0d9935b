package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"argoya/internal/domain"
)

// maxErrorBody bounds how much of a failed response we read for its message.
const maxErrorBody = 4 << 10

// HTTP is the relay client. It implements domain.Transport and
// domain.KeyDirectory over JSON/HTTP.
type HTTP struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the relay at base. A nil client means
// http.DefaultClient.
func NewHTTP(base string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{Base: strings.TrimRight(base, "/"), HTTP: client}
}

// Join registers name and returns the issued session. Only the display
// name is sent.
func (c *HTTP) Join(ctx context.Context, name domain.DisplayName) (domain.JoinResult, error) {
	var out joinResponse
	if err := c.post(ctx, "join", "/join", joinRequest{Username: name.String()}, &out); err != nil {
		return domain.JoinResult{}, err
	}
	if out.SessionID == "" {
		return domain.JoinResult{}, &domain.TransportError{Op: "join", Err: errors.New("no session id in response")}
	}
	return domain.JoinResult{
		SessionID:   domain.SessionID(out.SessionID),
		DisplayName: domain.DisplayName(out.Username),
		UserHash:    out.UserHash,
	}, nil
}

// Send posts an encrypted envelope and returns the id the relay assigned.
func (c *HTTP) Send(
	ctx context.Context,
	sessionID domain.SessionID,
	envelope string,
	recipient string,
) (domain.MessageID, error) {
	var out sendResponse
	in := sendRequest{SessionID: sessionID.String(), Message: envelope, Recipient: recipient}
	if err := c.post(ctx, "send", "/send_message", in, &out); err != nil {
		return "", err
	}
	return domain.MessageID(out.MessageID), nil
}

// FetchMessages returns the relay's message batch for the session.
func (c *HTTP) FetchMessages(ctx context.Context, sessionID domain.SessionID) ([]domain.RemoteMessage, error) {
	var out messagesResponse
	if err := c.post(ctx, "fetch messages", "/get_messages", sessionRequest{SessionID: sessionID.String()}, &out); err != nil {
		return nil, err
	}
	msgs := make([]domain.RemoteMessage, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, m.toDomain())
	}
	return msgs, nil
}

// FetchActiveUsers returns the names of every active participant.
func (c *HTTP) FetchActiveUsers(ctx context.Context) ([]domain.DisplayName, error) {
	var out usersResponse
	if err := c.getJSON(ctx, "fetch active users", "/active_users", &out); err != nil {
		return nil, err
	}
	names := make([]domain.DisplayName, 0, len(out.Users))
	for _, u := range out.Users {
		names = append(names, domain.DisplayName(u))
	}
	return names, nil
}

// Leave asks the relay to forget the session.
func (c *HTTP) Leave(ctx context.Context, sessionID domain.SessionID) error {
	return c.post(ctx, "leave", "/leave", sessionRequest{SessionID: sessionID.String()}, nil)
}

// PublishKey uploads our RSA public key.
func (c *HTTP) PublishKey(ctx context.Context, sessionID domain.SessionID, publicKey string) error {
	in := publishKeyRequest{SessionID: sessionID.String(), PublicKey: publicKey}
	return c.post(ctx, "publish key", "/keys", in, nil)
}

// FetchKeys returns the public keys of active participants.
func (c *HTTP) FetchKeys(ctx context.Context, sessionID domain.SessionID) ([]domain.PeerKey, error) {
	var out keysResponse
	if err := c.post(ctx, "fetch keys", "/keys/list", sessionRequest{SessionID: sessionID.String()}, &out); err != nil {
		return nil, err
	}
	return out.Keys, nil
}

// SendKeyEnvelope delivers our wrapped session key to recipient.
func (c *HTTP) SendKeyEnvelope(
	ctx context.Context,
	sessionID domain.SessionID,
	recipient domain.DisplayName,
	wrappedKey string,
) error {
	in := keyEnvelopeRequest{SessionID: sessionID.String(), Recipient: recipient.String(), WrappedKey: wrappedKey}
	return c.post(ctx, "send key envelope", "/key_envelopes", in, nil)
}

// FetchKeyEnvelopes returns the wrapped keys addressed to us.
func (c *HTTP) FetchKeyEnvelopes(ctx context.Context, sessionID domain.SessionID) ([]domain.KeyEnvelope, error) {
	var out keyEnvelopesResponse
	in := sessionRequest{SessionID: sessionID.String()}
	if err := c.post(ctx, "fetch key envelopes", "/key_envelopes/list", in, &out); err != nil {
		return nil, err
	}
	return out.Envelopes, nil
}

func (c *HTTP) post(ctx context.Context, op, path string, in any, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, out)
}

func (c *HTTP) getJSON(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	return c.do(op, req, out)
}

func (c *HTTP) do(op string, req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return &domain.TransportError{Op: op, Status: resp.StatusCode, Err: statusError(resp)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// statusError extracts the relay's {"error": ...} message, falling back to
// the status text.
func statusError(resp *http.Response) error {
	var body errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := resp.Status
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", domain.ErrInvalidSession, msg)
	}
	return errors.New(msg)
}

var (
	_ domain.Transport    = (*HTTP)(nil)
	_ domain.KeyDirectory = (*HTTP)(nil)
)
