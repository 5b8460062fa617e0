package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/formgate/internal/config"
	"github.com/fyrsmithlabs/formgate/internal/logging"
)

const testSigningSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type fakeHandler struct {
	mu        sync.Mutex
	commands  []slack.SlashCommand
	callbacks []*slack.InteractionCallback
}

func (f *fakeHandler) HandleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
}

func (f *fakeHandler) HandleInteraction(ctx context.Context, cb *slack.InteractionCallback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, cb)
}

func newTestServer(t *testing.T) (*Server, *fakeHandler) {
	t.Helper()
	handler := &fakeHandler{}
	srv, err := NewServer(handler, config.Secret(testSigningSecret), logging.NewNop(), nil)
	require.NoError(t, err)
	return srv, handler
}

// signedRequest builds a POST /slack/events request carrying a valid
// signature for body.
func signedRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	req.Header.Set(echoHeaderContentType, "application/x-www-form-urlencoded")

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	mac.Write([]byte("v0:" + timestamp + ":" + body))

	req.Header.Set("X-Slack-Request-Timestamp", timestamp)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

const echoHeaderContentType = "Content-Type"

func slashCommandBody() string {
	return url.Values{
		"command":    {"/formulario"},
		"trigger_id": {"13345224609.738474920.8088930838d88f008e0"},
		"user_id":    {"U2147483697"},
		"user_name":  {"ana.ruiz"},
		"channel_id": {"C2147483705"},
	}.Encode()
}

func interactionBody(callbackID string) string {
	payload := `{"type":"view_submission","user":{"id":"U2147483697","name":"ana.ruiz"},"view":{"type":"modal","callback_id":"` + callbackID + `"}}`
	return url.Values{"payload": {payload}}.Encode()
}

func TestNewServer(t *testing.T) {
	t.Run("requires event handler", func(t *testing.T) {
		_, err := NewServer(nil, config.Secret(testSigningSecret), logging.NewNop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "event handler")
	})

	t.Run("requires signing secret", func(t *testing.T) {
		_, err := NewServer(&fakeHandler{}, config.Secret(""), logging.NewNop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "signing secret")
	})

	t.Run("requires logger", func(t *testing.T) {
		_, err := NewServer(&fakeHandler{}, config.Secret(testSigningSecret), nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger")
	})

	t.Run("defaults config when nil", func(t *testing.T) {
		srv, err := NewServer(&fakeHandler{}, config.Secret(testSigningSecret), logging.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, 3000, srv.config.Port)
	})
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSlackEventsSignature(t *testing.T) {
	t.Run("rejects missing signature headers", func(t *testing.T) {
		srv, handler := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(slashCommandBody()))
		req.Header.Set(echoHeaderContentType, "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid signature")
		assert.Empty(t, handler.commands)
	})

	t.Run("rejects tampered body", func(t *testing.T) {
		srv, handler := newTestServer(t)

		req := signedRequest(t, slashCommandBody())
		tampered := slashCommandBody() + "&text=extra"
		req.Body = httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(tampered)).Body
		req.ContentLength = int64(len(tampered))
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, handler.commands)
	})

	t.Run("rejects stale timestamp", func(t *testing.T) {
		srv, handler := newTestServer(t)

		body := slashCommandBody()
		req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
		req.Header.Set(echoHeaderContentType, "application/x-www-form-urlencoded")

		timestamp := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
		mac := hmac.New(sha256.New, []byte(testSigningSecret))
		mac.Write([]byte("v0:" + timestamp + ":" + body))
		req.Header.Set("X-Slack-Request-Timestamp", timestamp)
		req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))

		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, handler.commands)
	})
}

func TestSlackEventsSlashCommand(t *testing.T) {
	srv, handler := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, signedRequest(t, slashCommandBody()))

	require.Equal(t, http.StatusOK, rec.Code)

	srv.inflight.Wait()
	require.Len(t, handler.commands, 1)
	cmd := handler.commands[0]
	assert.Equal(t, "/formulario", cmd.Command)
	assert.Equal(t, "U2147483697", cmd.UserID)
	assert.Equal(t, "13345224609.738474920.8088930838d88f008e0", cmd.TriggerID)
	assert.Empty(t, handler.callbacks)
}

func TestSlackEventsInteraction(t *testing.T) {
	srv, handler := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, signedRequest(t, interactionBody("form_submission")))

	require.Equal(t, http.StatusOK, rec.Code)

	srv.inflight.Wait()
	require.Len(t, handler.callbacks, 1)
	cb := handler.callbacks[0]
	assert.Equal(t, slack.InteractionType("view_submission"), cb.Type)
	assert.Equal(t, "form_submission", cb.View.CallbackID)
	assert.Empty(t, handler.commands)
}

func TestSlackEventsBadPayloads(t *testing.T) {
	t.Run("malformed interaction json", func(t *testing.T) {
		srv, handler := newTestServer(t)

		body := url.Values{"payload": {"{not json"}}.Encode()
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, signedRequest(t, body))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		srv.inflight.Wait()
		assert.Empty(t, handler.callbacks)
	})

	t.Run("neither command nor payload", func(t *testing.T) {
		srv, handler := newTestServer(t)

		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, signedRequest(t, "foo=bar"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		srv.inflight.Wait()
		assert.Empty(t, handler.commands)
		assert.Empty(t, handler.callbacks)
	})
}

func TestRateLimiting(t *testing.T) {
	srv, _ := newTestServer(t)

	limited := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "203.0.113.7:4455"
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	assert.Greater(t, limited, 0, "burst exhausted requests should be limited")
}

func TestShutdownWaitsForInflight(t *testing.T) {
	handler := &fakeHandler{}
	srv, err := NewServer(handler, config.Secret(testSigningSecret), logging.NewNop(), nil)
	require.NoError(t, err)

	release := make(chan struct{})
	srv.inflight.Add(1)
	go func() {
		defer srv.inflight.Done()
		<-release
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = srv.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	assert.NoError(t, srv.Shutdown(ctx2))
}
