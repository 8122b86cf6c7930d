package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webappbot/internal/platform/metrics"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouter_Health(t *testing.T) {
	r := NewRouter(Options{Release: true, Log: quiet})
	rec := do(t, r, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	var logged bytes.Buffer
	r = NewRouter(Options{
		Release: true,
		Log:     slog.New(slog.NewTextHandler(&logged, nil)),
		Health: func(context.Context) error {
			return errors.New("failed to connect to `user=bot database=bot`: 10.0.0.5:5432: dial error")
		},
	})
	rec = do(t, r, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Contains(t, logged.String(), "10.0.0.5", "the cause is logged instead")
}

func TestRouter_Metrics(t *testing.T) {
	m := metrics.New()
	m.SetVisitors(4)

	rec := do(t, NewRouter(Options{Release: true, Log: quiet, Metrics: m.Handler()}), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "webappbot_visitors 4")

	rec = do(t, NewRouter(Options{Release: true, Log: quiet}), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Webhook(t *testing.T) {
	var hits int
	hook := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	})
	r := NewRouter(Options{Release: true, Log: quiet, Webhook: hook})

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, WebhookPath).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, WebhookPath).Code)
	assert.Equal(t, 1, hits)

	r = NewRouter(Options{Release: true, Log: quiet})
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPost, WebhookPath).Code)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Options{Release: true, Log: quiet})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
}
