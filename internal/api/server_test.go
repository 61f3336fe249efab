package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhruvsoni1802/dailydm/internal/bot"
	"github.com/dhruvsoni1802/dailydm/internal/jobs"
	"github.com/dhruvsoni1802/dailydm/internal/logging"
	"github.com/dhruvsoni1802/dailydm/internal/metrics"
)

var monday = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.Local)

type testServer struct {
	server      *Server
	coordinator *jobs.Coordinator
	release     chan struct{}
}

func setupServer(t *testing.T, messages string) *testServer {
	t.Helper()
	logger := logging.New(&bytes.Buffer{}, slog.LevelDebug)

	path := filepath.Join(t.TempDir(), "messages.json")
	require.NoError(t, os.WriteFile(path, []byte(messages), 0o644))

	release := make(chan struct{})
	runner := jobs.RunnerFunc(func(ctx context.Context) bot.Outcome {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return bot.Outcome{Success: true, Selection: bot.Selection{Weekday: "Monday", Message: "Hi"}}
	})
	coordinator := jobs.NewCoordinator(runner, nil, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		coordinator.Shutdown(ctx)
	})

	server := NewServer("0", Deps{
		Coordinator:  coordinator,
		Metrics:      metrics.NewRecorder(),
		MessagesFile: path,
		NextRun:      func() time.Time { return monday.Add(24 * time.Hour) },
		Now:          func() time.Time { return monday },
	}, logger)

	return &testServer{server: server, coordinator: coordinator, release: release}
}

func (ts *testServer) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	ts := setupServer(t, `{}`)

	rec := ts.do(t, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.False(t, body.Running)
	assert.Empty(t, body.CookieStore)
	require.NotNil(t, body.NextRun)
	assert.True(t, body.NextRun.Equal(monday.Add(24*time.Hour)))
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHealthReportsCookieStore(t *testing.T) {
	ts := setupServer(t, `{}`)
	handlers := NewHandlers(Deps{Coordinator: ts.coordinator, CookieStore: stubPinger{}})

	rec := httptest.NewRecorder()
	handlers.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	body := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.CookieStore)

	handlers = NewHandlers(Deps{Coordinator: ts.coordinator, CookieStore: stubPinger{err: errors.New("connection refused")}})
	rec = httptest.NewRecorder()
	handlers.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[HealthResponse](t, rec)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unreachable", body.CookieStore)
}

func TestTodaysMessage(t *testing.T) {
	ts := setupServer(t, `{"Monday": ["Hi"], "default": ["Hello"]}`)

	rec := ts.do(t, http.MethodGet, "/messages/today")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, TodaysMessageResponse{Day: "Monday", Key: "Monday", Message: "Hi"}, decode[TodaysMessageResponse](t, rec))
}

func TestTodaysMessageBuiltInFallback(t *testing.T) {
	ts := setupServer(t, `{"Tuesday": ["tue"]}`)

	rec := ts.do(t, http.MethodGet, "/messages/today")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, TodaysMessageResponse{Day: "Monday", Key: bot.FallbackKey, Message: bot.FallbackMessage}, decode[TodaysMessageResponse](t, rec))
}

func TestTodaysMessageUnreadable(t *testing.T) {
	ts := setupServer(t, `{"Monday": `)

	rec := ts.do(t, http.MethodGet, "/messages/today")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrCodeMessagesUnreadable, decode[ErrorResponse](t, rec).Error.Code)
}

func TestRunsLifecycle(t *testing.T) {
	ts := setupServer(t, `{}`)

	rec := ts.do(t, http.MethodGet, "/runs/latest")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrCodeRunNotFound, decode[ErrorResponse](t, rec).Error.Code)

	rec = ts.do(t, http.MethodPost, "/runs")
	require.Equal(t, http.StatusAccepted, rec.Code)
	started := decode[RunResponse](t, rec).Run
	assert.Equal(t, jobs.StatusRunning, started.Status)
	assert.Equal(t, jobs.TriggerAPI, started.Trigger)

	rec = ts.do(t, http.MethodPost, "/runs?force=true")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ErrCodeRunInProgress, decode[ErrorResponse](t, rec).Error.Code)

	assert.True(t, decode[HealthResponse](t, ts.do(t, http.MethodGet, "/healthz")).Running)

	close(ts.release)
	ts.coordinator.Wait()

	rec = ts.do(t, http.MethodGet, "/runs/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	latest := decode[RunResponse](t, rec).Run
	assert.Equal(t, started.ID, latest.ID)
	assert.Equal(t, jobs.StatusSucceeded, latest.Status)
	assert.Equal(t, "Hi", latest.Message)

	rec = ts.do(t, http.MethodPost, "/runs")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ErrCodeAlreadySentToday, decode[ErrorResponse](t, rec).Error.Code)

	rec = ts.do(t, http.MethodPost, "/runs?force=true")
	require.Equal(t, http.StatusAccepted, rec.Code)
	ts.coordinator.Wait()
}

func TestStartRunRejectsBadForce(t *testing.T) {
	ts := setupServer(t, `{}`)

	rec := ts.do(t, http.MethodPost, "/runs?force=maybe")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrCodeInvalidRequest, decode[ErrorResponse](t, rec).Error.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupServer(t, `{}`)

	rec := ts.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dailydm_runs_total")
}

func TestCORSPreflight(t *testing.T) {
	ts := setupServer(t, `{}`)

	req := httptest.NewRequest(http.MethodOptions, "/runs", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := logging.New(&bytes.Buffer{}, slog.LevelDebug)
	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrCodeInternalError, decode[ErrorResponse](t, rec).Error.Code)
}
