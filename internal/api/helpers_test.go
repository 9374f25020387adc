package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/star64ccs/CardStrategy-sub008/internal/api/shared"
	"github.com/star64ccs/CardStrategy-sub008/internal/monitor"
	"github.com/star64ccs/CardStrategy-sub008/internal/provider"
	"github.com/star64ccs/CardStrategy-sub008/internal/task"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gate blocks executor calls until released.
type gate struct {
	release chan struct{}
}

func newGate() *gate {
	return &gate{release: make(chan struct{})}
}

func (g *gate) executor() *task.MockExecutor {
	m := task.NewMockExecutor()
	next := m.ExecuteFn
	m.ExecuteFn = func(ctx context.Context, prompt string, cfg task.RequestConfig) (*task.Response, error) {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return next(ctx, prompt, cfg)
	}
	return m
}

func (g *gate) open() { close(g.release) }

type testServer struct {
	handler   http.Handler
	scheduler *task.Scheduler
	monitor   *monitor.Monitor
	router    *provider.Router
}

type serverOption func(*task.SchedulerConfig)

func newTestServer(t *testing.T, exec task.Executor, initialize bool, opts ...serverOption) *testServer {
	t.Helper()

	logger := discardLogger()
	router := provider.NewRouter("mock", logger)
	router.Register("mock", exec)

	cfg := task.DefaultSchedulerConfig()
	cfg.DispatchInterval = 5 * time.Millisecond
	cfg.HealthInterval = time.Hour
	for _, opt := range opts {
		opt(&cfg)
	}

	sched := task.NewScheduler(router, router, cfg, logger)
	if initialize {
		require.NoError(t, sched.Initialize(context.Background()))
	}
	t.Cleanup(sched.Stop)

	mon := monitor.NewMonitor(sched, monitor.DefaultConfig(), logger)

	return &testServer{
		handler: NewRouter(logger,
			NewTaskHandler(sched),
			NewMonitorHandler(mon, nil),
			NewProviderHandler(router),
		),
		scheduler: sched,
		monitor:   mon,
		router:    router,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	return decode[shared.ErrorResponse](t, rec)
}
