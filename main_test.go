package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/s1natex/daily-tasks-GO/internal/clock"
	"github.com/s1natex/daily-tasks-GO/internal/config"
	"github.com/s1natex/daily-tasks-GO/internal/tasks"
)

func newTestRouter(t *testing.T, rps float64) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{}))
	clk := clock.NewFake(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	store := tasks.NewStore(context.Background(), tasks.NewInMemoryRepo(), clk,
		tasks.WithLocation(time.UTC), tasks.WithLogger(logger))
	cfg := &config.Config{
		CORSAllowedOrigins: []string{"*"},
		RateLimitRPS:       rps,
		RateLimitBurst:     1,
	}
	return newRouter(store, cfg, logger)
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, 0)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if body["status"] != "ok" || body["today"] != "2024-01-01" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestRouter_CommandFlow(t *testing.T) {
	r := newTestRouter(t, 0)

	req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{"title":"wired"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body=%s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/state", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"title":"wired"`) {
		t.Fatalf("expected state to contain the new task, got %s", w.Body.String())
	}
}

func TestRouter_RateLimitsCommands(t *testing.T) {
	r := newTestRouter(t, 0.5)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{"title":"x"}`))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [201 429], got %v", codes)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_requests_in_flight") {
		t.Fatalf("expected HTTP metrics in exposition")
	}
}

func TestServer_ShutdownWithOpenEventStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := newServer(ctx, ln.Addr().String(), newTestRouter(t, 0))
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/events")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if _, err := bufio.NewReader(resp.Body).ReadString('\n'); err != nil {
		t.Fatalf("read first event line: %v", err)
	}

	// what the signal handler does in run()
	cancel()
	sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer scancel()
	start := time.Now()
	if err := srv.Shutdown(sctx); err != nil {
		t.Fatalf("shutdown with open stream: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("shutdown took %s, expected prompt return", elapsed)
	}
	if err := <-served; err != http.ErrServerClosed {
		t.Fatalf("expected ErrServerClosed from Serve, got %v", err)
	}
}

func TestStartMonitor_DoneAfterCancel(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{}))
	clk := clock.NewFake(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	store := tasks.NewStore(context.Background(), tasks.NewInMemoryRepo(), clk,
		tasks.WithLocation(time.UTC), tasks.WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := startMonitor(ctx, tasks.NewMonitor(store, clk, time.Minute, logger))

	select {
	case <-done:
		t.Fatal("monitor returned before cancel")
	default:
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("done channel not closed after cancel")
	}
	if n := clk.Tickers(); n != 0 {
		t.Fatalf("expected monitor ticker stopped, %d still active", n)
	}
}
