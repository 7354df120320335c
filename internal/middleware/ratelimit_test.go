package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	appmw "github.com/s1natex/daily-tasks-GO/internal/middleware"
)

func TestRateLimit_CommandsOnly(t *testing.T) {
	lim := rate.NewLimiter(0.5, 1) // one command every two seconds
	r := chi.NewRouter()
	r.Use(appmw.RateLimitMiddleware(lim))
	r.Post("/tasks", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })
	r.Get("/state", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	// first allowed
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	// second immediately should be 429
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}

	// reads are not limited
	for i := 0; i < 3; i++ {
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("read %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestNewLimiter_DisabledWhenZero(t *testing.T) {
	if l := appmw.NewLimiter(0, 10); l != nil {
		t.Fatalf("expected nil limiter for rps=0")
	}
	if l := appmw.NewLimiter(5, 0); l == nil || l.Burst() != 1 {
		t.Fatalf("expected burst clamped to 1")
	}
}
