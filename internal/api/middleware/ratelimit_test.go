package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

type stubLimiter struct {
	keys       []string
	allow      bool
	retryAfter time.Duration
	err        error
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	s.keys = append(s.keys, key)
	return s.allow, s.retryAfter, s.err
}

func runRateLimit(t *testing.T, l *stubLimiter, user *domain.User) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/chat", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		SetIdentity(c, user)
	}

	called := false
	err := RateLimit(l, zerolog.Nop())(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, called
}

func TestRateLimit_KeysByUserOrIP(t *testing.T) {
	l := &stubLimiter{allow: true}

	runRateLimit(t, l, &domain.User{Username: "alice", Role: domain.RoleUser})
	runRateLimit(t, l, nil)
	runRateLimit(t, l, &domain.User{Username: "anonymous", Role: domain.RoleAnonymous})

	want := []string{"user:alice", "ip:203.0.113.7", "ip:203.0.113.7"}
	for i, k := range want {
		if l.keys[i] != k {
			t.Fatalf("key %d: expected %q, got %q", i, k, l.keys[i])
		}
	}
}

func TestRateLimit_Rejects(t *testing.T) {
	rec, called := runRateLimit(t, &stubLimiter{allow: false, retryAfter: 1500 * time.Millisecond}, nil)
	if called {
		t.Fatalf("handler should not run")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	rec, called := runRateLimit(t, &stubLimiter{err: errors.New("redis down")}, nil)
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected request to pass when limiter errors, got %d", rec.Code)
	}
}
