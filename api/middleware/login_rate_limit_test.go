package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmoratto/storefront-backend/pkg/config"
)

type fakeLimiter struct {
	counts map[string]int64
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: map[string]int64{}}
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func loginRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.9:4431"
	return req
}

func TestLoginRateLimitBlocksAfterEmailLimit(t *testing.T) {
	limiter := newFakeLimiter()
	cfg := config.RateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 100, LoginEmailLimit: 2}
	handler := LoginRateLimit(cfg, limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, loginRequest(`{"email":"A@example.com","password":"x"}`))
		if resp.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i+1, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest(`{"email":"a@EXAMPLE.com","password":"x"}`))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}

func TestLoginRateLimitBlocksAfterIPLimit(t *testing.T) {
	limiter := newFakeLimiter()
	cfg := config.RateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 1, LoginEmailLimit: 0}
	handler := LoginRateLimit(cfg, limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest(`{}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest(`{}`))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}

func TestLoginRateLimitDisabledWithoutLimits(t *testing.T) {
	handler := LoginRateLimit(config.RateLimitConfig{}, newFakeLimiter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest(`{}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected passthrough, got %d", resp.Code)
	}
}

func TestLoginRateLimitPreservesBodyForHandler(t *testing.T) {
	limiter := newFakeLimiter()
	cfg := config.RateLimitConfig{LoginWindow: time.Minute, LoginEmailLimit: 5}
	var seen string
	handler := LoginRateLimit(cfg, limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		seen = string(raw)
		w.WriteHeader(http.StatusOK)
	}))

	body := `{"email":"a@example.com","password":"x"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest(body))
	if seen != body {
		t.Fatalf("handler saw %q, want %q", seen, body)
	}
}
