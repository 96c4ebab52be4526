package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRateLimiter_Burst(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("expected request beyond burst to be rejected")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("expected other client to have its own bucket")
	}

	clock = clock.Add(time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Error("expected a token to refill after one second")
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(5, 5)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.Allow("old")
	clock = clock.Add(9 * time.Minute)
	rl.Allow("recent")
	clock = clock.Add(2 * time.Minute)

	if removed := rl.Sweep(); removed != 1 {
		t.Errorf("expected 1 client removed, got %d", removed)
	}
	if _, ok := rl.clients["recent"]; !ok {
		t.Error("expected recent client to be kept")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	mw := RateLimit(rl, nil)
	e := echo.New()

	do := func() error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		return mw(okHandler)(e.NewContext(req, rec))
	}

	if err := do(); err != nil {
		t.Fatalf("first request: unexpected error %v", err)
	}
	err := do()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
}

func TestRateLimit_CustomKey(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	mw := RateLimit(rl, func(c echo.Context) string { return c.Request().Header.Get("X-User") })
	e := echo.New()

	for _, user := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User", user)
		rec := httptest.NewRecorder()
		if err := mw(okHandler)(e.NewContext(req, rec)); err != nil {
			t.Errorf("user %s: unexpected error %v", user, err)
		}
	}
}
