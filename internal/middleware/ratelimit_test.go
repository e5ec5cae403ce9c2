package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// newLimiterTest spins up an in-memory Redis and an Echo route guarded by
// the limiter under test.
func newLimiterTest(t *testing.T, max int, window time.Duration) (*echo.Echo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RateLimit(rdb, "login", max, window))

	return e, mr
}

func doRequest(e *echo.Echo, ip string) int {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":51234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	e, _ := newLimiterTest(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if code := doRequest(e, "198.51.100.7"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
}

func TestRateLimit_BlocksOverLimit(t *testing.T) {
	e, _ := newLimiterTest(t, 2, time.Minute)

	doRequest(e, "198.51.100.7")
	doRequest(e, "198.51.100.7")

	if code := doRequest(e, "198.51.100.7"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", code)
	}
}

func TestRateLimit_PerIPIsolation(t *testing.T) {
	e, _ := newLimiterTest(t, 1, time.Minute)

	doRequest(e, "198.51.100.7")
	if code := doRequest(e, "198.51.100.7"); code != http.StatusTooManyRequests {
		t.Fatalf("expected first IP throttled, got %d", code)
	}

	// A different client must not be affected.
	if code := doRequest(e, "203.0.113.9"); code != http.StatusOK {
		t.Fatalf("expected second IP allowed, got %d", code)
	}
}

func TestRateLimit_WindowExpiry(t *testing.T) {
	e, mr := newLimiterTest(t, 1, time.Minute)

	doRequest(e, "198.51.100.7")
	if code := doRequest(e, "198.51.100.7"); code != http.StatusTooManyRequests {
		t.Fatalf("expected throttled within window, got %d", code)
	}

	// miniredis clocks are manual; advance past the window.
	mr.FastForward(61 * time.Second)

	if code := doRequest(e, "198.51.100.7"); code != http.StatusOK {
		t.Fatalf("expected allowed after window expiry, got %d", code)
	}
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RateLimit(rdb, "login", 1, time.Minute))

	mr.Close()

	if code := doRequest(e, "198.51.100.7"); code != http.StatusOK {
		t.Fatalf("expected fail-open 200 with redis down, got %d", code)
	}
}
