package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clubstack/memberhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func newLimitedRouter(limit int, window time.Duration) *gin.Engine {
	rl := middlewares.NewRateLimiter(limit, window)

	r := gin.New()
	r.POST("/login", rl.RateLimiterMiddleware(middlewares.KeyByIP), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func hit(r http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	r := newLimitedRouter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d: got status %d, want 200", i+1, w.Code)
		}
	}

	w := hit(r, "10.0.0.1:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("got status %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After header")
	}
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	r := newLimitedRouter(1, time.Minute)

	if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("first client: got status %d", w.Code)
	}
	if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("first client second hit: got status %d, want 429", w.Code)
	}

	// a different source address gets its own bucket
	if w := hit(r, "10.0.0.2:1234"); w.Code != http.StatusOK {
		t.Fatalf("second client: got status %d, want 200", w.Code)
	}
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	r := newLimitedRouter(1, 30*time.Millisecond)

	if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
	if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("got status %d, want 429", w.Code)
	}

	time.Sleep(50 * time.Millisecond)

	if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("after the window: got status %d, want 200", w.Code)
	}
}
