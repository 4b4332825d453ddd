package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newRateLimitedRouter(rate int, interval time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rl := NewRateLimiter(rate, interval)
	r.GET("/limited", rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRequest(r *gin.Engine, ip string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.RemoteAddr = ip + ":12345"
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	r := newRateLimitedRouter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if code := doRequest(r, "10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, code)
		}
	}
}

func TestRateLimiterBlocksOverBudget(t *testing.T) {
	r := newRateLimitedRouter(2, time.Minute)

	doRequest(r, "10.0.0.2")
	doRequest(r, "10.0.0.2")

	if code := doRequest(r, "10.0.0.2"); code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", code)
	}
}

func TestRateLimiterIsolatesIPs(t *testing.T) {
	r := newRateLimitedRouter(1, time.Minute)

	if code := doRequest(r, "10.0.0.3"); code != http.StatusOK {
		t.Fatalf("first IP: status = %d, want 200", code)
	}
	if code := doRequest(r, "10.0.0.4"); code != http.StatusOK {
		t.Errorf("second IP should have its own bucket, got %d", code)
	}
	if code := doRequest(r, "10.0.0.3"); code != http.StatusTooManyRequests {
		t.Errorf("exhausted IP: status = %d, want 429", code)
	}
}
