package webhook

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"golang.org/x/time/rate"
)

func secretRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireSharedSecret(secret))
	r.POST("/webhooks/voice", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRequireSharedSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"correct secret passes", "s3cret", "s3cret", http.StatusOK},
		{"wrong secret rejected", "s3cret", "nope", http.StatusUnauthorized},
		{"missing header rejected", "s3cret", "", http.StatusUnauthorized},
		{"empty configured secret disables check", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := secretRouter(tt.secret)
			req := httptest.NewRequest(http.MethodPost, "/webhooks/voice", nil)
			if tt.header != "" {
				req.Header.Set(HeaderSharedSecret, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("got %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(rate.Limit(1), 2)
	r := gin.New()
	r.Use(rl.Middleware())
	r.POST("/webhooks/voice", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/voice", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests must pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request must be limited, got %v", codes)
	}
}

func TestRateLimiter_PerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(rate.Limit(1), 1)
	r := gin.New()
	r.Use(rl.Middleware())
	r.POST("/webhooks/voice", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/voice", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if got := send("10.0.0.1:1"); got != http.StatusOK {
		t.Fatalf("first ip first request: got %d", got)
	}
	if got := send("10.0.0.1:1"); got != http.StatusTooManyRequests {
		t.Fatalf("first ip second request must be limited: got %d", got)
	}
	// A different client is budgeted independently.
	if got := send("10.0.0.2:1"); got != http.StatusOK {
		t.Fatalf("second ip must have its own budget: got %d", got)
	}
}
