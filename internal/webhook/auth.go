package webhook

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderSharedSecret authenticates the telephony provider's webhook
// deliveries. The provider is configured with the same value out of band.
const HeaderSharedSecret = "X-Webhook-Secret"

// RequireSharedSecret compares the shared-secret header in constant time.
// An empty configured secret disables the check entirely; that is only
// acceptable outside production and is logged loudly at wiring time.
func RequireSharedSecret(secret string) gin.HandlerFunc {
	if secret == "" {
		slog.Warn("webhook shared secret not configured, auth check disabled")
		return func(c *gin.Context) { c.Next() }
	}
	want := []byte(secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(HeaderSharedSecret))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				ErrorCode: "unauthorized",
				Message:   "missing or invalid webhook secret",
			})
			return
		}
		c.Next()
	}
}
