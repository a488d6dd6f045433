package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/famasyang/flashcard/internal/config"
)

func rateContext(username string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/cards", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if username != "" {
		c.Set("username", username)
	}
	return c
}

// Buckets must separate per account once JWTAuth has stored the
// username claim; the limiter is registered after JWTAuth on protected
// groups exactly so this holds.
func TestBuildRateKeyPerUser(t *testing.T) {
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}

	assert.Equal(t, "rl:user:alice", buildRateKey(cfg, rateContext("alice")))
	assert.Equal(t, "rl:user:bob", buildRateKey(cfg, rateContext("bob")))
}

// Public routes carry no claims and share the guest bucket per strategy.
func TestBuildRateKeyGuestFallback(t *testing.T) {
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}

	assert.Equal(t, "rl:user:guest", buildRateKey(cfg, rateContext("")))
}
