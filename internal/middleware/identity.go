package middleware

// identity.go defines helper functions shared across middleware files. The
// rate limiter keys buckets per user where possible, so it needs a cheap
// identity lookup that works for both authenticated and guest requests.

import (
    "github.com/labstack/echo/v4"
)

// identityKey returns the username JWTAuth stored in the context, or
// "guest" when the request is unauthenticated (public routes run the rate
// limiter before any JWT parsing).
func identityKey(c echo.Context) string {
    if v, ok := c.Get("username").(string); ok && v != "" {
        return v
    }
    return "guest"
}
