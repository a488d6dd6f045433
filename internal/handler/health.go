package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers liveness probes with a plain "ok". No store is touched,
// so the endpoint stays up even when MySQL or Redis is down.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
