package handler // handler defines http handlers

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/famasyang/flashcard/internal/repository"
)

// getUsername extracts the username claim JWTAuth stored in the context.
// Card scoping and learning records key on the username, so nearly every
// protected handler starts here.
func getUsername(c echo.Context) (string, error) {
	if v, ok := c.Get("username").(string); ok && v != "" {
		return v, nil
	}
	return "", errors.New("missing username in context")
}

// isAdmin reports whether the request carries the admin role claim.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == repository.RoleAdmin
}
