// Package router wires handlers, JWT auth and role checks onto the Echo
// instance. Route groups mirror the access tiers: public, any
// authenticated account, admin only.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/famasyang/flashcard/internal/handler"
	"github.com/famasyang/flashcard/internal/middleware"
	"github.com/famasyang/flashcard/internal/repository"
)

// The rate limiter is attached per group rather than globally: on
// protected groups it runs after JWTAuth so buckets key on the username
// claim, while public routes fall back to ip/guest keying. A global
// limiter would see every request before JWT parsing and collapse all
// user buckets into one.

// RegisterRoutes registers routes that never require authentication:
// the health check, the admin bootstrap and the public leaderboard.
// The leaderboard takes the response-cache middleware because it is the
// hottest read in the system; the health check skips the limiter so
// probes cannot be starved out.
func RegisterRoutes(e *echo.Echo, admin *handler.AdminHandler, records *handler.RecordHandler, cache, limit echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)
	e.POST("/v1/setup/admin/:token", admin.SetupAdmin, limit)
	e.GET("/v1/leaderboard", records.Leaderboard, limit, cache)
}

// RegisterAuth registers the session endpoints. Register, login,
// refresh and logout live under /v1/auth and carry no JWT; /v1/me
// requires a valid access token with any known role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.Use(limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(limit)
	auth.Use(middleware.RequireRole(repository.RoleAdmin, repository.RoleUser))
	auth.GET("/me", a.Me)
}

// RegisterCards registers the card and record endpoints available to
// every authenticated account.
func RegisterCards(e *echo.Echo, cards *handler.CardHandler, records *handler.RecordHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(limit)
	g.Use(middleware.RequireRole(repository.RoleAdmin, repository.RoleUser))

	g.GET("/cards", cards.List)
	g.GET("/cards/:name", cards.Get)
	g.GET("/cards/:name/question/:index", cards.Question)
	g.POST("/cards", cards.Upload)
	g.DELETE("/cards/:name", cards.Delete)

	g.POST("/records", records.Record)
}

// RegisterAdmin registers the admin console under /v1/admin. Every
// route requires the admin role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(limit)
	g.Use(middleware.RequireRole(repository.RoleAdmin))

	g.POST("/invite-code", a.GenerateInviteCode)
	g.GET("/users", a.ListUsers)
	g.GET("/records", a.ViewRecords)
	g.POST("/freeze-user", a.FreezeUser)
	g.POST("/delete-user", a.DeleteUser)
	g.POST("/delete-card", a.DeleteCard)
	g.POST("/upload-global-card", a.UploadGlobalCard)
}
