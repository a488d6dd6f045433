package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/famasyang/flashcard/internal/config"
	"github.com/famasyang/flashcard/internal/repository"
	"github.com/famasyang/flashcard/internal/utils"
)

// SetupToken guards the first-boot admin bootstrap endpoint. The token
// is injected through SETUP_TOKEN or generated and logged once at
// startup; a successful bootstrap clears it and it is never
// regenerated for the lifetime of the process.
type SetupToken struct {
	mu    sync.Mutex
	token string
}

// NewSetupToken builds the gate from the configured token, minting and
// logging one when the environment did not supply any.
func NewSetupToken(configured string) (*SetupToken, error) {
	if configured != "" {
		return &SetupToken{token: configured}, nil
	}
	tok, err := utils.NewSetupToken()
	if err != nil {
		return nil, err
	}
	log.Printf("setup: admin bootstrap token: %s", tok)
	return &SetupToken{token: tok}, nil
}

// Consume atomically checks the presented token and burns it on match.
func (s *SetupToken) Consume(presented string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || presented == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(s.token), []byte(presented)) != 1 {
		return false
	}
	s.token = ""
	return true
}

// AdminHandler serves the admin console endpoints plus the one-time
// admin bootstrap.
type AdminHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Tokens  *repository.TokenRepo
	Records *repository.RecordRepo
	Cards   *repository.CardStore
	Setup   *SetupToken
}

func NewAdminHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, r *repository.RecordRepo, cards *repository.CardStore, setup *SetupToken) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Users: u, Tokens: t, Records: r, Cards: cards, Setup: setup}
}

type setupReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type usernameReq struct {
	Username string `json:"username"`
}
type freezeReq struct {
	Username string `json:"username"`
	Frozen   bool   `json:"frozen"`
}
type cardNameReq struct {
	Name string `json:"name"`
}

// SetupAdmin creates the first admin account. The URL token is
// single-use: after one successful bootstrap the route is dead until
// the process restarts with a new token, and CreateAdmin refuses a
// second admin row anyway.
func (h *AdminHandler) SetupAdmin(c echo.Context) error {
	var req setupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}
	if !h.Setup.Consume(c.Param("token")) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, inviteCode, err := h.Users.CreateAdmin(ctx, req.Username, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAdminExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "admin already exists"})
		case errors.Is(err, repository.ErrUsernameExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create admin failed"})
	}

	if err := h.Cards.EnsureUserDir(req.Username); err != nil {
		log.Printf("setup: provision card dir for %q failed: %v", req.Username, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":     "admin created",
		"invite_code": inviteCode,
	})
}

// GenerateInviteCode replaces the admin's own invite code with a fresh
// one. The admin code is reusable, so regeneration is about rotation,
// not replenishment.
func (h *AdminHandler) GenerateInviteCode(c echo.Context) error {
	username, err := getUsername(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	code, err := h.Users.RegenerateInviteCode(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "regenerate failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"invite_code": code})
}

// adminUser is the console listing shape. Password hashes never leave
// the repository layer.
type adminUser struct {
	ID         uint64    `json:"id"`
	Username   string    `json:"username"`
	Role       string    `json:"role"`
	InviteCode string    `json:"invite_code"`
	InviteUsed bool      `json:"invite_used"`
	IsFrozen   bool      `json:"is_frozen"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListUsers returns every account for the admin console.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminUser, 0, len(users))
	for _, u := range users {
		out = append(out, adminUser{
			ID:         u.ID,
			Username:   u.Username,
			Role:       u.Role,
			InviteCode: u.InviteCode,
			InviteUsed: u.InviteUsed,
			IsFrozen:   u.IsFrozen,
			CreatedAt:  u.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// ViewRecords returns every per-user per-day learning total.
func (h *AdminHandler) ViewRecords(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	records, err := h.Records.AllRecords(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"records": records})
}

// FreezeUser toggles an account's frozen flag. Freezing also revokes
// every live refresh token so the lockout takes effect at the next
// access-token expiry rather than at the next login.
func (h *AdminHandler) FreezeUser(c echo.Context) error {
	var req freezeReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username required"})
	}
	req.Username = strings.TrimSpace(req.Username)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.Role == repository.RoleAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot freeze an admin"})
	}

	if err := h.Users.SetFrozen(ctx, req.Username, req.Frozen); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if req.Frozen {
		if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
			log.Printf("freeze: revoke sessions for %q failed: %v", req.Username, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"username": req.Username, "frozen": req.Frozen})
}

// DeleteUser removes an account with its sessions, private cards and
// learning records.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	var req usernameReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username required"})
	}
	req.Username = strings.TrimSpace(req.Username)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.Role == repository.RoleAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete an admin"})
	}

	// Refresh tokens go with the row via ON DELETE CASCADE.
	if err := h.Users.Delete(ctx, req.Username); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete user failed"})
	}
	if err := h.Records.DeleteForUser(ctx, req.Username); err != nil {
		log.Printf("delete-user: purge records for %q failed: %v", req.Username, err)
	}
	if err := h.Cards.RemoveUserDir(req.Username); err != nil {
		log.Printf("delete-user: remove card dir for %q failed: %v", req.Username, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteCard removes a card by name: the public copy when one exists,
// otherwise the admin's own private copy.
func (h *AdminHandler) DeleteCard(c echo.Context) error {
	username, err := getUsername(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req cardNameReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name := utils.SanitizeCardName(req.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid card name"})
	}

	if err := h.Cards.Delete(name, username); err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "card not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete card failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadGlobalCard stores a multipart .txt upload in the public scope.
func (h *AdminHandler) UploadGlobalCard(c echo.Context) error {
	username, err := getUsername(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	name, content, _, err := readMultipartCard(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	name = utils.SanitizeCardName(name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid card name"})
	}
	if len(repository.ParseCard(content)) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "card has no valid entries"})
	}

	if err := h.Cards.Save(name, content, username, true); err != nil {
		if errors.Is(err, repository.ErrCardExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "card already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save card failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "card uploaded", "name": name})
}
