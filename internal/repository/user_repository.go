package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/famasyang/flashcard/internal/utils"
)

// User mirrors the 'users' table. Every user owns exactly one invite code;
// the admin's code may be handed out any number of times while a regular
// user's code is consumed by the first registration that uses it.
type User struct {
	ID           uint64
	Username     string
	PasswordHash string
	Role         string // "admin" | "user"
	InviteCode   string
	InviteUsed   bool
	IsFrozen     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const RoleAdmin = "admin"
const RoleUser = "user"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,password_hash,role,invite_code,invite_used,is_frozen,created_at,updated_at"

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role,
		&u.InviteCode, &u.InviteUsed, &u.IsFrozen, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

// GetByInviteCode resolves the user holding the given invite code.
func (r *UserRepo) GetByInviteCode(ctx context.Context, code string) (User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE invite_code=? LIMIT 1", code))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidInvite
	}
	return u, err
}

// Register creates a new account gated by an invite code and returns the
// new user's id together with the fresh invite code minted for them.
// The username check, the consumption of the inviter's code and the insert
// run in one transaction, so two concurrent registrations cannot both spend
// the same single-use code.
func (r *UserRepo) Register(ctx context.Context, username, password, inviteCode string, cost int) (uint64, string, error) {
	username = strings.TrimSpace(username)

	// Taken usernames are reported before any invite problem, so a client
	// retrying with a new name keeps its unused code. The unique index
	// still backstops the race below.
	switch _, err := r.GetByUsername(ctx, username); {
	case err == nil:
		return 0, "", ErrUsernameExists
	case !errors.Is(err, ErrUserNotFound):
		return 0, "", err
	}

	inviter, err := r.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		return 0, "", err
	}
	if inviter.Role != RoleAdmin && inviter.InviteUsed {
		return 0, "", ErrInviteUsed
	}

	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, "", err
	}
	newCode, err := r.mintInviteCode(ctx)
	if err != nil {
		return 0, "", err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = tx.Rollback() }()

	if inviter.Role != RoleAdmin {
		// Guarded update: zero affected rows means another registration
		// consumed the code between our read and this write.
		res, err := tx.ExecContext(ctx,
			"UPDATE users SET invite_used=1 WHERE id=? AND invite_used=0", inviter.ID)
		if err != nil {
			return 0, "", err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return 0, "", ErrInviteUsed
		}
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role, invite_code) VALUES (?,?,?,?)",
		username, hash, RoleUser, newCode)
	if err != nil {
		if isDuplicate(err) {
			return 0, "", ErrUsernameExists
		}
		return 0, "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", err
	}
	if err := tx.Commit(); err != nil {
		return 0, "", err
	}
	return uint64(id), newCode, nil
}

// CreateAdmin provisions the bootstrap admin account. Only one admin row
// may ever exist; the caller is expected to hold the one-time setup token.
func (r *UserRepo) CreateAdmin(ctx context.Context, username, password string, cost int) (uint64, string, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role=?", RoleAdmin).Scan(&n); err != nil {
		return 0, "", err
	}
	if n > 0 {
		return 0, "", ErrAdminExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, "", err
	}
	code, err := r.mintInviteCode(ctx)
	if err != nil {
		return 0, "", err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role, invite_code) VALUES (?,?,?,?)",
		strings.TrimSpace(username), hash, RoleAdmin, code)
	if err != nil {
		if isDuplicate(err) {
			return 0, "", ErrUsernameExists
		}
		return 0, "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", err
	}
	return uint64(id), code, nil
}

// Authenticate verifies a username/password pair. Unknown usernames and
// wrong passwords both surface as ErrInvalidCredentials; frozen accounts
// are rejected after the password check so the error does not leak
// whether the password was right.
func (r *UserRepo) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := r.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	if u.IsFrozen {
		return User{}, ErrFrozen
	}
	return u, nil
}

// SetFrozen flips the frozen flag for a user.
func (r *UserRepo) SetFrozen(ctx context.Context, username string, frozen bool) error {
	u, err := r.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET is_frozen=? WHERE id=?", frozen, u.ID)
	return err
}

// Delete removes a user row. Refresh tokens cascade with the row; the
// caller owns cleaning up the user's card directory and learning records.
func (r *UserRepo) Delete(ctx context.Context, username string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE username=?", username)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RegenerateInviteCode mints a fresh code for a user and resets its used
// flag. The admin calls this on their own account to rotate the shared
// registration code.
func (r *UserRepo) RegenerateInviteCode(ctx context.Context, username string) (string, error) {
	u, err := r.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	code, err := r.mintInviteCode(ctx)
	if err != nil {
		return "", err
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET invite_code=?, invite_used=0 WHERE id=?", code, u.ID); err != nil {
		return "", err
	}
	return code, nil
}

// ListAll returns every account ordered by id, for the admin console.
func (r *UserRepo) ListAll(ctx context.Context) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role,
			&u.InviteCode, &u.InviteUsed, &u.IsFrozen, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// mintInviteCode generates invite codes until one does not collide with an
// existing row. UUIDv4 collisions are essentially impossible, so the loop
// runs once in practice; the check mirrors the unique constraint.
func (r *UserRepo) mintInviteCode(ctx context.Context) (string, error) {
	for {
		code := utils.NewInviteCode()
		var n int
		if err := r.DB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM users WHERE invite_code=?", code).Scan(&n); err != nil {
			return "", err
		}
		if n == 0 {
			return code, nil
		}
	}
}

// isDuplicate reports whether err is a MySQL duplicate-key violation (1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
