package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newMockUserRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(db), mock
}

func userRow(id uint64, username, role, code string, used, frozen bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "username", "password_hash", "role", "invite_code",
		"invite_used", "is_frozen", "created_at", "updated_at",
	}).AddRow(id, username, "$2a$04$hash", role, code, used, frozen, now, now)
}

func expectNoSuchUsername(mock sqlmock.Sqlmock, username string) {
	mock.ExpectQuery("SELECT id,username,.+ FROM users WHERE username=").
		WithArgs(username).
		WillReturnError(sql.ErrNoRows)
}

func expectMintInviteCode(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE invite_code=?")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
}

func TestRegisterConsumesSingleUseInvite(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	expectNoSuchUsername(mock, "bob")
	mock.ExpectQuery("SELECT id,username,.+ FROM users WHERE invite_code=").
		WithArgs("alice-code").
		WillReturnRows(userRow(7, "alice", RoleUser, "alice-code", false, false))
	expectMintInviteCode(mock)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET invite_used=1 WHERE id=. AND invite_used=0").
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").
		WithArgs("bob", sqlmock.AnyArg(), RoleUser, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	id, code, err := repo.Register(context.Background(), "bob", "secret", "alice-code", bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.NotEmpty(t, code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRejectsConsumedInvite(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	expectNoSuchUsername(mock, "carol")
	mock.ExpectQuery("SELECT id,username,.+ FROM users WHERE invite_code=").
		WithArgs("alice-code").
		WillReturnRows(userRow(7, "alice", RoleUser, "alice-code", true, false))

	_, _, err := repo.Register(context.Background(), "carol", "secret", "alice-code", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrInviteUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A second registration that read the code as unused but loses the
// guarded update still fails, so a single-use code admits exactly one
// account.
func TestRegisterInviteRaceLoserFails(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	expectNoSuchUsername(mock, "carol")
	mock.ExpectQuery("SELECT id,username,.+ FROM users WHERE invite_code=").
		WithArgs("alice-code").
		WillReturnRows(userRow(7, "alice", RoleUser, "alice-code", false, false))
	expectMintInviteCode(mock)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET invite_used=1 WHERE id=. AND invite_used=0").
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, _, err := repo.Register(context.Background(), "carol", "secret", "alice-code", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrInviteUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The admin's code stays valid no matter how many registrations used it:
// no invite_used update is issued and a used flag does not block.
func TestRegisterAdminInviteReusable(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	expectNoSuchUsername(mock, "dave")
	mock.ExpectQuery("SELECT id,username,.+ FROM users WHERE invite_code=").
		WithArgs("root-code").
		WillReturnRows(userRow(1, "root", RoleAdmin, "root-code", true, false))
	expectMintInviteCode(mock)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("dave", sqlmock.AnyArg(), RoleUser, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(43, 1))
	mock.ExpectCommit()

	id, _, err := repo.Register(context.Background(), "dave", "secret", "root-code", bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, uint64(43), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterUnknownInvite(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	expectNoSuchUsername(mock, "eve")
	mock.ExpectQuery("SELECT id,username,.+ FROM users WHERE invite_code=").
		WithArgs("no-such-code").
		WillReturnError(sql.ErrNoRows)

	_, _, err := repo.Register(context.Background(), "eve", "secret", "no-such-code", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrInvalidInvite)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A taken username is reported before the invite code is even looked at,
// so the caller's code is not burned and the error names the field the
// client has to change.
func TestRegisterDuplicateUsernameBeforeInviteCheck(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	mock.ExpectQuery("SELECT id,username,.+ FROM users WHERE username=").
		WithArgs("alice").
		WillReturnRows(userRow(7, "alice", RoleUser, "alice-code", false, false))

	_, _, err := repo.Register(context.Background(), "alice", "secret", "garbage-code", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrUsernameExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
