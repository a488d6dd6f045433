// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them onto HTTP status codes: validation faults become 400/409,
// missing resources 404, credential problems 401/403 and anything
// else a 500.
package repository

import "errors"

// ErrUsernameExists is returned by Register when the requested username
// is already taken. Handlers should translate this into HTTP 409.
var ErrUsernameExists = errors.New("username already exists")

// ErrInvalidInvite is returned when no user holds the supplied invite code.
var ErrInvalidInvite = errors.New("invalid invite code")

// ErrInviteUsed is returned when the inviting user is not an admin and
// their single-use invite code has already been consumed.
var ErrInviteUsed = errors.New("invite code already used")

// ErrUserNotFound is returned when a username does not resolve to a row.
var ErrUserNotFound = errors.New("user not found")

// ErrInvalidCredentials is returned by Authenticate when the username is
// unknown or the password does not match the stored hash. The two cases
// are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrFrozen is returned by Authenticate when the account exists and the
// password matches but an admin has frozen the account.
var ErrFrozen = errors.New("account is frozen")

// ErrAdminExists is returned by CreateAdmin when the one-time bootstrap
// has already been performed.
var ErrAdminExists = errors.New("admin account already exists")

// ErrCardExists is returned by the card store when saving to a scope+name
// that already holds a card.
var ErrCardExists = errors.New("card name already exists")

// ErrCardNotFound is returned when a card is absent from both the private
// and the public scope.
var ErrCardNotFound = errors.New("card not found")
