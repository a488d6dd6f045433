package utils

import "github.com/google/uuid"

// NewInviteCode returns a fresh random invite code. UUIDv4 gives enough
// entropy that collisions are practically impossible, but callers still
// collision-check against existing codes before handing one out.
func NewInviteCode() string {
	return uuid.NewString()
}

// NewSetupToken returns a one-time token used to bootstrap the first admin
// account. It is generated once at boot when SETUP_TOKEN is not injected
// via the environment and becomes invalid after the first successful use.
func NewSetupToken() (string, error) {
	return randomHex(24)
}
