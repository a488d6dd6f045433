package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", 4) // low cost keeps the test fast
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, VerifyPassword(hash, "s3cret"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword("not a hash", "s3cret"))
}

func TestNewAccessTokenClaims(t *testing.T) {
	at, err := NewAccessToken("test-secret", 42, "alice", "user", 15)
	require.NoError(t, err)
	require.NotEmpty(t, at.Token)

	tok, err := jwt.Parse(at.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)

	claims, ok := tok.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.EqualValues(t, 42, claims["sub"])
	assert.Equal(t, "alice", claims["username"])
	assert.Equal(t, "user", claims["role"])
}

func TestNewRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(7)
	require.NoError(t, err)

	assert.Len(t, rt.Raw, 96) // 48 random bytes hex-encoded

	other, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.NotEqual(t, rt.Raw, other.Raw)

	// Hashing is deterministic and never stores the raw value.
	assert.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))
	assert.NotEqual(t, rt.Raw, HashRefreshRaw(rt.Raw))
}

func TestNewInviteCode(t *testing.T) {
	a := NewInviteCode()
	b := NewInviteCode()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestSanitizeCardName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "animals.txt", "animals"},
		{"no extension", "animals", "animals"},
		{"spaces and symbols", "my animals (v2).txt", "my_animals__v2_"},
		{"path traversal", "../../etc/passwd", "passwd"},
		{"all non ascii", "动物.txt", ""},
		{"mixed ascii", "动物-cards.txt", "__-cards"},
		{"only illegal", "<>?.txt", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeCardName(tt.in))
		})
	}
}
