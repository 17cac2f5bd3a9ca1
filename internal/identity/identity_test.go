package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	r := NewResolver("test-secret", 5*time.Minute)

	token, exp, err := r.NewToken(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	memberID, err := r.ResolveMember(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), memberID)
}

func TestResolveRejectsWrongSecret(t *testing.T) {
	token, _, err := NewResolver("secret-a", time.Minute).NewToken(7)
	require.NoError(t, err)

	_, err = NewResolver("secret-b", time.Minute).ResolveMember(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveRejectsExpiredToken(t *testing.T) {
	r := NewResolver("test-secret", -time.Minute)
	token, _, err := r.NewToken(7)
	require.NoError(t, err)

	_, err = r.ResolveMember(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveRejectsAccessTokenShapedJWT(t *testing.T) {
	// A token signed with the right secret but without the check-in use
	// claim must not open the door.
	claims := jwt.MapClaims{
		"sub": "7",
		"exp": time.Now().Add(time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewResolver("test-secret", time.Minute).ResolveMember(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveRejectsGarbage(t *testing.T) {
	r := NewResolver("test-secret", time.Minute)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := r.ResolveMember(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}
