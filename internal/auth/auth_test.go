package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
	assert.False(t, CheckPassword("not-a-hash", "hunter22"))

	_, err = HashPassword("abc")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestIssuer(t *testing.T) {
	iss, err := NewIssuer("0123456789abcdef-secret", time.Hour)
	require.NoError(t, err)

	token, exp, err := iss.Issue(42, "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := iss.Parse(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "alice", claims.Username)
}

func TestIssuerRejects(t *testing.T) {
	iss, err := NewIssuer("0123456789abcdef-secret", time.Hour)
	require.NoError(t, err)
	other, err := NewIssuer("another-secret-of-length", time.Hour)
	require.NoError(t, err)

	forged, _, err := other.Issue(1, "mallory")
	require.NoError(t, err)
	_, err = iss.Parse(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, _, err := iss.Issue(1, "bob")
	require.NoError(t, err)
	iss.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = iss.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewIssuer("short", time.Hour)
	assert.Error(t, err)
}
