package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("secret", 2, 7)

	access, err := m.GenerateToken("u1", "email")
	require.NoError(t, err)
	claims, err := m.VerifyTyped(access, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "email", claims.LoginType)
	assert.NotEmpty(t, claims.ID)

	refresh, err := m.GenerateRefreshToken("u1", "email")
	require.NoError(t, err)
	_, err = m.VerifyTyped(refresh, TypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	a := NewJWTManager("a", 1, 1)
	b := NewJWTManager("b", 1, 1)
	tok, err := a.GenerateToken("u1", "phone")
	require.NoError(t, err)
	_, err = b.VerifyToken(tok)
	assert.Error(t, err)
}

func TestPeekExpiry(t *testing.T) {
	m := NewJWTManagerWithDurations("secret", 90*time.Second, time.Hour)
	tok, err := m.GenerateToken("u1", "qq")
	require.NoError(t, err)

	exp, err := PeekExpiry(tok)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(90*time.Second), exp, 2*time.Second)

	_, err = PeekExpiry("opaque-token")
	assert.Error(t, err)
}

func TestGenerateNumericCode(t *testing.T) {
	code := GenerateNumericCode(6)
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9')
	}
}
