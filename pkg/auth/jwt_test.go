package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "wellness-admin", time.Hour)

	token, err := svc.GenerateToken("Dr. Kim", "kim@clinic.com")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Kim", claims.Name)
	assert.Equal(t, "kim@clinic.com", claims.Email)
}

func TestJWT_Rejects(t *testing.T) {
	svc := NewJWTService("secret", "wellness-admin", time.Hour)

	other, err := NewJWTService("other", "wellness-admin", time.Hour).GenerateToken("x", "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewJWTService("secret", "someone-else", time.Hour).GenerateToken("x", "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, StaffClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "wellness-admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
