package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	tok, err := m.GenerateToken("abc", "Member")
	require.NoError(t, err)

	claims, err := m.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.UserID)
	assert.Equal(t, "Member", claims.Role)
}

func TestJWTRejectsWrongSecretAndExpired(t *testing.T) {
	tok, err := NewJWTManager("one", time.Hour).GenerateToken("abc", "Member")
	require.NoError(t, err)
	_, err = NewJWTManager("two", time.Hour).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewJWTManager("one", -time.Minute).GenerateToken("abc", "Member")
	require.NoError(t, err)
	_, err = NewJWTManager("one", time.Hour).ValidateToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{UserID: "abc", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTManager("secret", time.Hour).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "other"))
}

func TestLoadBlackList(t *testing.T) {
	list, err := LoadBlackList("")
	require.NoError(t, err)
	assert.Empty(t, list)

	path := filepath.Join(t.TempDir(), "common.txt")
	require.NoError(t, os.WriteFile(path, []byte("123456\n\npassword\n"), 0o600))
	list, err = LoadBlackList(path)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.True(t, list["password"])
}
