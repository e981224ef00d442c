package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-console-api/internal/models"
	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
)

func testIdentity() TokenIdentity {
	return TokenIdentity{
		UserID:          "u-1",
		Username:        "alice",
		DeptID:          "d-1",
		DataScope:       models.DataScopeDept,
		Roles:           []string{"ADMIN", "OPS"},
		SecurityVersion: 3,
	}
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret", "admin-console")

	signed, err := codec.Issue(testIdentity(), models.TokenTypeAccess, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := codec.Parse(signed)
	require.NoError(t, err)

	assert.Equal(t, models.TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "d-1", claims.DeptID)
	assert.Equal(t, models.DataScopeDept, claims.DataScope)
	assert.Equal(t, []string{"ADMIN", "OPS"}, claims.Roles)
	assert.Equal(t, int64(3), claims.SecurityVersion)
	assert.Equal(t, "admin-console", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.InDelta(t, time.Hour, Remaining(claims), float64(5*time.Second))
}

func TestTokenCodec_UniqueTokenIDs(t *testing.T) {
	codec := NewTokenCodec("test-secret", "admin-console")

	first, err := codec.Issue(testIdentity(), models.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)
	second, err := codec.Issue(testIdentity(), models.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	a, err := codec.Parse(first)
	require.NoError(t, err)
	b, err := codec.Parse(second)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestTokenCodec_Expired(t *testing.T) {
	codec := NewTokenCodec("test-secret", "admin-console")

	signed, err := codec.Issue(testIdentity(), models.TokenTypeAccess, -time.Minute)
	require.NoError(t, err)

	_, err = codec.Parse(signed)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrTokenExpired.Code, appErr.Code)
	assert.Equal(t, 401, appErr.Status)
}

func TestTokenCodec_Malformed(t *testing.T) {
	codec := NewTokenCodec("test-secret", "admin-console")

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := codec.Parse(token)
		require.Error(t, err)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrTokenMalformed.Code, appErr.Code)
	}
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	codec := NewTokenCodec("test-secret", "admin-console")
	other := NewTokenCodec("other-secret", "admin-console")

	signed, err := codec.Issue(testIdentity(), models.TokenTypeAccess, time.Hour)
	require.NoError(t, err)

	_, err = other.Parse(signed)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrTokenMalformed.Code, appErr.Code)
}
