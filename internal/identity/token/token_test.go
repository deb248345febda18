package token

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillgate/internal/identity/models"
	dErrors "tillgate/pkg/domain-errors"
	"tillgate/pkg/platform/middleware/requesttime"
	"tillgate/pkg/validation"
)

const testKey = "test-signing-key-0123456789abcdef"

func testAccount() *models.Account {
	return &models.Account{
		ID:     "acc-1",
		Email:  "admin@example.com",
		Role:   models.RoleAdmin,
		Grants: []string{"products:read", "products:update"},
	}
}

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService(testKey, time.Hour)

	signed, err := svc.GenerateToken(context.Background(), testAccount())
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, []string{"products:read", "products:update"}, claims.Permissions)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_WrongKey(t *testing.T) {
	signed, err := NewJWTService(testKey, time.Hour).GenerateToken(context.Background(), testAccount())
	require.NoError(t, err)

	_, err = NewJWTService("a-different-signing-key", time.Hour).ValidateToken(signed)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewJWTService(testKey, time.Hour)

	// Issue in the past via the injected clock so expiry has already passed.
	issuedAt := time.Now().Add(-2 * time.Hour)
	signed, err := svc.GenerateToken(requesttime.WithTime(context.Background(), issuedAt), testAccount())
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewJWTService(testKey, time.Hour)

	for _, raw := range []string{"", "not-a-token", "a.b.c", strings.Repeat("x", validation.MaxTokenLength+1)} {
		_, err := svc.ValidateToken(raw)
		assert.Error(t, err, raw[:min(len(raw), 20)])
	}
}

func TestGenerateToken_RequiresAccount(t *testing.T) {
	svc := NewJWTService(testKey, time.Hour)

	_, err := svc.GenerateToken(context.Background(), nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = svc.GenerateToken(context.Background(), &models.Account{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
