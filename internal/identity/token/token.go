// Package token issues and verifies the signed, time-limited bearer tokens
// used by interactive clients. Opaque role credentials are handled by the
// resolver, not here.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tillgate/internal/identity/models"
	dErrors "tillgate/pkg/domain-errors"
	"tillgate/pkg/platform/middleware/requesttime"
	"tillgate/pkg/validation"
)

// Claims carries the subject identity plus a snapshot of role and grants.
// The snapshot authenticates which subject is asking; resolution re-reads
// current grants from the account store and only trusts these embedded
// values when that lookup fails.
type Claims struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles token creation and validation with a shared HS256 key.
type JWTService struct {
	signingKey []byte
	tokenTTL   time.Duration
}

func NewJWTService(signingKey string, tokenTTL time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
	}
}

// GenerateToken issues a signed token for the account's current state.
func (s *JWTService) GenerateToken(ctx context.Context, account *models.Account) (string, error) {
	if account == nil || account.ID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := requesttime.Now(ctx)

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:      account.ID,
		Email:       account.Email,
		Role:        string(account.Role),
		Permissions: account.Grants,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        hex.EncodeToString(b),
		},
	})

	return newToken.SignedString(s.signingKey)
}

// ValidateToken verifies signature, algorithm, and expiry.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" || len(tokenString) > validation.MaxTokenLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid token")
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid token claims")
	}
	return claims, nil
}
