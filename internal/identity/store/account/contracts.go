// Package account persists the durable records that back principals.
package account

import (
	"context"

	"tillgate/internal/identity/models"
)

// Store is the durable system of record for accounts. Resolution performs at
// most one Store read per request; grants always come from here, never from
// credential-embedded claims, except in the documented degraded fallback.
type Store interface {
	// Save inserts or replaces an account by ID.
	Save(ctx context.Context, account *models.Account) error

	// FindByID returns the account or a not-found sentinel.
	FindByID(ctx context.Context, id string) (*models.Account, error)

	// FindByEmail returns the account or a not-found sentinel.
	FindByEmail(ctx context.Context, email string) (*models.Account, error)

	// FindByRoleCredential matches the opaque per-role shared secret exactly.
	FindByRoleCredential(ctx context.Context, credential string) (*models.Account, error)
}
