package account

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"tillgate/internal/identity/models"
	"tillgate/internal/identity/permissions"
	"tillgate/internal/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound when the requested account does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// InMemoryStore keeps accounts in memory, for tests and single-node dev
// deployments without Postgres.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
}

// NewInMemory constructs an empty in-memory account store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{accounts: make(map[string]*models.Account)}
}

func (s *InMemoryStore) Save(_ context.Context, account *models.Account) error {
	if account == nil || account.ID == "" {
		return fmt.Errorf("account with id is required: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if account, ok := s.accounts[id]; ok {
		return account, nil
	}
	return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByRoleCredential(_ context.Context, credential string) (*models.Account, error) {
	if credential == "" {
		return nil, fmt.Errorf("empty credential: %w", sentinel.ErrInvalidInput)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.RoleCredential != "" && account.RoleCredential == credential {
			return account, nil
		}
	}
	return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
}

// SeedDefaults installs one account per role with bcrypt-hashed passwords.
// Dev convenience only; production accounts live in Postgres.
func (s *InMemoryStore) SeedDefaults(ctx context.Context) error {
	seeds := []struct {
		account  *models.Account
		password string
	}{
		{
			account: &models.Account{
				ID:             "acc-superadmin-1",
				Email:          "root@tillgate.local",
				DisplayName:    "Root Administrator",
				Role:           models.RoleSuperAdmin,
				RoleCredential: "tg_sa_dev_credential",
				Grants:         []string{permissions.Wildcard},
			},
			password: "superadmin-dev",
		},
		{
			account: &models.Account{
				ID:             "acc-admin-1",
				Email:          "admin@tillgate.local",
				DisplayName:    "Store Administrator",
				Role:           models.RoleAdmin,
				RoleCredential: "tg_admin_dev_credential",
				Grants: []string{
					permissions.Grant(permissions.ModuleProducts, permissions.OpCreate),
					permissions.Grant(permissions.ModuleProducts, permissions.OpRead),
					permissions.Grant(permissions.ModuleProducts, permissions.OpUpdate),
					permissions.Grant(permissions.ModuleProducts, permissions.OpDelete),
					permissions.Grant(permissions.ModuleInventory, permissions.OpRead),
					permissions.Grant(permissions.ModuleInventory, permissions.OpUpdate),
					permissions.Grant(permissions.ModuleReports, permissions.OpRead),
				},
			},
			password: "admin-dev",
		},
		{
			account: &models.Account{
				ID:             "acc-agent-1",
				Email:          "agent@tillgate.local",
				DisplayName:    "Field Agent",
				Role:           models.RoleAgent,
				RoleCredential: "tg_agent_dev_credential",
				Grants: []string{
					permissions.Grant(permissions.ModuleSales, permissions.OpCreate),
					permissions.Grant(permissions.ModuleSales, permissions.OpRead),
					permissions.Grant(permissions.ModuleCustomers, permissions.OpRead),
				},
			},
			password: "agent-dev",
		},
	}

	for _, seed := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		seed.account.PasswordHash = string(hash)
		if err := s.Save(ctx, seed.account); err != nil {
			return err
		}
	}
	return nil
}
