package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tillgate/internal/identity/models"
	"tillgate/internal/sentinel"
)

// PostgresStore persists accounts in PostgreSQL. Grants are stored as a
// text[] column so revocation is a single row update, visible to the next
// request's fresh lookup.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed account store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const accountColumns = `id, email, display_name, role, role_credential, grants, password_hash, created_at, updated_at`

func (s *PostgresStore) Save(ctx context.Context, account *models.Account) error {
	if account == nil || account.ID == "" {
		return fmt.Errorf("account with id is required: %w", sentinel.ErrInvalidInput)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, display_name, role, role_credential, grants, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			role = EXCLUDED.role,
			role_credential = EXCLUDED.role_credential,
			grants = EXCLUDED.grants,
			password_hash = EXCLUDED.password_hash,
			updated_at = now()`,
		account.ID, account.Email, account.DisplayName, string(account.Role),
		account.RoleCredential, account.Grants, account.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row, "find account by id")
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row, "find account by email")
}

func (s *PostgresStore) FindByRoleCredential(ctx context.Context, credential string) (*models.Account, error) {
	if credential == "" {
		return nil, fmt.Errorf("empty credential: %w", sentinel.ErrInvalidInput)
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE role_credential = $1`, credential)
	return scanAccount(row, "find account by role credential")
}

func scanAccount(row pgx.Row, op string) (*models.Account, error) {
	var (
		account models.Account
		role    string
	)
	err := row.Scan(
		&account.ID, &account.Email, &account.DisplayName, &role,
		&account.RoleCredential, &account.Grants, &account.PasswordHash,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	account.Role = models.Role(role)
	return &account, nil
}
