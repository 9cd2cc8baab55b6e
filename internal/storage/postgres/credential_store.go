package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/recaphq/recap/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the slice of pgxpool.Pool the store needs.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const credentialSchema = `
CREATE TABLE IF NOT EXISTS crm_credentials (
	user_id       TEXT        NOT NULL,
	provider      TEXT        NOT NULL,
	access_token  TEXT        NOT NULL,
	refresh_token TEXT        NOT NULL,
	expires_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, provider)
);

CREATE INDEX IF NOT EXISTS crm_credentials_expiry_idx
	ON crm_credentials (provider, expires_at);
`

// CredentialStore persists OAuth credentials in PostgreSQL. Save is a
// last-write-wins upsert, matching the accepted race between on-demand and
// proactive refreshes of the same credential.
type CredentialStore struct {
	db  querier
	now func() time.Time
}

func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{db: pool, now: time.Now}
}

// EnsureSchema creates the credential table when it does not exist yet.
func (s *CredentialStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, credentialSchema); err != nil {
		return fmt.Errorf("failed to ensure credential schema: %w", err)
	}
	return nil
}

func (s *CredentialStore) Load(ctx context.Context, userID string, provider string) (domain.Credential, error) {
	credential := domain.Credential{UserID: userID, Provider: provider}

	err := s.db.QueryRow(ctx,
		`SELECT access_token, refresh_token, expires_at
		 FROM crm_credentials
		 WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	).Scan(&credential.AccessToken, &credential.RefreshToken, &credential.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Credential{}, domain.ErrCredentialNotFound
		}
		return domain.Credential{}, fmt.Errorf("failed to load credential: %w", err)
	}

	return credential, nil
}

func (s *CredentialStore) Save(ctx context.Context, credential domain.Credential) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO crm_credentials (user_id, provider, access_token, refresh_token, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()`,
		credential.UserID, credential.Provider,
		credential.AccessToken, credential.RefreshToken, credential.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	return nil
}

func (s *CredentialStore) ListExpiring(ctx context.Context, provider string, within time.Duration) ([]domain.Credential, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id, provider, access_token, refresh_token, expires_at
		 FROM crm_credentials
		 WHERE provider = $1 AND expires_at <= $2`,
		provider, s.now().Add(within),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring credentials: %w", err)
	}
	defer rows.Close()

	var credentials []domain.Credential
	for rows.Next() {
		var credential domain.Credential
		if err := rows.Scan(
			&credential.UserID, &credential.Provider,
			&credential.AccessToken, &credential.RefreshToken, &credential.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan credential row: %w", err)
		}
		credentials = append(credentials, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credential rows: %w", err)
	}

	return credentials, nil
}
