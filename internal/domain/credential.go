package domain

import (
	"context"
	"time"
)

const ProviderHubSpot = "hubspot"

// Credential is a user's OAuth credential for a CRM provider. The pair
// (AccessToken, ExpiresAt) is replaced atomically on refresh and never
// updated independently.
type Credential struct {
	UserID       string    `json:"user_id"`
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CredentialStore owns credential persistence. Callers operate on borrowed
// copies and must re-read after a refresh rather than caching tokens.
type CredentialStore interface {
	Load(ctx context.Context, userID string, provider string) (Credential, error)
	Save(ctx context.Context, credential Credential) error
	ListExpiring(ctx context.Context, provider string, within time.Duration) ([]Credential, error)
}

// TokenRefresher returns a credential guaranteed to carry a usable access
// token, refreshing and persisting it first when it is close to expiry.
type TokenRefresher interface {
	EnsureValidToken(ctx context.Context, credential Credential) (Credential, error)
}
