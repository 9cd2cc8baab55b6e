package managers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/recaphq/recap/internal/domain"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const defaultRefreshMargin = 10 * time.Minute

// fallback when the token endpoint omits expires_in
const defaultTokenLifetime = 30 * time.Minute

const defaultRefreshTimeout = 30 * time.Second

type oauthTokenManager struct {
	store      domain.CredentialStore
	config     *oauth2.Config
	httpClient *http.Client
	margin     time.Duration
	now        func() time.Time
}

type OAuthTokenManagerDependencies struct {
	Store        domain.CredentialStore
	ClientID     string
	ClientSecret string
	TokenURL     string
	Margin       time.Duration
	HTTPClient   *http.Client
}

func NewOAuthTokenManager(deps OAuthTokenManagerDependencies) domain.TokenRefresher {
	margin := deps.Margin
	if margin <= 0 {
		margin = defaultRefreshMargin
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRefreshTimeout}
	}

	return &oauthTokenManager{
		store:      deps.Store,
		httpClient: httpClient,
		config: &oauth2.Config{
			ClientID:     deps.ClientID,
			ClientSecret: deps.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  deps.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		margin: margin,
		now:    time.Now,
	}
}

// EnsureValidToken returns the credential unchanged while its access token
// has more than the safety margin left. Otherwise it performs exactly one
// refresh against the token endpoint, persists the rotated credential
// before returning it, and never retries a failed refresh.
func (m *oauthTokenManager) EnsureValidToken(ctx context.Context, credential domain.Credential) (domain.Credential, error) {
	if credential.RefreshToken == "" {
		return domain.Credential{}, fmt.Errorf("credential for user %s has no refresh token: %w", credential.UserID, domain.ErrReauthRequired)
	}

	if credential.ExpiresAt.After(m.now().Add(m.margin)) {
		return credential, nil
	}

	// The refresh POST must run on a client with a request timeout, not
	// http.DefaultClient.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	// A token carrying only the refresh token is never valid, so the
	// token source issues the refresh POST on the first Token call.
	source := m.config.TokenSource(ctx, &oauth2.Token{RefreshToken: credential.RefreshToken})

	token, err := source.Token()
	if err != nil {
		return domain.Credential{}, m.classifyRefreshError(credential, err)
	}

	refreshed := credential
	refreshed.AccessToken = token.AccessToken
	refreshed.ExpiresAt = token.Expiry
	if token.RefreshToken != "" {
		refreshed.RefreshToken = token.RefreshToken
	}
	if refreshed.ExpiresAt.IsZero() {
		refreshed.ExpiresAt = m.now().Add(defaultTokenLifetime)
	}

	// Write through before returning so no caller ever holds a refreshed
	// token that is not durably persisted.
	if err := m.store.Save(ctx, refreshed); err != nil {
		return domain.Credential{}, fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	log.Info().
		Str("user_id", refreshed.UserID).
		Str("provider", refreshed.Provider).
		Time("expires_at", refreshed.ExpiresAt).
		Msg("Refreshed OAuth credential")

	return refreshed, nil
}

func (m *oauthTokenManager) classifyRefreshError(credential domain.Credential, err error) error {
	var retrieveErr *oauth2.RetrieveError

	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}

		switch status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			log.Warn().
				Str("user_id", credential.UserID).
				Str("provider", credential.Provider).
				Int("status", status).
				Str("body", string(retrieveErr.Body)).
				Msg("Refresh token rejected, reauthorization required")

			return fmt.Errorf("refresh token rejected (status %d): %w", status, domain.ErrReauthRequired)
		default:
			log.Error().
				Str("user_id", credential.UserID).
				Int("status", status).
				Str("body", string(retrieveErr.Body)).
				Msg("Token endpoint error")

			return &domain.RefreshTransportError{Err: err}
		}
	}

	log.Error().
		Err(err).
		Str("user_id", credential.UserID).
		Msg("Token refresh transport failure")

	return &domain.RefreshTransportError{Err: err}
}
