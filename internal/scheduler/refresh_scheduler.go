package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/recaphq/recap/internal/domain"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	defaultScanInterval = 5 * time.Minute
	defaultLookahead    = 10 * time.Minute
)

// RefreshScheduler proactively refreshes credentials whose access tokens
// expire within the lookahead window, on a fixed interval, independently of
// any pending API call.
type RefreshScheduler struct {
	cron      *cron.Cron
	store     domain.CredentialStore
	refresher domain.TokenRefresher
	provider  string
	interval  time.Duration
	lookahead time.Duration
}

type RefreshSchedulerDependencies struct {
	Store     domain.CredentialStore
	Refresher domain.TokenRefresher
	Provider  string
	Interval  time.Duration
	Lookahead time.Duration
}

func NewRefreshScheduler(deps RefreshSchedulerDependencies) *RefreshScheduler {
	interval := deps.Interval
	if interval <= 0 {
		interval = defaultScanInterval
	}

	lookahead := deps.Lookahead
	if lookahead <= 0 {
		lookahead = defaultLookahead
	}

	provider := deps.Provider
	if provider == "" {
		provider = domain.ProviderHubSpot
	}

	return &RefreshScheduler{
		cron:      cron.New(),
		store:     deps.Store,
		refresher: deps.Refresher,
		provider:  provider,
		interval:  interval,
		lookahead: lookahead,
	}
}

func (s *RefreshScheduler) Start() error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.Scan); err != nil {
		return fmt.Errorf("failed to schedule refresh scan: %w", err)
	}

	s.cron.Start()

	log.Info().
		Str("provider", s.provider).
		Dur("interval", s.interval).
		Dur("lookahead", s.lookahead).
		Msg("Started proactive token refresh scheduler")

	return nil
}

// Stop halts the schedule and waits for a running scan to finish.
func (s *RefreshScheduler) Stop() {
	<-s.cron.Stop().Done()

	log.Info().Msg("Stopped proactive token refresh scheduler")
}

// Scan refreshes every soon-to-expire credential independently. One
// credential's failure never aborts the rest of the scan.
func (s *RefreshScheduler) Scan() {
	ctx := context.Background()

	credentials, err := s.store.ListExpiring(ctx, s.provider, s.lookahead)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list expiring credentials")
		return
	}

	if len(credentials) == 0 {
		return
	}

	refreshed := 0
	for _, credential := range credentials {
		if _, err := s.refresher.EnsureValidToken(ctx, credential); err != nil {
			log.Error().
				Err(err).
				Str("user_id", credential.UserID).
				Str("provider", credential.Provider).
				Msg("Proactive token refresh failed")
			continue
		}
		refreshed++
	}

	log.Info().
		Int("refreshed", refreshed).
		Int("scanned", len(credentials)).
		Msg("Proactive token refresh scan finished")
}
