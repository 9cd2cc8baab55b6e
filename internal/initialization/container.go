package initialization

import (
	"context"
	"fmt"

	"github.com/recaphq/recap/internal/controllers"
	"github.com/recaphq/recap/internal/domain"
	"github.com/recaphq/recap/internal/hubspot"
	"github.com/recaphq/recap/internal/managers"
	"github.com/recaphq/recap/internal/scheduler"
	"github.com/recaphq/recap/internal/server"
	"github.com/recaphq/recap/internal/storage/postgres"
	"github.com/recaphq/recap/internal/suggestions"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Container wires the service's dependencies together and owns their
// lifecycle.
type Container struct {
	Config    *Config
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Scheduler *scheduler.RefreshScheduler
	App       *fiber.App
}

func NewContainer(ctx context.Context) (*Container, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	log.Info().Msg("Building service dependencies")

	pool, err := pgxpool.New(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	credentialStore := postgres.NewCredentialStore(pool)
	if err := credentialStore.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
	})

	tokenManager := managers.NewOAuthTokenManager(managers.OAuthTokenManagerDependencies{
		Store:        credentialStore,
		ClientID:     config.HubSpotClientID,
		ClientSecret: config.HubSpotClientSecret,
		TokenURL:     config.HubSpotTokenURL,
		Margin:       config.RefreshMargin,
	})

	crmClient := hubspot.NewClient(hubspot.ClientDependencies{
		TokenRefresher: tokenManager,
		BaseURL:        config.HubSpotBaseURL,
	})

	suggestionGenerator := managers.NewOpenAISuggestionManager(managers.OpenAISuggestionManagerDependencies{
		APIKey: config.OpenAIAPIKey,
		Model:  config.OpenAIModel,
	})

	sessionManager := suggestions.NewManager(suggestions.Dependencies{
		CRM:         crmClient,
		Generator:   suggestionGenerator,
		Credentials: credentialStore,
		Snapshots:   suggestions.NewRedisSnapshotStore(redisClient, config.SessionTTL),
		SessionTTL:  config.SessionTTL,
	})

	refreshScheduler := scheduler.NewRefreshScheduler(scheduler.RefreshSchedulerDependencies{
		Store:     credentialStore,
		Refresher: tokenManager,
		Provider:  domain.ProviderHubSpot,
		Interval:  config.RefreshInterval,
		Lookahead: config.RefreshMargin,
	})

	app := server.NewHTTPServer(server.HTTPServerDependencies{
		SessionController: controllers.NewSessionController(controllers.SessionControllerDependencies{
			SessionManager: sessionManager,
		}),
		ContactController: controllers.NewContactController(controllers.ContactControllerDependencies{
			CRMClient:       crmClient,
			CredentialStore: credentialStore,
		}),
	})

	log.Info().Msg("Service dependencies built successfully")

	return &Container{
		Config:    config,
		Pool:      pool,
		Redis:     redisClient,
		Scheduler: refreshScheduler,
		App:       app,
	}, nil
}

func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
