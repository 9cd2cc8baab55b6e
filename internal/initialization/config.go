package initialization

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all service configuration
type Config struct {
	HTTPAddress string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	HubSpotClientID     string
	HubSpotClientSecret string
	HubSpotTokenURL     string
	HubSpotBaseURL      string

	OpenAIAPIKey string
	OpenAIModel  string

	RefreshInterval time.Duration
	RefreshMargin   time.Duration
	SessionTTL      time.Duration
}

// LoadConfig loads configuration from files and environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envMappings := map[string]string{
		"HTTPAddress":         "HTTP_ADDRESS",
		"DatabaseURL":         "DATABASE_URL",
		"RedisAddr":           "REDIS_ADDR",
		"RedisPassword":       "REDIS_PASSWORD",
		"HubSpotClientID":     "HUBSPOT_CLIENT_ID",
		"HubSpotClientSecret": "HUBSPOT_CLIENT_SECRET",
		"HubSpotTokenURL":     "HUBSPOT_TOKEN_URL",
		"HubSpotBaseURL":      "HUBSPOT_BASE_URL",
		"OpenAIAPIKey":        "OPENAI_API_KEY",
		"OpenAIModel":         "OPENAI_MODEL",
		"RefreshInterval":     "REFRESH_INTERVAL",
		"RefreshMargin":       "REFRESH_MARGIN",
		"SessionTTL":          "SESSION_TTL",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	v.SetConfigName("recap_config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.recap")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTPAddress", ":8080")
	v.SetDefault("RedisAddr", "localhost:6379")
	v.SetDefault("HubSpotTokenURL", "https://api.hubapi.com/oauth/v1/token")
	v.SetDefault("HubSpotBaseURL", "https://api.hubapi.com")
	v.SetDefault("RefreshInterval", "5m")
	v.SetDefault("RefreshMargin", "10m")
	v.SetDefault("SessionTTL", "2h")
}

func validateConfig(config *Config) error {
	var missingVars []string

	if config.DatabaseURL == "" {
		missingVars = append(missingVars, "DATABASE_URL")
	}

	if config.HubSpotClientID == "" {
		missingVars = append(missingVars, "HUBSPOT_CLIENT_ID")
	}

	if config.HubSpotClientSecret == "" {
		missingVars = append(missingVars, "HUBSPOT_CLIENT_SECRET")
	}

	if config.OpenAIAPIKey == "" {
		missingVars = append(missingVars, "OPENAI_API_KEY")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missingVars, ", "))
	}

	return nil
}
