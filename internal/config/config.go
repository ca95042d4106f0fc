package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage drivers
const (
	StorageDynamoDB = "dynamodb"
	StorageBolt     = "bolt"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port           string   `envconfig:"PORT" default:"3001"`
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Logging configuration
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// Storage configuration
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"dynamodb"`
	BoltPath      string `envconfig:"BOLT_PATH" default:"blueprints.db"`

	// AWS configuration
	AWSRegion string `envconfig:"AWS_REGION" default:"us-east-1"`

	// DynamoDB configuration
	BlueprintsTableName string `envconfig:"DYNAMODB_BLUEPRINTS_TABLE" default:"Blueprints"`
	StatisticsTableName string `envconfig:"DYNAMODB_STATISTICS_TABLE" default:"BlueprintStatistics"`
	UsersTableName      string `envconfig:"DYNAMODB_USERS_TABLE" default:"Users"`

	// Auth0 configuration (optional, tokens are parsed unverified without it)
	Auth0Domain   string `envconfig:"AUTH0_DOMAIN"`
	Auth0Audience string `envconfig:"AUTH0_AUDIENCE"`

	// Blueprint creation rate limit, per user or per client IP
	CreateRateLimit  int           `envconfig:"CREATE_RATE_LIMIT" default:"60"`
	CreateRateWindow time.Duration `envconfig:"CREATE_RATE_WINDOW" default:"1m"`

	// Statistics workers
	StatsQueueSize int `envconfig:"STATS_QUEUE_SIZE" default:"100"`
	StatsWorkers   int `envconfig:"STATS_WORKERS" default:"2"`
}

// Load reads the .env file (if present) and the OS environment into a Config.
// OS environment variables take precedence over .env file values.
func Load() (*Config, error) {
	// Missing .env is fine, the process environment is enough
	_ = godotenv.Load(filepath.Join(".", ".env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// New loads the configuration and panics if it is missing or invalid.
func New() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

// validate checks that all required configuration values are present and valid
func (c *Config) validate() error {
	var missing []string

	switch c.StorageDriver {
	case StorageDynamoDB:
		if c.BlueprintsTableName == "" {
			missing = append(missing, "DYNAMODB_BLUEPRINTS_TABLE")
		}
		if c.StatisticsTableName == "" {
			missing = append(missing, "DYNAMODB_STATISTICS_TABLE")
		}
		if c.UsersTableName == "" {
			missing = append(missing, "DYNAMODB_USERS_TABLE")
		}
	case StorageBolt:
		if strings.TrimSpace(c.BoltPath) == "" {
			missing = append(missing, "BOLT_PATH")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of %q or %q (got %q)", StorageDynamoDB, StorageBolt, c.StorageDriver)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration values: %v", missing)
	}

	if c.Auth0Audience != "" && c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is set but AUTH0_DOMAIN is empty")
	}

	if c.CreateRateLimit < 1 {
		return fmt.Errorf("CREATE_RATE_LIMIT must be positive (got %d)", c.CreateRateLimit)
	}
	if c.CreateRateWindow <= 0 {
		return fmt.Errorf("CREATE_RATE_WINDOW must be positive (got %s)", c.CreateRateWindow)
	}
	if c.StatsWorkers < 1 || c.StatsQueueSize < 1 {
		return fmt.Errorf("STATS_WORKERS and STATS_QUEUE_SIZE must be positive")
	}

	return nil
}

// VerifiesTokens reports whether JWTs are verified against Auth0
func (c *Config) VerifiesTokens() bool {
	return c.Auth0Domain != ""
}
