package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "MARKET"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "MARKET_APP_ENV"
	EnvPort         = "MARKET_APP_PORT"
	EnvMongoURI     = "MARKET_MONGO_URI"
	EnvJWTSecret    = "MARKET_JWT_SECRET"
	EnvKafkaBrokers = "MARKET_KAFKA_BROKERS"
)

type Config struct {
	App   AppConfig
	HTTP  HTTPConfig
	Mongo MongoConfig
	Redis RedisConfig
	Kafka KafkaConfig
	JWT   JWTConfig
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.ExpirationMinutes <= 0 {
		return fmt.Errorf("jwt expiration minutes must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka enabled but %s is empty", EnvKafkaBrokers)
	}
	c.App.APIBaseURL = "/" + strings.Trim(c.App.APIBaseURL, "/")
	return nil
}

type AppConfig struct {
	Env        string `envconfig:"MARKET_APP_ENV" default:"dev"`
	Port       string `envconfig:"MARKET_APP_PORT" default:"3000"`
	LogLevel   string `envconfig:"MARKET_LOG_LEVEL" default:"info"`
	APIBaseURL string `envconfig:"MARKET_API_BASE_URL" default:"/api/v1"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

type HTTPConfig struct {
	RequestTimeout     time.Duration `envconfig:"MARKET_HTTP_REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout    time.Duration `envconfig:"MARKET_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	MaxRequestBodySize int64         `envconfig:"MARKET_HTTP_MAX_BODY_BYTES" default:"1048576"`
}

type MongoConfig struct {
	URI             string        `envconfig:"MARKET_MONGO_URI" required:"true"`
	Database        string        `envconfig:"MARKET_MONGO_DB" default:"marketplace"`
	ConnectTimeout  time.Duration `envconfig:"MARKET_MONGO_CONNECT_TIMEOUT" default:"10s"`
	ServerSelection time.Duration `envconfig:"MARKET_MONGO_SERVER_SELECTION_TIMEOUT" default:"5s"`
	MaxPoolSize     uint64        `envconfig:"MARKET_MONGO_MAX_POOL_SIZE" default:"100"`
	MinPoolSize     uint64        `envconfig:"MARKET_MONGO_MIN_POOL_SIZE" default:"10"`
	// UseTransactions requires a replica set or sharded cluster.
	UseTransactions bool `envconfig:"MARKET_MONGO_USE_TRANSACTIONS" default:"false"`
}

type RedisConfig struct {
	Addr           string        `envconfig:"MARKET_REDIS_ADDR" default:"localhost:6379"`
	Password       string        `envconfig:"MARKET_REDIS_PASSWORD"`
	DB             int           `envconfig:"MARKET_REDIS_DB" default:"0"`
	IdempotencyTTL time.Duration `envconfig:"MARKET_REDIS_IDEMPOTENCY_TTL" default:"168h"`
	Enabled        bool          `envconfig:"MARKET_REDIS_ENABLED" default:"true"`
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"MARKET_KAFKA_ENABLED" default:"false"`
	Brokers []string `envconfig:"MARKET_KAFKA_BROKERS"`
	Topic   string   `envconfig:"MARKET_KAFKA_ORDERS_TOPIC" default:"orders.placed"`
	GroupID string   `envconfig:"MARKET_KAFKA_GROUP_ID" default:"vendor-sales"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MARKET_JWT_ISSUER" default:"market-place-app"`
	ExpirationMinutes int    `envconfig:"MARKET_JWT_EXPIRATION_MINUTES" default:"1440"`
}

func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}
