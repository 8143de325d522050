package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAlgorithm          = "HS256"
	defaultTokenTTL           = 30 * time.Minute
	defaultBcryptCost         = 10
	defaultMQTopic            = "account-events"
	defaultSubscriptionSuffix = "-sub"
)

type Config struct {
	ServerPort int
	Database   DatabaseConfig
	Auth       AuthConfig
	Log        LogConfig
	MQ         MQConfig
	CORS       CORSConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// AuthConfig holds the process-wide signing material for access tokens.
// It is read once at startup and never mutated afterwards.
type AuthConfig struct {
	SecretKey  string
	Algorithm  string
	TokenTTL   time.Duration
	BcryptCost int
}

// CORSConfig controls cross-origin access for browser clients.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int
}

type LogConfig struct {
	Level  string
	Format string
}

// MQConfig selects the broker used for account lifecycle events.
// An empty Backend (or "none") disables publishing.
type MQConfig struct {
	Backend  string
	Topic    string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	Exchange        string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "userhub"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "userhub"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	secret := getEnv("SECRET_KEY", "")
	if strings.TrimSpace(secret) == "" {
		secret = getEnv("JWT_SECRET", "")
	}

	authConfig := AuthConfig{
		SecretKey:  strings.TrimSpace(secret),
		Algorithm:  getEnv("ALGORITHM", defaultAlgorithm),
		TokenTTL:   time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", int(defaultTokenTTL/time.Minute))) * time.Minute,
		BcryptCost: getEnvInt("AUTH_BCRYPT_COST", defaultBcryptCost),
	}

	mqConfig := MQConfig{
		Backend: strings.ToLower(getEnv("MQ_BACKEND", "none")),
		Topic:   getEnv("MQ_TOPIC", defaultMQTopic),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			Exchange:        getEnv("RABBITMQ_EXCHANGE", "userhub"),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 10),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", defaultSubscriptionSuffix),
		},
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		Database:   dbConfig,
		Auth:       authConfig,
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		MQ: mqConfig,
		CORS: CORSConfig{
			AllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getEnvInt("CORS_MAX_AGE", 300),
		},
	}
}

// Validate reports configuration that would make token signing unsafe.
func (c AuthConfig) Validate() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY is required")
	}
	switch c.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported signing algorithm %q", c.Algorithm)
	}
	if c.TokenTTL < 0 {
		return errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.Atoi(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
