package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/eterdtx/pointage-worker/internal/billing"
	"github.com/eterdtx/pointage-worker/internal/validator"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Billing     BillingConfig
	Render      RenderConfig
}

// HTTPConfig holds the on-demand API server settings
type HTTPConfig struct {
	Port int
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL                string
	RenderExchange     string
	RenderQueue        string
	RenderRoutingKey   string
	DocumentExchange   string
	DocumentRoutingKey string
	DLQQueue           string
	PrefetchCount      int
}

// BillingConfig holds amount computation settings
type BillingConfig struct {
	NominalHoursPerDay float64
	MaxDailyHours      float64
}

// RenderConfig holds PDF rendering settings
type RenderConfig struct {
	OutputDir string
	LogoPath  string
	OrgLine1  string
	OrgLine2  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "pointage-worker"),
		HTTP: HTTPConfig{
			Port: getEnvAsInt("HTTP_PORT", 8082),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:                getEnv("RABBITMQ_URL", ""),
			RenderExchange:     getEnv("RABBITMQ_RENDER_EXCHANGE", "pointage.render.exchange"),
			RenderQueue:        getEnv("RABBITMQ_RENDER_QUEUE", "pointage.render.queue"),
			RenderRoutingKey:   getEnv("RABBITMQ_RENDER_ROUTING_KEY", "fiche.render.requested"),
			DocumentExchange:   getEnv("RABBITMQ_DOCUMENT_EXCHANGE", "pointage.documents.exchange"),
			DocumentRoutingKey: getEnv("RABBITMQ_DOCUMENT_ROUTING_KEY", "fiche.document.generated"),
			DLQQueue:           getEnv("RABBITMQ_DLQ_QUEUE", "pointage.render.dlq"),
			PrefetchCount:      getEnvAsInt("RABBITMQ_PREFETCH", 10),
		},
		Billing: BillingConfig{
			NominalHoursPerDay: getEnvAsFloat("BILLING_NOMINAL_HOURS_PER_DAY", billing.DefaultNominalHoursPerDay),
			MaxDailyHours:      getEnvAsFloat("BILLING_MAX_DAILY_HOURS", validator.DefaultMaxDailyHours),
		},
		Render: RenderConfig{
			OutputDir: getEnv("RENDER_OUTPUT_DIR", "./documents"),
			LogoPath:  getEnv("RENDER_LOGO_PATH", ""),
			OrgLine1:  getEnv("RENDER_ORG_LINE1", ""),
			OrgLine2:  getEnv("RENDER_ORG_LINE2", ""),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
