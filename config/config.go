package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tair/produce-ledger/pkg/database"
)

type Config struct {
	Service  ServiceConfig
	Database database.Config
	Redis    RedisConfig
	Kafka    KafkaConfig
	Ledger   LedgerConfig
	Tracing  TracingConfig
}

type ServiceConfig struct {
	Name        string
	Environment string
	HTTPPort    string
	LogLevel    string
	Timezone    string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	EventsTopic      string
	MaintenanceTopic string
	GroupID          string
}

// LedgerConfig tunes the ledger. Legacy dates are not configurable: changing
// them would re-route days away from the partition their rows live in.
type LedgerConfig struct {
	ConflictRetries int
	RecalcChunkSize int
}

type TracingConfig struct {
	Enabled        bool
	JaegerEndpoint string
}

// IsDevelopment reports whether console logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.Service.Environment == "development"
}

// Location returns the vendor timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Service.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads an optional .env file and then the process environment.
func Load(serviceName string) *Config {
	_ = godotenv.Load()
	return LoadEnv(serviceName)
}

// LoadEnv builds the configuration from environment variables only.
func LoadEnv(serviceName string) *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        getEnv("OTEL_SERVICE_NAME", serviceName),
			Environment: getEnv("ENVIRONMENT", "development"),
			HTTPPort:    getEnv("HTTP_PORT", "8082"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Timezone:    getEnv("VENDOR_TIMEZONE", "Asia/Kolkata"),
		},
		Database: database.Config{
			Driver:          getEnv("DB_DRIVER", database.DriverPostgres),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "ledgerdb"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "ledger.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			LogQueries:      getEnvBool("DB_LOG_QUERIES", false),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_STOCK_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:          getEnvBool("KAFKA_ENABLED", false),
			Brokers:          getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			EventsTopic:      getEnv("KAFKA_TOPIC_LEDGER_EVENTS", "ledger-events"),
			MaintenanceTopic: getEnv("KAFKA_TOPIC_MAINTENANCE", "ledger-maintenance"),
			GroupID:          getEnv("KAFKA_GROUP_RECALC", "recalc-worker"),
		},
		Ledger: LedgerConfig{
			ConflictRetries: getEnvInt("LEDGER_CONFLICT_RETRIES", 3),
			RecalcChunkSize: getEnvInt("LEDGER_RECALC_CHUNK_SIZE", 100),
		},
		Tracing: TracingConfig{
			Enabled:        getEnvBool("TRACING_ENABLED", false),
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return fallback
}
