package utils

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Capacity CapacityConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
	Gateway  GatewayConfig
	Cab      CabConfig
}

type AppConfig struct {
	Name            string
	Port            string
	Debug           bool
	LogPath         string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	MaxConns    int32
	AutoMigrate bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CapacityConfig selects where availability lives and how tour seats are claimed.
type CapacityConfig struct {
	Backend       string // postgres | redis
	TourStrategy  string // versioned | conditional
	RetryAttempts int
	RetryBackoff  time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type TracingConfig struct {
	ServiceName    string
	JaegerEndpoint string
}

type GatewayConfig struct {
	KeyID           string
	KeySecret       string
	Currency        string
	StrictSignature bool
}

// CabConfig holds fare defaults applied when a cab or request omits them.
type CabConfig struct {
	DefaultDistanceKm float64
	DefaultBaseFare   float64
	DefaultPricePerKm float64
}

const (
	CapacityBackendPostgres = "postgres"
	CapacityBackendRedis    = "redis"

	// TourStrategyVersioned claims tour seats with a read-version-write loop bounded by
	// CLAIM_RETRY_ATTEMPTS; exhausted retries record a FAILED booking. Set it when a
	// contended tour request must end as FAILED instead of CapacityExceeded.
	TourStrategyVersioned = "versioned"
	// TourStrategyConditional (default) claims tour seats like every other counted pool,
	// with a single conditional decrement. It never produces FAILED bookings.
	TourStrategyConditional = "conditional"
)

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "travel-booking")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_AUTO_MIGRATE", true)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CAPACITY_BACKEND", CapacityBackendPostgres)
	viper.SetDefault("TOUR_CLAIM_STRATEGY", TourStrategyConditional)
	viper.SetDefault("CLAIM_RETRY_ATTEMPTS", 3)
	viper.SetDefault("CLAIM_RETRY_BACKOFF", "50ms")
	viper.SetDefault("KAFKA_TOPIC", "travel-booking.events")
	viper.SetDefault("TRACING_SERVICE_NAME", "travel-booking")
	viper.SetDefault("GATEWAY_CURRENCY", "INR")
	viper.SetDefault("GATEWAY_STRICT_SIGNATURE", false)
	viper.SetDefault("CAB_DEFAULT_DISTANCE_KM", 10.0)
	viper.SetDefault("CAB_DEFAULT_BASE_FARE", 50.0)
	viper.SetDefault("CAB_DEFAULT_PRICE_PER_KM", 15.0)

	// .env is optional; the environment alone is enough to boot
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:            viper.GetString("APP_NAME"),
			Port:            viper.GetString("PORT"),
			Debug:           viper.GetBool("DEBUG"),
			LogPath:         viper.GetString("LOG_PATH"),
			ShutdownTimeout: viper.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:        viper.GetString("DB_HOST"),
			Port:        viper.GetString("DB_PORT"),
			Name:        viper.GetString("DB_NAME"),
			User:        viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASS"),
			MaxConns:    viper.GetInt32("DB_MAX_CONNS"),
			AutoMigrate: viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Capacity: CapacityConfig{
			Backend:       strings.ToLower(viper.GetString("CAPACITY_BACKEND")),
			TourStrategy:  strings.ToLower(viper.GetString("TOUR_CLAIM_STRATEGY")),
			RetryAttempts: viper.GetInt("CLAIM_RETRY_ATTEMPTS"),
			RetryBackoff:  viper.GetDuration("CLAIM_RETRY_BACKOFF"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Tracing: TracingConfig{
			ServiceName:    viper.GetString("TRACING_SERVICE_NAME"),
			JaegerEndpoint: viper.GetString("JAEGER_ENDPOINT"),
		},
		Gateway: GatewayConfig{
			KeyID:           viper.GetString("GATEWAY_KEY_ID"),
			KeySecret:       viper.GetString("GATEWAY_KEY_SECRET"),
			Currency:        viper.GetString("GATEWAY_CURRENCY"),
			StrictSignature: viper.GetBool("GATEWAY_STRICT_SIGNATURE"),
		},
		Cab: CabConfig{
			DefaultDistanceKm: viper.GetFloat64("CAB_DEFAULT_DISTANCE_KM"),
			DefaultBaseFare:   viper.GetFloat64("CAB_DEFAULT_BASE_FARE"),
			DefaultPricePerKm: viper.GetFloat64("CAB_DEFAULT_PRICE_PER_KM"),
		},
	}

	return config, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
