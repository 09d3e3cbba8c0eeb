// Package config loads clinicflow settings from the environment.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Log       LogConfig
	Tracing   TracingConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Clinic    ClinicConfig
	Events    EventsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
}

func (a AppConfig) IsProduction() bool { return a.Environment == "production" }

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type DatabaseConfig struct {
	Host               string
	Port               int
	Name               string
	User               string
	Password           string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
}

// DSN is the libpq keyword/value connection string. Sessions run in UTC so
// appointment dates never shift.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// JWTConfig verifies bearer tokens minted by the identity provider. The
// TTL only applies to tokens issued by the `token` dev command.
type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
}

type LogConfig struct {
	Level      string
	Format     string // json or console
	OutputPath string
}

type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string // full URL of the collector's traces endpoint
	Insecure     bool
	SampleRate   float64
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64 // per client IP
	BurstSize         int
	ClientTTL         time.Duration
}

type ClinicConfig struct {
	// AllowDischargedActivity permits new visits and bookings for a
	// patient that has already been discharged.
	AllowDischargedActivity bool
}

type EventsConfig struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	PollInterval time.Duration
	BatchSize    int
	WriteTimeout time.Duration

	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

func Load() (*Config, error) {
	e := newEnv()

	cfg := &Config{
		App: AppConfig{
			Name:        e.String("APP_NAME", "clinicflow-api"),
			Environment: e.String("APP_ENV", "development"),
			Version:     e.String("APP_VERSION", "0.0.0"),
		},
		Server: ServerConfig{
			Host:            e.String("SERVER_HOST", "0.0.0.0"),
			Port:            e.Int("SERVER_PORT", 8080),
			ReadTimeout:     e.Duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    e.Duration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     e.Duration("SERVER_IDLE_TIMEOUT", time.Minute),
			ShutdownTimeout: e.Duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:               e.String("DB_HOST", "localhost"),
			Port:               e.Int("DB_PORT", 5432),
			Name:               e.String("DB_NAME", "clinicflow"),
			User:               e.String("DB_USER", "clinicflow"),
			Password:           e.String("DB_PASSWORD", ""),
			SSLMode:            e.String("DB_SSLMODE", "require"),
			MaxOpenConns:       e.Int("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       e.Int("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime:    e.Duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime:    e.Duration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			SlowQueryThreshold: e.Duration("DB_SLOW_QUERY_THRESHOLD", 200*time.Millisecond),
		},
		JWT: JWTConfig{
			Secret:         e.String("JWT_SECRET", ""),
			AccessTokenTTL: e.Duration("JWT_ACCESS_TTL", 15*time.Minute),
			Issuer:         e.String("JWT_ISSUER", "clinicflow-api"),
		},
		Log: LogConfig{
			Level:      e.String("LOG_LEVEL", "info"),
			Format:     e.String("LOG_FORMAT", "json"),
			OutputPath: e.String("LOG_OUTPUT", "stdout"),
		},
		Tracing: TracingConfig{
			Enabled:      e.Bool("TRACING_ENABLED", false),
			ServiceName:  e.String("TRACING_SERVICE_NAME", "clinicflow-api"),
			OTLPEndpoint: e.String("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://otel-collector:4318/v1/traces"),
			Insecure:     e.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRate:   e.Float("TRACING_SAMPLE_RATE", 0.1),
		},
		CORS: CORSConfig{
			AllowedOrigins: e.List("CORS_ALLOWED_ORIGINS", []string{"https://app.clinicflow.io"}),
			AllowedMethods: e.List("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: e.List("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type", "X-Request-ID"}),
			MaxAge:         e.Duration("CORS_MAX_AGE", 12*time.Hour),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: e.Float("RATE_LIMIT_RPS", 100),
			BurstSize:         e.Int("RATE_LIMIT_BURST", 200),
			ClientTTL:         e.Duration("RATE_LIMIT_CLIENT_TTL", 10*time.Minute),
		},
		Clinic: ClinicConfig{
			AllowDischargedActivity: e.Bool("CLINIC_ALLOW_DISCHARGED_ACTIVITY", true),
		},
		Events: EventsConfig{
			Enabled:            e.Bool("EVENTS_ENABLED", false),
			Brokers:            e.List("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:              e.String("KAFKA_TOPIC", "clinicflow.events"),
			PollInterval:       e.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:          e.Int("OUTBOX_BATCH_SIZE", 100),
			WriteTimeout:       e.Duration("KAFKA_WRITE_TIMEOUT", 10*time.Second),
			BreakerMaxFailures: e.Uint32("EVENTS_BREAKER_MAX_FAILURES", 5),
			BreakerOpenTimeout: e.Duration("EVENTS_BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
	}

	problems := append(e.errs, cfg.problems()...)
	if len(problems) > 0 {
		return nil, fmt.Errorf("configuration errors:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return cfg, nil
}

// problems lists every rule the loaded values break.
func (c *Config) problems() []string {
	var out []string
	prod := c.App.IsProduction()

	switch {
	case c.JWT.Secret == "":
		out = append(out, "JWT_SECRET is required")
	case prod && len(c.JWT.Secret) < 32:
		out = append(out, "JWT_SECRET must be at least 32 characters in production")
	}
	if c.Database.Password == "" && c.App.Environment != "development" {
		out = append(out, "DB_PASSWORD is required outside development")
	}
	if prod && c.Database.SSLMode == "disable" {
		out = append(out, "DB_SSLMODE=disable is not allowed in production")
	}

	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		out = append(out, "KAFKA_BROKERS is required when EVENTS_ENABLED=true")
	}
	if c.Events.Enabled && c.Events.Topic == "" {
		out = append(out, "KAFKA_TOPIC is required when EVENTS_ENABLED=true")
	}
	if c.Events.BatchSize <= 0 {
		out = append(out, "OUTBOX_BATCH_SIZE must be positive")
	}

	if r := c.Tracing.SampleRate; r < 0 || r > 1 {
		out = append(out, "TRACING_SAMPLE_RATE must be between 0 and 1")
	}
	if f := c.Log.Format; f != "json" && f != "console" {
		out = append(out, "LOG_FORMAT must be json or console")
	}
	return out
}
