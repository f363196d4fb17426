package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/BruksfildServices01/medease/internal/timezone"
)

const (
	DriverSupabase   = "supabase"
	DriverSelfHosted = "selfhosted"
	DriverMemory     = "memory"
)

type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"local"`
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	SupabaseURL     string        `env:"SUPABASE_URL,required,notEmpty"`
	SupabaseAnonKey string        `env:"SUPABASE_ANON_KEY,required,notEmpty"`
	BackendDriver   string        `env:"BACKEND_DRIVER" envDefault:"supabase"`
	BackendTimeout  time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`

	DBUrl     string        `env:"DATABASE_URL"`
	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"1h"`

	RedisURL      string        `env:"REDIS_URL"`
	SessionCookie string        `env:"SESSION_COOKIE" envDefault:"medease_session"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	StoreIdleTTL  time.Duration `env:"STORE_IDLE_TTL" envDefault:"30m"`
	LoadingWait   time.Duration `env:"LOADING_WAIT" envDefault:"1500ms"`

	PasswordMinLength int    `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`
	ClinicTimezone    string `env:"CLINIC_TIMEZONE" envDefault:"Asia/Karachi"`

	// Origins allowed to call /api with the visitor cookie. Empty means
	// same-origin only.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"5"`

	NATSURL          string `env:"NATS_URL"`
	NATSAuditSubject string `env:"NATS_AUDIT_SUBJECT" envDefault:"medease.audit"`

	TicketBucket      string        `env:"TICKET_BUCKET"`
	TicketURLTTL      time.Duration `env:"TICKET_URL_TTL" envDefault:"15m"`
	S3Region          string        `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string        `env:"S3_ENDPOINT"`
	S3AccessKeyID     string        `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string        `env:"S3_SECRET_ACCESS_KEY"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) validate() error {
	c.BackendDriver = strings.ToLower(strings.TrimSpace(c.BackendDriver))
	if c.BackendDriver == "" {
		c.BackendDriver = DriverSupabase
	}
	switch c.BackendDriver {
	case DriverSupabase, DriverMemory:
	case DriverSelfHosted:
		if c.DBUrl == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s driver", DriverSelfHosted)
		}
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for the %s driver", DriverSelfHosted)
		}
	default:
		return fmt.Errorf("unknown BACKEND_DRIVER %q", c.BackendDriver)
	}
	if c.PasswordMinLength < 1 {
		return fmt.Errorf("PASSWORD_MIN_LENGTH must be positive")
	}
	if !timezone.IsValid(c.ClinicTimezone) {
		return fmt.Errorf("unknown CLINIC_TIMEZONE %q", c.ClinicTimezone)
	}
	if c.TicketBucket != "" && (c.S3AccessKeyID == "" || c.S3SecretAccessKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required with TICKET_BUCKET")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.ServerPort)
}

func (c *Config) IsLocal() bool {
	return c.AppEnv == "local"
}
