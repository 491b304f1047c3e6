package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
)

const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the process configuration, read from the environment (and .env when present).
type Config struct {
	Port     string `validate:"required,numeric"`
	Env      string `validate:"oneof=development test production"`
	LogLevel string `validate:"oneof=trace debug info warn error"`

	DBDriver   string `validate:"oneof=pgx postgres sqlite"`
	DBHost     string `validate:"required_unless=DBDriver sqlite"`
	DBPort     string `validate:"required_unless=DBDriver sqlite"`
	DBUser     string `validate:"required_unless=DBDriver sqlite"`
	DBPassword string
	DBName     string `validate:"required_unless=DBDriver sqlite"`
	DBSSLMode  string
	DBPath     string `validate:"required_if=DBDriver sqlite"`

	JWTSecret string        `validate:"required,min=16"`
	TokenTTL  time.Duration `validate:"gt=0"`

	CORSOrigins       []string
	BootstrapManagers []string

	TwilioAccountSID string
	TwilioAuthToken  string `validate:"required_with=TwilioAccountSID"`
	TwilioFrom       string `validate:"required_with=TwilioAccountSID"`
	TwilioNotifyTo   string `validate:"required_with=TwilioAccountSID"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	ttl, err := time.ParseDuration(getenv("TOKEN_TTL", "72h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	cfg := Config{
		Port:     getenv("PORT", "8080"),
		Env:      getenv("APP_ENV", "development"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DBDriver:   getenv("DB_DRIVER", DriverPgx),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),
		DBPath:     os.Getenv("DB_PATH"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  ttl,

		CORSOrigins:       splitList(getenv("CORS_ORIGINS", "*")),
		BootstrapManagers: splitList(os.Getenv("BOOTSTRAP_MANAGERS")),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM"),
		TwilioNotifyTo:   os.Getenv("TWILIO_NOTIFY_TO"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return c.DBPath
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// SMSEnabled reports whether Twilio credentials are configured.
func (c Config) SMSEnabled() bool {
	return c.TwilioAccountSID != ""
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
