package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/medbook/booking-api/internal/email"
	"github.com/medbook/booking-api/internal/repository/postgres"
	pkgauth "github.com/medbook/booking-api/pkg/auth"
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    postgres.Config   `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         pkgauth.Config    `mapstructure:"jwt"`
	Encryption  EncryptionConfig  `mapstructure:"encryption"`
	Email       email.Config      `mapstructure:"email"`
	Audit       AuditConfig       `mapstructure:"audit"`
	Reminders   ReminderConfig    `mapstructure:"reminders"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int     `mapstructure:"port"`
	Mode           string  `mapstructure:"mode"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateBurst      int     `mapstructure:"rate_burst"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type EncryptionConfig struct {
	Key string `mapstructure:"key"`
}

type AuditConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

type ReminderConfig struct {
	LeadHours int    `mapstructure:"lead_hours"`
	Schedule  string `mapstructure:"schedule"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads config.yaml, then lets environment variables override
// (MEDBOOK_DATABASE_PASSWORD, MEDBOOK_JWT_SECRET and so on). A .env
// file is honored in development for convenience.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("medbook")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A config file is optional when everything comes from the
		// environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.timeout_seconds", 30)
	viper.SetDefault("server.rate_limit", 50)
	viper.SetDefault("server.rate_burst", 100)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.name", "medbook")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("jwt.refresh_hours", 168)
	viper.SetDefault("email.port", 587)
	viper.SetDefault("audit.retention_days", 365)
	viper.SetDefault("reminders.lead_hours", 24)
	viper.SetDefault("reminders.schedule", "0 * * * *")
	viper.SetDefault("log.level", "info")
}

// validate refuses to start production with missing secrets. In
// development the gaps are tolerated so a fresh checkout runs; callers
// log a warning for anything missing.
func (c *Config) validate() error {
	if !c.IsProduction() {
		return nil
	}

	var missing []string
	if c.JWT.Secret == "" {
		missing = append(missing, "jwt.secret")
	}
	if c.JWT.RefreshSecret == "" {
		missing = append(missing, "jwt.refresh_secret")
	}
	if c.Encryption.Key == "" {
		missing = append(missing, "encryption.key")
	}
	if c.Database.Password == "" {
		missing = append(missing, "database.password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration in production: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	env := c.Environment
	if env == "" {
		env = os.Getenv("MEDBOOK_ENVIRONMENT")
	}
	return env == "production"
}
