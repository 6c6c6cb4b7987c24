package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	AuthMode        string        `mapstructure:"AUTH_MODE"`
	StoreBackend    string        `mapstructure:"STORE_BACKEND"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	SQLitePath      string        `mapstructure:"SQLITE_PATH"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	StoreTimeout    time.Duration `mapstructure:"STORE_TIMEOUT"`
	EncryptionKey   string        `mapstructure:"ENCRYPTION_KEY"`
	AuthIssuer      string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL     string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience    string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey  string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	UploadMaxSize   string        `mapstructure:"UPLOAD_MAX_SIZE"`
	ArchiveBackend  string        `mapstructure:"ARCHIVE_BACKEND"`
	ArchiveBucket   string        `mapstructure:"ARCHIVE_BUCKET"`
	KafkaBrokers    []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaAuditTopic string        `mapstructure:"KAFKA_AUDIT_TOPIC"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
}

var keys = []string{
	"PORT", "ENV", "AUTH_MODE", "STORE_BACKEND", "DATABASE_URL", "SQLITE_PATH",
	"DB_MAX_CONNS", "DB_MIN_CONNS", "STORE_TIMEOUT", "ENCRYPTION_KEY",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "UPLOAD_MAX_SIZE", "ARCHIVE_BACKEND", "ARCHIVE_BUCKET",
	"KAFKA_BROKERS", "KAFKA_AUDIT_TOPIC", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "")
	v.SetDefault("STORE_BACKEND", "sqlite")
	v.SetDefault("SQLITE_PATH", "medassist.db")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("UPLOAD_MAX_SIZE", "10M")
	v.SetDefault("ARCHIVE_BACKEND", "none")
	v.SetDefault("KAFKA_AUDIT_TOPIC", "medassist.audit")
	v.SetDefault("RATE_LIMIT_RPS", 2)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	// Unmarshal only sees env vars that were bound explicitly.
	for _, k := range keys {
		v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))

	return cfg, nil
}

func splitList(parsed []string, raw string) []string {
	if len(parsed) == 0 && raw != "" {
		parsed = strings.Split(raw, ",")
	}
	var out []string
	for _, s := range parsed {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE when set. Otherwise any configured
// issuer or signing key selects "jwt"; a development server without either
// runs "development" auth, where every request is a local dev user.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.AuthIssuer != "" || c.AuthSigningKey != "" {
		return "jwt"
	}
	if c.IsDev() {
		return "development"
	}
	return "jwt"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is \"postgres\"")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_BACKEND is \"sqlite\"")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be \"postgres\" or \"sqlite\", got %q", c.StoreBackend)
	}

	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}

	if c.EncryptionKey != "" {
		keyBytes, err := hex.DecodeString(c.EncryptionKey)
		if err != nil {
			return fmt.Errorf("ENCRYPTION_KEY is not valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
		}
	}

	mode := c.ResolvedAuthMode()
	if mode != "development" && mode != "jwt" {
		return fmt.Errorf("AUTH_MODE must be \"development\" or \"jwt\", got %q", mode)
	}

	if c.IsProduction() {
		if c.EncryptionKey == "" {
			return fmt.Errorf("ENCRYPTION_KEY is required in production")
		}
		if mode == "development" {
			return fmt.Errorf("AUTH_MODE=development is not allowed in production")
		}
		if c.AuthIssuer == "" && c.AuthSigningKey == "" {
			return fmt.Errorf("AUTH_ISSUER or AUTH_SIGNING_KEY must be set in production")
		}
	}

	if c.AuthSigningKey != "" {
		if _, err := hex.DecodeString(c.AuthSigningKey); err != nil {
			return fmt.Errorf("AUTH_SIGNING_KEY is not valid hex: %w", err)
		}
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive and RATE_LIMIT_BURST at least 1")
	}

	switch c.ArchiveBackend {
	case "", "none", "memory":
	case "s3":
		if c.ArchiveBucket == "" {
			return fmt.Errorf("ARCHIVE_BUCKET is required when ARCHIVE_BACKEND is \"s3\"")
		}
	default:
		return fmt.Errorf("ARCHIVE_BACKEND must be \"none\", \"memory\", or \"s3\", got %q", c.ArchiveBackend)
	}

	return nil
}
