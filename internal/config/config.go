// Package config loads service configuration from an optional .env file,
// an optional TOML file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Duration decodes TOML strings such as "15m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config is the full service configuration.
type Config struct {
	HTTPAddr  string `toml:"http_addr"`  // PORT (default ":8080")
	PublicURL string `toml:"public_url"` // PUBLIC_URL, used in email links
	LogLevel  string `toml:"log_level"`  // LOG_LEVEL (debug|info|warn|error)
	LogFormat string `toml:"log_format"` // LOG_FORMAT (text|json)

	Database  Database  `toml:"database"`
	Auth      Auth      `toml:"auth"`
	Cache     Cache     `toml:"cache"`
	Events    Events    `toml:"events"`
	Mail      Mail      `toml:"mail"`
	RateLimit RateLimit `toml:"rate_limit"`
}

// Database holds PostgreSQL connection settings.
type Database struct {
	Host     string `toml:"host"`     // DB_HOST
	Port     string `toml:"port"`     // DB_PORT
	User     string `toml:"user"`     // DB_USER
	Password string `toml:"password"` // DB_PASSWORD
	Name     string `toml:"name"`     // DB_NAME
	SSLMode  string `toml:"sslmode"`  // DB_SSLMODE
	MaxConns int32  `toml:"max_conns"`
}

// Auth holds token and password hashing settings.
type Auth struct {
	JWTSecret  string   `toml:"jwt_secret"` // JWT_SECRET (required)
	Issuer     string   `toml:"issuer"`
	TokenTTL   Duration `toml:"token_ttl"` // JWT_TTL
	BcryptCost int      `toml:"bcrypt_cost"`
}

// Cache configures the Redis read-through cache. Empty addr disables it.
type Cache struct {
	RedisAddr string   `toml:"redis_addr"` // REDIS_ADDR
	TTL       Duration `toml:"ttl"`        // CACHE_TTL
}

// Events configures domain event publishing. Empty URL disables it.
type Events struct {
	NATSURL string `toml:"nats_url"` // NATS_URL
}

// Mail selects the notifier implementation.
type Mail struct {
	Provider         string `toml:"provider"` // MAIL_PROVIDER (log|mailersend)
	MailerSendAPIKey string `toml:"mailersend_api_key"`
	FromEmail        string `toml:"from_email"` // MAIL_FROM
	FromName         string `toml:"from_name"`  // MAIL_FROM_NAME
}

// RateLimit configures the per-client token bucket.
type RateLimit struct {
	RPS     float64  `toml:"rps"`   // RATE_LIMIT_RPS (0 disables)
	Burst   int      `toml:"burst"` // RATE_LIMIT_BURST
	IdleTTL Duration `toml:"idle_ttl"`
}

// Default returns local-development defaults.
func Default() *Config {
	return &Config{
		HTTPAddr:  ":8080",
		PublicURL: "http://localhost:8080",
		LogLevel:  "info",
		LogFormat: "text",
		Database: Database{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "kayaktours",
			SSLMode:  "disable",
			MaxConns: 20,
		},
		Auth: Auth{
			Issuer:     "kayak-tours",
			TokenTTL:   Duration{2 * time.Hour},
			BcryptCost: 12,
		},
		Cache:     Cache{TTL: Duration{30 * time.Second}},
		Mail:      Mail{Provider: "log", FromEmail: "no-reply@kayak.local", FromName: "Kayak Tours"},
		RateLimit: RateLimit{RPS: 20, Burst: 40, IdleTTL: Duration{3 * time.Minute}},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.HTTPAddr = ":" + v
	}
	setString(&c.PublicURL, "PUBLIC_URL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")

	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Cache.RedisAddr, "REDIS_ADDR")
	setString(&c.Events.NATSURL, "NATS_URL")
	setString(&c.Mail.Provider, "MAIL_PROVIDER")
	setString(&c.Mail.MailerSendAPIKey, "MAILERSEND_API_KEY")
	setString(&c.Mail.FromEmail, "MAIL_FROM")
	setString(&c.Mail.FromName, "MAIL_FROM_NAME")

	if err := setDuration(&c.Auth.TokenTTL, "JWT_TTL"); err != nil {
		return err
	}
	if err := setDuration(&c.Cache.TTL, "CACHE_TTL"); err != nil {
		return err
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimit.RPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		c.RateLimit.Burst = n
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("JWT_SECRET is required and must be at least 16 bytes")
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.Cache.TTL.Duration <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	switch c.Mail.Provider {
	case "log":
	case "mailersend":
		if c.Mail.MailerSendAPIKey == "" {
			return errors.New("MAILERSEND_API_KEY is required when MAIL_PROVIDER=mailersend")
		}
	default:
		return fmt.Errorf("unknown mail provider %q", c.Mail.Provider)
	}
	if c.RateLimit.RPS < 0 || (c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1) {
		return errors.New("rate_limit: burst must be at least 1 when rps is set")
	}
	return nil
}

// DSN builds a libpq-compatible connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL builds a connection URL with the given scheme, e.g. "pgx5" for migrations.
func (d Database) URL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	dst.Duration = d
	return nil
}
