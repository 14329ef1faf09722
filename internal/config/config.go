package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given. A missing file is not an error.
const DefaultPath = "studenthub.yaml"

// Config holds all studenthub configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Auth     AuthConfig     `yaml:"auth"`
	Listings ListingsConfig `yaml:"listings"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres, pgx, sqlite
	URL    string `yaml:"url"`
}

// MongoConfig configures GridFS storage. Storage is disabled when URI is empty.
type MongoConfig struct {
	URI      string        `yaml:"uri"`
	Database string        `yaml:"database"`
	Buckets  BucketsConfig `yaml:"buckets"`
}

type BucketsConfig struct {
	Avatars       string `yaml:"avatars"`
	ListingImages string `yaml:"listing_images"`
}

func (b BucketsConfig) Names() []string {
	return []string{b.Avatars, b.ListingImages}
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type ListingsConfig struct {
	DefaultLocation string        `yaml:"default_location"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	Backoff         time.Duration `yaml:"backoff"`
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type LogConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8083",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Driver: "postgres"},
		Mongo: MongoConfig{
			Database: "studenthub",
			Buckets: BucketsConfig{
				Avatars:       "avatars",
				ListingImages: "listing-images",
			},
		},
		Auth: AuthConfig{TokenTTL: 24 * time.Hour},
		Listings: ListingsConfig{
			QueryTimeout: 8 * time.Second,
			MaxAttempts:  2,
			Backoff:      time.Second,
		},
		Session: SessionConfig{
			TTL:           2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	// database/sql driver names are case-sensitive
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	return cfg, nil
}

func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("DATABASE_URL", &c.Database.URL)
	str("DB_DRIVER", &c.Database.Driver)
	str("MONGO_URI", &c.Mongo.URI)
	str("MONGO_DB", &c.Mongo.Database)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("PORT", &c.Server.Port)
	str("DEFAULT_LOCATION", &c.Listings.DefaultLocation)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("QUERY_MAX_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QUERY_MAX_ATTEMPTS: %w", err)
		}
		c.Listings.MaxAttempts = n
	}
	if v, ok := lookup("QUERY_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("QUERY_TIMEOUT: %w", err)
		}
		c.Listings.QueryTimeout = d
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if p, err := strconv.Atoi(c.Server.Port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("server.port %q is not a valid port", c.Server.Port))
	}
	switch c.Database.Driver {
	case "postgres", "pgx", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of postgres, pgx, sqlite", c.Database.Driver))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url (DATABASE_URL) is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret (JWT_SECRET) is required"))
	}
	if c.Listings.MaxAttempts < 1 {
		errs = append(errs, errors.New("listings.max_attempts must be at least 1"))
	}
	if c.Listings.QueryTimeout <= 0 {
		errs = append(errs, errors.New("listings.query_timeout must be positive"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("session.sweep_interval must be positive"))
	}
	if c.Mongo.URI != "" && (c.Mongo.Buckets.Avatars == "" || c.Mongo.Buckets.ListingImages == "") {
		errs = append(errs, errors.New("mongo.buckets must name both buckets"))
	}
	return errors.Join(errs...)
}
