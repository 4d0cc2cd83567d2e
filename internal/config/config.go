// Package config loads server settings from .env files, an optional YAML
// file and BACHUB_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const devSecret = "insecure-development-secret"

type Config struct {
	HTTP       HTTP       `yaml:"http"`
	Log        Log        `yaml:"log"`
	Postgres   Postgres   `yaml:"postgres"`
	Redis      Redis      `yaml:"redis"`
	JWT        JWT        `yaml:"jwt"`
	Storage    Storage    `yaml:"storage"`
	Moderation Moderation `yaml:"moderation"`
}

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool `yaml:"trust_proxy"`
}

type Log struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Postgres with an empty DSN selects the in-memory store.
type Postgres struct {
	DSN string `yaml:"dsn"`
}

// Redis with an empty Addr selects the in-process rate-limit store.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWT struct {
	Secret string `yaml:"secret"`
}

// Storage.BaseURL prefixes blob URLs; the local driver defaults to /media.
type Storage struct {
	Driver    string `yaml:"driver"`
	Dir       string `yaml:"dir"`
	BaseURL   string `yaml:"base_url"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

type PerKind[T any] struct {
	Resource T `yaml:"resource"`
	Question T `yaml:"question"`
	Reply    T `yaml:"reply"`
}

type Moderation struct {
	Threshold        int                     `yaml:"threshold"`
	Cooldowns        PerKind[time.Duration] `yaml:"cooldowns"`
	AnonymousReports PerKind[bool]          `yaml:"anonymous_reports"`
}

func Default() Config {
	return Config{
		HTTP: HTTP{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Log:  Log{Env: "development", Level: "info"},
		Storage: Storage{
			Driver:  "local",
			Dir:    "./media",
			Region: "us-east-1",
		},
		Moderation: Moderation{
			Threshold: 5,
			Cooldowns: PerKind[time.Duration]{
				Resource: 24 * time.Hour,
				Question: 2 * time.Hour,
				Reply:    2 * time.Hour,
			},
			AnonymousReports: PerKind[bool]{Resource: true, Question: false, Reply: true},
		},
	}
}

// Load reads .env.local and .env (never overriding variables already set),
// then the YAML file at path if it is non-empty, then the environment.
func Load(path string) (Config, error) {
	loadDotEnv()

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv() {
	var found []string
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			found = append(found, f)
		}
	}
	if len(found) > 0 {
		_ = godotenv.Load(found...)
	}
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		c.HTTP.Addr = ":" + port
	}
	str("BACHUB_HTTP_ADDR", &c.HTTP.Addr)
	boolean("BACHUB_HTTP_TRUST_PROXY", &c.HTTP.TrustProxy)
	str("BACHUB_LOG_ENV", &c.Log.Env)
	str("BACHUB_LOG_LEVEL", &c.Log.Level)
	str("BACHUB_LOG_FILE", &c.Log.File)
	str("BACHUB_POSTGRES_DSN", &c.Postgres.DSN)
	str("BACHUB_REDIS_ADDR", &c.Redis.Addr)
	str("BACHUB_REDIS_PASSWORD", &c.Redis.Password)
	integer("BACHUB_REDIS_DB", &c.Redis.DB)
	str("BACHUB_JWT_SECRET", &c.JWT.Secret)
	str("BACHUB_STORAGE_DRIVER", &c.Storage.Driver)
	str("BACHUB_STORAGE_DIR", &c.Storage.Dir)
	str("BACHUB_STORAGE_BASE_URL", &c.Storage.BaseURL)
	str("BACHUB_S3_BUCKET", &c.Storage.Bucket)
	str("BACHUB_S3_REGION", &c.Storage.Region)
	str("BACHUB_S3_ENDPOINT", &c.Storage.Endpoint)
	str("BACHUB_S3_ACCESS_KEY", &c.Storage.AccessKey)
	str("BACHUB_S3_SECRET_KEY", &c.Storage.SecretKey)
	boolean("BACHUB_S3_PATH_STYLE", &c.Storage.PathStyle)
	integer("BACHUB_MODERATION_THRESHOLD", &c.Moderation.Threshold)
	duration("BACHUB_COOLDOWN_RESOURCE", &c.Moderation.Cooldowns.Resource)
	duration("BACHUB_COOLDOWN_QUESTION", &c.Moderation.Cooldowns.Question)
	duration("BACHUB_COOLDOWN_REPLY", &c.Moderation.Cooldowns.Reply)
	return errors.Join(errs...)
}

// Validate fills the development JWT secret and rejects unusable settings.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		if c.Log.Env != "development" {
			return errors.New("jwt.secret is required outside development")
		}
		c.JWT.Secret = devSecret
	}
	if c.Moderation.Threshold < 1 {
		return fmt.Errorf("moderation.threshold must be positive, got %d", c.Moderation.Threshold)
	}
	cd := c.Moderation.Cooldowns
	if cd.Resource < time.Millisecond || cd.Question < time.Millisecond || cd.Reply < time.Millisecond {
		return errors.New("moderation.cooldowns must be at least 1ms")
	}
	switch c.Storage.Driver {
	case "local":
		if c.Storage.Dir == "" {
			return errors.New("storage.dir is required for the local driver")
		}
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}
