// Package config loads server settings from the environment or a file and
// wires the board's stores, services and router from them.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full server configuration
type Config struct {
	Port           string        `yaml:"port" env:"PORT" env-default:"8080"`
	Environment    string        `yaml:"environment" env:"ENVIRONMENT" env-default:"development"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Timezone       string        `yaml:"timezone" env:"TIMEZONE" env-default:"Asia/Seoul"`
	AllowedOrigins []string      `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"60s"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-default:"67108864"`

	Database DatabaseConfig `yaml:"database"`
	Sequence SequenceConfig `yaml:"sequence"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Image    ImageConfig    `yaml:"image"`
}

// DatabaseConfig selects the document store. An empty URL or "memory" keeps
// everything in process.
type DatabaseConfig struct {
	URL         string `yaml:"url" env:"DATABASE_URL"`
	Schema      string `yaml:"schema" env:"DB_SCHEMA" env-default:"board"`
	AutoMigrate bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// SequenceConfig selects where post number counters live
type SequenceConfig struct {
	Backend     string        `yaml:"backend" env:"SEQUENCE_BACKEND" env-default:"database"`
	RedisURL    string        `yaml:"redis_url" env:"REDIS_URL"`
	KeyPrefix   string        `yaml:"key_prefix" env:"REDIS_KEY_PREFIX" env-default:"board:counter:"`
	MaxAttempts int           `yaml:"max_attempts" env:"SEQUENCE_MAX_ATTEMPTS" env-default:"5"`
	BaseDelay   time.Duration `yaml:"base_delay" env:"SEQUENCE_BASE_DELAY" env-default:"100ms"`
}

// StorageConfig selects the image blob store
type StorageConfig struct {
	Type         string `yaml:"type" env:"STORAGE_TYPE" env-default:"memory"`
	BaseDir      string `yaml:"base_dir" env:"STORAGE_BASE_DIR" env-default:"./data/storage"`
	PublicURL    string `yaml:"public_url" env:"STORAGE_PUBLIC_URL"`
	StaticPrefix string `yaml:"static_prefix" env:"STORAGE_STATIC_PREFIX" env-default:"/static"`

	S3 S3Config `yaml:"s3"`
}

// S3Config holds the S3 bucket settings
type S3Config struct {
	Endpoint               string `yaml:"endpoint" env:"AWS_S3_ENDPOINT"`
	AccessKeyID            string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey        string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	Bucket                 string `yaml:"bucket" env:"AWS_S3_BUCKET"`
	Region                 string `yaml:"region" env:"AWS_S3_REGION" env-default:"ap-northeast-2"`
	UsePathStyle           bool   `yaml:"use_path_style" env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	EnableSSE              bool   `yaml:"enable_sse" env:"AWS_S3_ENABLE_SSE" env-default:"false"`
	SSEAlgorithm           string `yaml:"sse_algorithm" env:"AWS_S3_SSE_ALGORITHM" env-default:"AES256"`
	CreateBucketIfNotExist bool   `yaml:"create_bucket" env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// AuthConfig covers token signing and the identity provider
type AuthConfig struct {
	JWTSecret            string `yaml:"jwt_secret" env:"JWT_SECRET_KEY"`
	AccessTokenMinutes   int    `yaml:"access_token_minutes" env:"JWT_ACCESS_EXPIRATION_TIME_MINUTES" env-default:"30"`
	RefreshTokenDays     int    `yaml:"refresh_token_days" env:"JWT_REFRESH_EXPIRATION_TIME_DAYS" env-default:"30"`
	IdentityProvider     string `yaml:"identity_provider" env:"IDENTITY_PROVIDER" env-default:"memory"`
	FirebaseWebAPIKey    string `yaml:"firebase_web_api_key" env:"FIREBASE_WEB_API_KEY"`
	FirebaseEndpoint     string `yaml:"firebase_endpoint" env:"FIREBASE_ENDPOINT"`
	BootstrapAdminEmail  string `yaml:"bootstrap_admin_email" env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPasswd string `yaml:"bootstrap_admin_password" env:"BOOTSTRAP_ADMIN_PASSWORD"`
	BootstrapAdminName   string `yaml:"bootstrap_admin_name" env:"BOOTSTRAP_ADMIN_NAME" env-default:"Administrator"`
}

// ImageConfig controls upload validation and re-encoding
type ImageConfig struct {
	MaxSize      int64    `yaml:"max_size" env:"MAX_IMAGE_SIZE" env-default:"10485760"`
	AllowedTypes []string `yaml:"allowed_types" env:"ALLOWED_IMAGE_TYPES" env-default:"image/jpeg,image/png,image/gif,image/webp"`
	MaxDimension int      `yaml:"max_dimension" env:"IMAGE_MAX_DIMENSION" env-default:"1200"`
	Quality      int      `yaml:"quality" env:"IMAGE_QUALITY" env-default:"75"`
}

// Load reads the configuration from path, or from the environment alone when
// path is empty, and validates it. path may be a YAML or .env file;
// environment variables override file values.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UsesPostgres reports whether DATABASE_URL points at a Postgres server
func (c *Config) UsesPostgres() bool {
	url := c.Database.URL
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// Validate checks cross-field rules
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	if url := c.Database.URL; url != "" && url != "memory" && !c.UsesPostgres() {
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", url)
	}

	switch c.Sequence.Backend {
	case "database":
	case "redis":
		if c.Sequence.RedisURL == "" {
			return errors.New("REDIS_URL is required when SEQUENCE_BACKEND is redis")
		}
	default:
		return fmt.Errorf("sequence backend must be 'database' or 'redis', got %q", c.Sequence.Backend)
	}
	if c.Sequence.MaxAttempts < 1 {
		return errors.New("SEQUENCE_MAX_ATTEMPTS must be at least 1")
	}

	switch c.Storage.Type {
	case "memory":
	case "fs":
		if c.Storage.BaseDir == "" {
			return errors.New("STORAGE_BASE_DIR is required for fs storage")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("AWS_S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("storage type must be 'memory', 'fs' or 's3', got %q", c.Storage.Type)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET_KEY is required")
	}
	switch c.Auth.IdentityProvider {
	case "memory":
	case "firebase":
		if c.Auth.FirebaseWebAPIKey == "" {
			return errors.New("FIREBASE_WEB_API_KEY is required for the firebase identity provider")
		}
	default:
		return fmt.Errorf("identity provider must be 'firebase' or 'memory', got %q", c.Auth.IdentityProvider)
	}
	if (c.Auth.BootstrapAdminEmail == "") != (c.Auth.BootstrapAdminPasswd == "") {
		return errors.New("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}

	if c.Image.Quality < 1 || c.Image.Quality > 100 {
		return errors.New("IMAGE_QUALITY must be between 1 and 100")
	}
	return nil
}

// Location returns the zone timestamps are recorded in
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

// NewLogger builds a JSON logger in production and a text logger otherwise
func (c *Config) NewLogger() *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
