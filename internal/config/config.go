// Package config loads the service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ovaphlow/pitchfork/service-member-go/internal/blob"
)

// Config holds runtime settings for the member service. Database and
// logger settings are read separately by pkg/database and pkg/utilities.
type Config struct {
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:4567"`
	JWTSecret      string        `env:"JWT_SECRET"`
	BcryptCost     int           `env:"BCRYPT_COST" envDefault:"10"`
	HashTimeout    time.Duration `env:"HASH_TIMEOUT" envDefault:"5s"`
	UploadTimeout  time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"30s"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	BlobBackend   string `env:"BLOB_BACKEND" envDefault:"disk"`
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"profilePics"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`
}

var ErrMissingSecret = errors.New("JWT_SECRET is required")

// Load parses the environment and checks the settings that have no safe
// default.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingSecret
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.HashTimeout <= 0 || c.UploadTimeout <= 0 {
		return errors.New("HASH_TIMEOUT and UPLOAD_TIMEOUT must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// Blob returns the blob store settings.
func (c *Config) Blob() blob.Config {
	return blob.Config{
		Backend:       c.BlobBackend,
		Dir:           c.UploadDir,
		PublicBaseURL: c.PublicBaseURL,
		S3Bucket:      c.S3Bucket,
		S3Region:      c.S3Region,
		S3Endpoint:    c.S3Endpoint,
		S3AccessKey:   c.S3AccessKey,
		S3SecretKey:   c.S3SecretKey,
		S3PublicURL:   c.S3PublicURL,
	}
}
