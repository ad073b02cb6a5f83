package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Security
	APIKeyHash         string `envconfig:"API_KEY_HASH"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"600"`

	// Extractor
	Extractor     string `envconfig:"EXTRACTOR" default:"deepface"`
	DeepFaceURL   string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel string `envconfig:"DEEPFACE_MODEL" default:"Dlib"`

	// Matching
	MatchThreshold         float64 `envconfig:"MATCH_THRESHOLD" default:"0.6"`
	EmbeddingDim           int     `envconfig:"EMBEDDING_DIM" default:"128"`
	Timezone               string  `envconfig:"TIMEZONE" default:"Local"`
	GalleryLoadConcurrency int     `envconfig:"GALLERY_LOAD_CONCURRENCY" default:"4"`
	DisplayPolicy          string  `envconfig:"DISPLAY_POLICY" default:"closest"`

	// Enrollment images
	BlobBackend string `envconfig:"BLOB_BACKEND" default:"local"`
	BlobDir     string `envconfig:"BLOB_DIR" default:"./data/enrollments"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Prefix    string `envconfig:"S3_PREFIX" default:"enrollments/"`
	AWSRegion   string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Webhook
	WebhookURL    string `envconfig:"WEBHOOK_URL"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`

	// Kiosk camera loop
	CameraSnapshotURL string        `envconfig:"CAMERA_SNAPSHOT_URL"`
	CameraInterval    time.Duration `envconfig:"CAMERA_INTERVAL" default:"1s"`
	CameraStation     string        `envconfig:"CAMERA_STATION" default:"main"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express with tags.
func (c *Config) Validate() error {
	if c.MatchThreshold <= 0 {
		return fmt.Errorf("invalid MATCH_THRESHOLD %v: must be positive", c.MatchThreshold)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE %d: must not be negative", c.RateLimitPerMinute)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("invalid EMBEDDING_DIM %d: must be positive", c.EmbeddingDim)
	}
	switch c.Extractor {
	case "deepface", "mock":
	default:
		return fmt.Errorf("invalid EXTRACTOR %q (supported: deepface, mock)", c.Extractor)
	}
	switch c.DisplayPolicy {
	case "closest", "last":
	default:
		return fmt.Errorf("invalid DISPLAY_POLICY %q (supported: closest, last)", c.DisplayPolicy)
	}
	switch c.BlobBackend {
	case "local", "memory":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BLOB_BACKEND=s3")
		}
	default:
		return fmt.Errorf("invalid BLOB_BACKEND %q (supported: local, s3, memory)", c.BlobBackend)
	}
	if c.IsProduction() && c.APIKeyHash == "" {
		return fmt.Errorf("API_KEY_HASH is required in production")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location is the time zone attendance hours are bucketed in.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// KioskEnabled reports whether the camera loop should run.
func (c *Config) KioskEnabled() bool {
	return c.CameraSnapshotURL != ""
}
