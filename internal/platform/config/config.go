// Package config builds the explicit configuration object the service is
// wired from. Every adapter receives its settings at construction; nothing
// reads the environment after startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "idproof/pkg/platform/strings"
)

// Config is the root configuration. Required fields are validated fail-fast
// at startup so a misconfigured instance never accepts sessions.
type Config struct {
	Addr        string
	MetricsAddr string

	Classifier ClassifierConfig
	Storage    StorageConfig
	Redis      RedisConfig
	Kafka      KafkaConfig

	// PostgresURL enables the Postgres audit store when set; otherwise the
	// in-memory store is used.
	PostgresURL string

	// SigningKey is the HMAC key for attestation tokens. Required.
	SigningKey string

	// APIKeyHash is the bcrypt hash of the relying-client API key. Empty
	// disables API-key auth (development only).
	APIKeyHash string

	Thresholds Thresholds

	// MaxUploadBytes caps document and live-capture uploads.
	MaxUploadBytes int64
}

// ClassifierConfig addresses the external vision classifier.
type ClassifierConfig struct {
	// Endpoint is the chat-completions URL of the classifier gateway. Required.
	Endpoint string
	// APIKey authenticates against the classifier gateway. Required.
	APIKey string
	Model  string
	// Timeout bounds every classifier call; a timeout is an adapter failure.
	Timeout time.Duration
}

// StorageConfig addresses the S3-compatible object store that holds document
// images and live captures. Empty Bucket selects the in-memory backend.
type StorageConfig struct {
	Endpoint  string
	Bucket    string
	Region    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// RedisConfig addresses the optional Redis session store. Empty URL selects
// the in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// SessionTTL bounds how long an unfinished session may linger.
	SessionTTL time.Duration
}

// KafkaConfig addresses the optional audit event fan-out. Empty Brokers
// disables publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Thresholds are the inclusive lower bounds for the verification decision.
// They are configuration so policy can be tuned without code changes; the
// conjunction logic itself is fixed.
type Thresholds struct {
	OCRConfidence      int
	DocumentValidation int
	Liveness           int
	FaceMatch          int
}

// DefaultThresholds returns the production policy baseline.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OCRConfidence:      75,
		DocumentValidation: 70,
		Liveness:           70,
		FaceMatch:          70,
	}
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:        envOr("IDPROOF_ADDR", ":8080"),
		MetricsAddr: envOr("IDPROOF_METRICS_ADDR", ":9090"),
		Classifier: ClassifierConfig{
			Endpoint: os.Getenv("CLASSIFIER_ENDPOINT"),
			APIKey:   os.Getenv("CLASSIFIER_API_KEY"),
			Model:    envOr("CLASSIFIER_MODEL", "google/gemini-2.5-flash"),
			Timeout:  envDuration("CLASSIFIER_TIMEOUT", 60*time.Second),
		},
		Storage: StorageConfig{
			Endpoint:  os.Getenv("STORAGE_ENDPOINT"),
			Bucket:    os.Getenv("STORAGE_BUCKET"),
			Region:    envOr("STORAGE_REGION", "us-east-1"),
			Prefix:    envOr("STORAGE_PREFIX", "idproof"),
			AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			SessionTTL:   envDuration("SESSION_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers: pstrings.DedupeAndTrim(strings.Split(os.Getenv("KAFKA_BROKERS"), ",")),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "idproof.audit"),
		},
		PostgresURL:    os.Getenv("POSTGRES_URL"),
		SigningKey:     os.Getenv("TOKEN_SIGNING_KEY"),
		APIKeyHash:     os.Getenv("API_KEY_HASH"),
		Thresholds:     thresholdsFromEnv(),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 10<<20)),
	}
	return cfg
}

// Validate fails fast when a required field is absent. A missing classifier
// endpoint or signing key must never be discovered mid-session.
func (c Config) Validate() error {
	if c.Classifier.Endpoint == "" {
		return fmt.Errorf("config: CLASSIFIER_ENDPOINT is required")
	}
	if c.Classifier.APIKey == "" {
		return fmt.Errorf("config: CLASSIFIER_API_KEY is required")
	}
	if c.SigningKey == "" {
		return fmt.Errorf("config: TOKEN_SIGNING_KEY is required")
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate rejects thresholds outside the score domain.
func (t Thresholds) Validate() error {
	for name, v := range map[string]int{
		"ocr_confidence":      t.OCRConfidence,
		"document_validation": t.DocumentValidation,
		"liveness":            t.Liveness,
		"face_match":          t.FaceMatch,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("config: threshold %s out of range [0,100]: %d", name, v)
		}
	}
	return nil
}

func thresholdsFromEnv() Thresholds {
	t := DefaultThresholds()
	t.OCRConfidence = envInt("THRESHOLD_OCR_CONFIDENCE", t.OCRConfidence)
	t.DocumentValidation = envInt("THRESHOLD_DOCUMENT_VALIDATION", t.DocumentValidation)
	t.Liveness = envInt("THRESHOLD_LIVENESS", t.Liveness)
	t.FaceMatch = envInt("THRESHOLD_FACE_MATCH", t.FaceMatch)
	return t
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
