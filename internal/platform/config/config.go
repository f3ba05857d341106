package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the pipeline and its surfaces need. It is built
// once in main and passed into constructors; no component reads the
// environment on its own, so tests can run isolated pipelines with distinct
// keys.
type Config struct {
	// EncryptionKey is the field-protection key material. Required.
	EncryptionKey []byte
	// DatabaseURL is the primary store target. Required.
	DatabaseURL string

	// ArchiveDir is the write-once retention root. Empty disables archiving
	// but not storage.
	ArchiveDir string
	// KafkaBrokers enables the audit mirror when non-empty.
	KafkaBrokers []string
	// AuditTopic is the mirror topic.
	AuditTopic string
	// AuditLogPath is the JSONL trail location.
	AuditLogPath string
	// RedisURL enables the shared dedup index when non-empty.
	RedisURL string
	// DedupTTL bounds retention of fingerprints in the dedup index.
	DedupTTL time.Duration

	// CallTimeout bounds every outbound call the pipeline makes per record.
	CallTimeout time.Duration
	// Workers bounds pipeline concurrency.
	Workers int

	// HTTPAddr is the API listen address.
	HTTPAddr string
	// JWTSigningKey validates API bearer tokens. The HTTP server refuses to
	// start without one; the batch importer does not use it.
	JWTSigningKey string

	// SocialAdsToken / SocialAdsPageID authenticate the social-ad adapter.
	SocialAdsToken  string
	SocialAdsPageID string
	// MarketplaceAPIKey / MarketplaceURL authenticate the marketplace adapter.
	MarketplaceAPIKey string
	MarketplaceURL    string

	// Actor is the principal recorded on audit entries for batch runs.
	Actor string
}

// Missing required configuration aborts the run before any record is
// processed.
var (
	ErrMissingEncryptionKey = errors.New("config: LEADGATE_ENCRYPTION_KEY is required")
	ErrMissingDatabaseURL   = errors.New("config: LEADGATE_DATABASE_URL is required")
)

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		EncryptionKey: []byte(os.Getenv("LEADGATE_ENCRYPTION_KEY")),
		DatabaseURL:   os.Getenv("LEADGATE_DATABASE_URL"),
		ArchiveDir:    os.Getenv("LEADGATE_ARCHIVE_DIR"),
		AuditTopic:    envDefault("LEADGATE_AUDIT_TOPIC", "leadgate.audit"),
		AuditLogPath:  envDefault("LEADGATE_AUDIT_LOG", "leadgate_audit.jsonl"),
		RedisURL:      os.Getenv("LEADGATE_REDIS_URL"),
		DedupTTL:      envDuration("LEADGATE_DEDUP_TTL", 30*24*time.Hour),
		CallTimeout:   envDuration("LEADGATE_CALL_TIMEOUT", 10*time.Second),
		Workers:       envInt("LEADGATE_WORKERS", 4),
		HTTPAddr:      envDefault("LEADGATE_HTTP_ADDR", ":8080"),
		JWTSigningKey: os.Getenv("LEADGATE_JWT_SIGNING_KEY"),

		SocialAdsToken:    os.Getenv("LEADGATE_SOCIAL_ADS_TOKEN"),
		SocialAdsPageID:   os.Getenv("LEADGATE_SOCIAL_ADS_PAGE_ID"),
		MarketplaceAPIKey: os.Getenv("LEADGATE_MARKETPLACE_API_KEY"),
		MarketplaceURL:    envDefault("LEADGATE_MARKETPLACE_URL", "https://api.agedleads.com/v1"),

		Actor: envDefault("USER", "system"),
	}
	if brokers := os.Getenv("LEADGATE_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if len(cfg.EncryptionKey) == 0 {
		return Config{}, ErrMissingEncryptionKey
	}
	if cfg.DatabaseURL == "" {
		return Config{}, ErrMissingDatabaseURL
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
