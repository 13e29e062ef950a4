package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPass      string
	DBName      string

	RedisURL string

	MeiliSearchHost string
	MeiliMasterKey  string

	JWTSecret string
	// AuthzURL points at the peer authorization service. Empty means the
	// built-in owner policy decides.
	AuthzURL string

	StorageDriver string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	RateLimitCreate       time.Duration
	OrphanCleanupInterval time.Duration
	// OrphanCleanupSchedule is a cron expression that, when set, replaces
	// OrphanCleanupInterval.
	OrphanCleanupSchedule string
	OrphanMaxAge          time.Duration
	// RunJobsOnStart runs every scheduled job once when the server starts.
	RunJobsOnStart bool
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPass:      os.Getenv("DB_PASS"),
		DBName:      getEnv("DB_NAME", "attachments"),

		RedisURL: os.Getenv("REDIS_URL"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),
		AuthzURL:  os.Getenv("AUTHZ_URL"),

		StorageDriver: getEnv("STORAGE_DRIVER", "s3"),

		S3Endpoint:  getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey: getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:    getEnv("S3_BUCKET", "attachments"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),

		OrphanCleanupSchedule: os.Getenv("ORPHAN_CLEANUP_SCHEDULE"),
	}

	var err error
	cfg.S3UseSSL, err = strconv.ParseBool(getEnv("S3_USE_SSL", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid S3_USE_SSL: %w", err)
	}

	cfg.RunJobsOnStart, err = strconv.ParseBool(getEnv("JOBS_RUN_ON_START", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid JOBS_RUN_ON_START: %w", err)
	}

	// Parsing durations
	cfg.RateLimitCreate, err = parseDuration(getEnv("RATE_LIMIT_CREATE", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_CREATE: %w", err)
	}
	cfg.OrphanCleanupInterval, err = parseDuration(getEnv("ORPHAN_CLEANUP_INTERVAL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORPHAN_CLEANUP_INTERVAL: %w", err)
	}
	cfg.OrphanMaxAge, err = parseDuration(getEnv("ORPHAN_MAX_AGE", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORPHAN_MAX_AGE: %w", err)
	}

	return cfg, nil
}

// PostgresDSN prefers DATABASE_URL and falls back to the discrete DB_* settings.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort,
	)
}

// OrphanSweepSchedule is the cron schedule of the orphan sweep, "" when the
// sweep is disabled.
func (c *Config) OrphanSweepSchedule() string {
	if c.OrphanCleanupSchedule != "" {
		return c.OrphanCleanupSchedule
	}
	if c.OrphanCleanupInterval <= 0 {
		return ""
	}
	return "@every " + c.OrphanCleanupInterval.String()
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
