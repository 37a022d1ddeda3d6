package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const minJWTSecretLength = 16

type Config struct {
	DatabaseURL string
	RedisURL    string // optional
	JWTSecret   string
	JWTExpiry   time.Duration
	ServerPort  string
	Environment string
	CORSOrigins []string

	// Rate limiting
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration
	RateLimitBlockTime   time.Duration

	// Events that fail to publish are spooled here and retried; "none" disables
	EventSpoolPath      string
	EventReplayInterval time.Duration

	// Image uploads; disabled when S3Bucket is empty
	S3Bucket        string
	AWSRegion       string
	S3PublicBaseURL string
	MaxUploadBytes  int64
}

// Load reads configuration from a .env file (when present) and the process
// environment.
func Load() (*Config, error) {
	// Containers pass variables directly; a missing .env is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Log.Warn("Failed to parse .env file", zap.Error(err))
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTExpiry:   getEnvAsDuration("JWT_EXPIRY", "168h"),
		ServerPort:  getEnv("SERVER_PORT", ":5000"),
		Environment: getEnv("ENVIRONMENT", "development"),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", "http://localhost:5173"),

		RateLimitMaxRequests: getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitWindow:      getEnvAsDuration("RATE_LIMIT_WINDOW", "15m"),
		RateLimitBlockTime:   getEnvAsDuration("RATE_LIMIT_BLOCK_TIME", "5m"),

		EventSpoolPath:      getEnv("EVENT_SPOOL_PATH", "./data/events.wal"),
		EventReplayInterval: getEnvAsDuration("EVENT_REPLAY_INTERVAL", "30s"),

		S3Bucket:        os.Getenv("S3_BUCKET"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		S3PublicBaseURL: strings.TrimRight(os.Getenv("S3_PUBLIC_BASE_URL"), "/"),
		MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_BYTES", 5<<20)),
	}

	if cfg.EventSpoolPath == "none" {
		cfg.EventSpoolPath = ""
	}

	if !strings.HasPrefix(cfg.ServerPort, ":") && !strings.Contains(cfg.ServerPort, ":") {
		cfg.ServerPort = ":" + cfg.ServerPort
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if len(c.JWTSecret) < minJWTSecretLength {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.JWTExpiry <= 0 {
		return errors.New("JWT_EXPIRY must be positive")
	}
	if c.EventReplayInterval <= 0 {
		return errors.New("EVENT_REPLAY_INTERVAL must be positive")
	}
	if c.RateLimitMaxRequests <= 0 {
		return errors.New("RATE_LIMIT_MAX_REQUESTS must be positive")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) UploadsEnabled() bool {
	return c.S3Bucket != ""
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

// getEnvAsInt retrieves environment variable as int with default value
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		logger.Log.Warn("Invalid integer config value, using default",
			zap.String("key", key),
			zap.Int("default", defaultVal),
		)
		return defaultVal
	}
	return val
}

// getEnvAsDuration retrieves environment variable as duration with default value
func getEnvAsDuration(key string, defaultVal string) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		valStr = defaultVal
	}
	duration, err := time.ParseDuration(valStr)
	if err != nil {
		logger.Log.Warn("Invalid duration config value, using default",
			zap.String("key", key),
			zap.String("default", defaultVal),
		)
		duration, _ = time.ParseDuration(defaultVal)
	}
	return duration
}

func getEnvAsList(key, defaultVal string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultVal), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
