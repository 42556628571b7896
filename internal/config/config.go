package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the batchpulse server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Upload   UploadConfig
	Predict  PredictConfig
	Summary  SummaryConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	LogLevel           slog.Level
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	MetricsEnabled     bool
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type UploadConfig struct {
	MaxBytes int64
	Dir      string
}

type PredictConfig struct {
	LookbackDays     int
	DefaultDaysAhead int
	MaxDaysAhead     int
	DemoBackfill     bool
}

type SummaryConfig struct {
	CacheTTL time.Duration
}

// LoadDotEnv loads variables from the given files, or .env when none are
// named. Variables already set win. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	level, err := parseLevel(envString("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("BATCHPULSE_PORT", 8080),
			Env:                envString("BATCHPULSE_ENV", "development"),
			LogLevel:           level,
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
			CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			MetricsEnabled:     envBool("METRICS_ENABLED", true),
		},
		Database: databaseFromEnv(),
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Upload:  uploadFromEnv(),
		Predict: predictFromEnv(),
		Summary: summaryFromEnv(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ToolConfig is the subset of settings batchctl needs. Redis is optional.
type ToolConfig struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Upload   UploadConfig
	Predict  PredictConfig
	Summary  SummaryConfig
}

// LoadTool reads the settings for command-line tools that talk to the
// database directly.
func LoadTool() (*ToolConfig, error) {
	cfg := &ToolConfig{
		Database: databaseFromEnv(),
		Redis:    RedisConfig{URL: os.Getenv("REDIS_URL")},
		Upload:   uploadFromEnv(),
		Predict:  predictFromEnv(),
		Summary:  summaryFromEnv(),
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func databaseFromEnv() DatabaseConfig {
	return DatabaseConfig{
		URL:             os.Getenv("DATABASE_URL"),
		MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

func uploadFromEnv() UploadConfig {
	return UploadConfig{
		MaxBytes: int64(envInt("UPLOAD_MAX_BYTES", 32<<20)),
		Dir:      envString("UPLOAD_DIR", "./uploads"),
	}
}

func predictFromEnv() PredictConfig {
	return PredictConfig{
		LookbackDays:     envInt("PREDICT_LOOKBACK_DAYS", 90),
		DefaultDaysAhead: envInt("PREDICT_DEFAULT_DAYS_AHEAD", 7),
		MaxDaysAhead:     envInt("PREDICT_MAX_DAYS_AHEAD", 30),
		DemoBackfill:     envBool("PREDICT_DEMO_BACKFILL", true),
	}
}

func summaryFromEnv() SummaryConfig {
	return SummaryConfig{
		CacheTTL: envDuration("SUMMARY_CACHE_TTL", 5*time.Minute),
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("BATCHPULSE_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.Server.RateLimitPerMinute)
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.Upload.MaxBytes)
	}

	if c.Predict.LookbackDays <= 0 {
		return fmt.Errorf("PREDICT_LOOKBACK_DAYS must be positive, got %d", c.Predict.LookbackDays)
	}
	if c.Predict.MaxDaysAhead < 1 {
		return fmt.Errorf("PREDICT_MAX_DAYS_AHEAD must be at least 1, got %d", c.Predict.MaxDaysAhead)
	}
	if c.Predict.DefaultDaysAhead < 1 || c.Predict.DefaultDaysAhead > c.Predict.MaxDaysAhead {
		return fmt.Errorf("PREDICT_DEFAULT_DAYS_AHEAD must be between 1 and PREDICT_MAX_DAYS_AHEAD (%d), got %d",
			c.Predict.MaxDaysAhead, c.Predict.DefaultDaysAhead)
	}

	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
	}
	return level, nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
