package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration derived from environment
// variables. The source registry is loaded separately from YAML, see
// sources.go.
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	Scrape   ScrapeConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DatabaseConfig locates the SQLite event store.
type DatabaseConfig struct {
	Path string
}

// ScrapeConfig tunes the extraction pipeline.
type ScrapeConfig struct {
	SourcesPath    string
	Schedule       string
	ConcurrentRuns int
	Strict         bool
	RetentionDays  int
	TitleThreshold float64
	TimeWindow     time.Duration
	Delay          time.Duration
	MaxRetries     int
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultDatabasePath = "data/events.db"

	defaultSourcesPath    = "config/sources.yaml"
	defaultSchedule       = "0 */6 * * *"
	defaultConcurrentRuns = 3
	defaultRetentionDays  = 90
	defaultTitleThreshold = 0.85
	defaultTimeWindow     = 60 * time.Minute
	defaultScrapeDelay    = 2 * time.Second
	defaultMaxRetries     = 3
)

// Load reads configuration from environment variables, applying defaults
// when values are not provided.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", defaultPort),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", defaultDatabasePath),
		},
		Scrape: ScrapeConfig{
			SourcesPath:    getEnv("SOURCES_PATH", defaultSourcesPath),
			Schedule:       getEnv("SCRAPE_SCHEDULE", defaultSchedule),
			ConcurrentRuns: defaultConcurrentRuns,
			RetentionDays:  defaultRetentionDays,
			TitleThreshold: defaultTitleThreshold,
			TimeWindow:     defaultTimeWindow,
			Delay:          defaultScrapeDelay,
			MaxRetries:     defaultMaxRetries,
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("SCRAPE_CONCURRENT_RUNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid SCRAPE_CONCURRENT_RUNS: must be a positive integer")
		}
		cfg.Scrape.ConcurrentRuns = n
	}

	if v := os.Getenv("SCRAPE_STRICT"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCRAPE_STRICT: %w", err)
		}
		cfg.Scrape.Strict = strict
	}

	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid RETENTION_DAYS: must be a non-negative integer")
		}
		cfg.Scrape.RetentionDays = n
	}

	if v := os.Getenv("DEDUP_TITLE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return Config{}, fmt.Errorf("invalid DEDUP_TITLE_THRESHOLD: must be in [0, 1]")
		}
		cfg.Scrape.TitleThreshold = f
	}

	if v := os.Getenv("DEDUP_TIME_WINDOW_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid DEDUP_TIME_WINDOW_MINUTES: must be a non-negative integer")
		}
		cfg.Scrape.TimeWindow = time.Duration(n) * time.Minute
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
