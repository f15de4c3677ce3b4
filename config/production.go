// Package config provides configuration management and environment variable handling for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database       DatabaseConfig       `json:"database"`
	Server         ServerConfig         `json:"server"`
	Cache          CacheConfig          `json:"cache"`
	Logging        LoggingConfig        `json:"logging"`
	Metrics        MetricsConfig        `json:"metrics"`
	Scoring        ScoringConfig        `json:"scoring"`
	SourceAnalysis SourceAnalysisConfig `json:"source_analysis"`
	Audit          AuditConfig          `json:"audit"`
	Scheduler      SchedulerConfig      `json:"scheduler"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	EnableMetrics   bool          `json:"enable_metrics"`
}

type CacheConfig struct {
	Enabled  bool   `json:"enabled"`
	RedisURL string `json:"redis_url"`
	Prefix   string `json:"prefix"`
}

type LoggingConfig struct {
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ScoringConfig configures the external audit scoring service
type ScoringConfig struct {
	Endpoint  string        `json:"endpoint"`
	APIKey    string        `json:"api_key"`
	Timeout   time.Duration `json:"timeout"`
	Providers []string      `json:"providers"`
}

// SourceAnalysisConfig configures the optional enrichment service used after
// single-prompt runs
type SourceAnalysisConfig struct {
	Enabled    bool          `json:"enabled"`
	Endpoint   string        `json:"endpoint"`
	APIKey     string        `json:"api_key"`
	Timeout    time.Duration `json:"timeout"`
	Depth      string        `json:"depth"`
	MaxResults int           `json:"max_results"`
}

// AuditConfig configures batch pacing for the orchestrator
type AuditConfig struct {
	PromptPacing   time.Duration `json:"prompt_pacing"`
	CampaignPacing time.Duration `json:"campaign_pacing"`
}

// SchedulerConfig configures the background schedule trigger loop
type SchedulerConfig struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
}

// LoadProductionConfig loads configuration from environment variables with
// sane defaults. A .env file in the working directory is honored when present.
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "kagemusha"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 4*1024*1024), // 4MB
			EnableMetrics:   getEnvBool("SERVER_ENABLE_METRICS", true),
		},
		Cache: CacheConfig{
			Enabled:  getEnvBool("CACHE_ENABLED", true),
			RedisURL: getEnvString("CACHE_REDIS_URL", "redis://localhost:6379/0"),
			Prefix:   getEnvString("CACHE_PREFIX", "kagemusha"),
		},
		Logging: LoggingConfig{
			FilePath:   getEnvString("LOG_FILE_PATH", "data/kagemusha.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Scoring: ScoringConfig{
			Endpoint:  getEnvString("SCORING_ENDPOINT", ""),
			APIKey:    getEnvString("SCORING_API_KEY", ""),
			Timeout:   getEnvDuration("SCORING_TIMEOUT", 90*time.Second),
			Providers: getEnvStringSlice("SCORING_PROVIDERS", []string{"openai", "anthropic", "gemini", "perplexity"}),
		},
		SourceAnalysis: SourceAnalysisConfig{
			Enabled:    getEnvBool("SOURCE_ANALYSIS_ENABLED", false),
			Endpoint:   getEnvString("SOURCE_ANALYSIS_ENDPOINT", ""),
			APIKey:     getEnvString("SOURCE_ANALYSIS_API_KEY", ""),
			Timeout:    getEnvDuration("SOURCE_ANALYSIS_TIMEOUT", 60*time.Second),
			Depth:      getEnvString("SOURCE_ANALYSIS_DEPTH", "standard"),
			MaxResults: getEnvInt("SOURCE_ANALYSIS_MAX_RESULTS", 10),
		},
		Audit: AuditConfig{
			PromptPacing:   getEnvDuration("AUDIT_PROMPT_PACING", 400*time.Millisecond),
			CampaignPacing: getEnvDuration("AUDIT_CAMPAIGN_PACING", 1*time.Second),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getEnvBool("SCHEDULER_ENABLED", true),
			Interval: getEnvDuration("SCHEDULER_INTERVAL", 1*time.Minute),
		},
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates that required configuration is present
// and internally consistent
func ValidateProductionConfig(cfg *ProductionConfig) error {
	if cfg.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if cfg.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		return fmt.Errorf("redis url is required when cache is enabled")
	}
	if cfg.Scoring.Timeout <= 0 {
		return fmt.Errorf("scoring timeout must be positive")
	}
	if len(cfg.Scoring.Providers) == 0 {
		return fmt.Errorf("at least one scoring provider is required")
	}
	if cfg.Audit.PromptPacing < 0 || cfg.Audit.CampaignPacing < 0 {
		return fmt.Errorf("audit pacing delays must not be negative")
	}
	if cfg.SourceAnalysis.Enabled && cfg.SourceAnalysis.Endpoint == "" {
		return fmt.Errorf("source analysis endpoint is required when enrichment is enabled")
	}
	if cfg.Scheduler.Enabled && cfg.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}
	return nil
}

// DSN returns the PostgreSQL connection string for the database configuration
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}
