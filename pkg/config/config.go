package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data providers
	Polygon PolygonConfig
	Finnhub FinnhubConfig

	// Pipeline (post-close / pre-market / intraday)
	Pipeline PipelineConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL    string
	Schema string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// PolygonConfig holds Polygon.io options/aggregates API configuration
type PolygonConfig struct {
	APIKey            string
	BaseURL           string
	RequestsPerMinute int // 무료 플랜: 분당 5회
	SnapshotLimit     int // 만기당 최대 계약 수
}

// FinnhubConfig holds Finnhub earnings calendar API configuration
type FinnhubConfig struct {
	APIKey            string
	BaseURL           string
	RequestsPerMinute int
}

// PipelineConfig holds scoring pipeline parameters
type PipelineConfig struct {
	Timezone     string
	Workers      int
	EWMAAlpha    float64
	WinsorizeStd float64
	SectorSymbol string
	LookbackDays int
	DaysAhead    int
	MaxEventDTE  int
	OutDir       string
	StrategyPath string // 비어 있으면 기본 가중치 사용
}

// Location returns the pipeline timezone (America/Los_Angeles by default)
func (p PipelineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Schema:          getEnv("DB_SCHEMA", "eds"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Polygon: PolygonConfig{
			APIKey:            getEnv("POLYGON_API_KEY", ""),
			BaseURL:           getEnv("POLYGON_BASE_URL", "https://api.polygon.io"),
			RequestsPerMinute: getEnvAsInt("POLYGON_RPM", 300),
			SnapshotLimit:     getEnvAsInt("POLYGON_SNAPSHOT_LIMIT", 500),
		},

		Finnhub: FinnhubConfig{
			APIKey:            getEnv("FINNHUB_API_KEY", ""),
			BaseURL:           getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
			RequestsPerMinute: getEnvAsInt("FINNHUB_RPM", 60),
		},

		Pipeline: PipelineConfig{
			Timezone:     getEnv("TZ_MARKET", "America/Los_Angeles"),
			Workers:      getEnvAsInt("PIPELINE_WORKERS", 4),
			EWMAAlpha:    getEnvAsFloat("EWMA_ALPHA", 0.3),
			WinsorizeStd: getEnvAsFloat("WINSORIZE_STD", 2.0),
			SectorSymbol: getEnv("SECTOR_SYMBOL", "SPY"),
			LookbackDays: getEnvAsInt("MOMENTUM_LOOKBACK_DAYS", 3),
			DaysAhead:    getEnvAsInt("EARNINGS_DAYS_AHEAD", 1),
			MaxEventDTE:  getEnvAsInt("MAX_EVENT_DTE", 60),
			OutDir:       getEnv("OUT_DIR", "out"),
			StrategyPath: getEnv("STRATEGY_PATH", ""),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		return fmt.Errorf("TZ_MARKET %q is not a valid timezone: %w", c.Pipeline.Timezone, err)
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be >= 1")
	}

	// α = 0 이면 EWMA가 이전 값에 고정됨
	if c.Pipeline.EWMAAlpha <= 0 || c.Pipeline.EWMAAlpha > 1 {
		return fmt.Errorf("EWMA_ALPHA must be in (0, 1]")
	}

	if c.Pipeline.WinsorizeStd <= 0 {
		return fmt.Errorf("WINSORIZE_STD must be > 0")
	}

	if c.Pipeline.LookbackDays < 1 {
		return fmt.Errorf("MOMENTUM_LOOKBACK_DAYS must be >= 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
