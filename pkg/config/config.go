package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process-level configuration
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, staging, production

	// Files
	DataDir            string
	StrategyConfigPath string
	Timezone           string

	// Stores
	RecordStore       string // sqlite, postgres, sheets, xlsx, none
	FundamentalsCache string // file, redis
	SQLitePath        string
	XLSXPath          string

	Database DatabaseConfig
	Redis    RedisConfig
	Sheets   SheetsConfig
	Telegram TelegramConfig
	HTTP     HTTPConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Status API / monitoring
	APIEnabled     bool
	APIPort        string
	MetricsEnabled bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// SheetsConfig holds the Google Sheets record store configuration
type SheetsConfig struct {
	SheetID         string
	SheetName       string
	CredentialsJSON string
}

// TelegramConfig holds the alert transport configuration
type TelegramConfig struct {
	Token  string
	ChatID string
}

// Enabled reports whether both the bot token and chat id are set
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != ""
}

// HTTPConfig holds outbound HTTP defaults
type HTTPConfig struct {
	Timeout    time.Duration
	MaxRetries int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		DataDir:            getEnv("DATA_DIR", "data"),
		StrategyConfigPath: getEnv("STRATEGY_CONFIG", ""),
		Timezone:           getEnv("MARKET_TZ", "Asia/Kolkata"),

		RecordStore:       getEnv("RECORD_STORE", "sqlite"),
		FundamentalsCache: getEnv("FUNDAMENTALS_CACHE", "file"),
		SQLitePath:        getEnv("SQLITE_PATH", ""),
		XLSXPath:          getEnv("XLSX_PATH", ""),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
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

		Sheets: SheetsConfig{
			SheetID:         getEnv("GOOGLE_SHEET_ID", ""),
			SheetName:       getEnv("GOOGLE_SHEET_NAME", "history"),
			CredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		},

		Telegram: TelegramConfig{
			Token:  getEnv("TELEGRAM_TOKEN", ""),
			ChatID: getEnv("TELEGRAM_CHAT_ID", getEnv("CHAT_ID", "")),
		},

		HTTP: HTTPConfig{
			Timeout:    getEnvAsDuration("HTTP_TIMEOUT", "10s"),
			MaxRetries: getEnvAsInt("HTTP_MAX_RETRIES", 3),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		APIEnabled:     getEnvAsBool("API_ENABLED", false),
		APIPort:        getEnv("API_PORT", "8089"),
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "diamond_history.db")
	}
	if cfg.XLSXPath == "" {
		cfg.XLSXPath = filepath.Join(cfg.DataDir, "diamond_history.xlsx")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.RecordStore {
	case "sqlite", "xlsx", "none":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when RECORD_STORE=postgres")
		}
	case "sheets":
		if c.Sheets.SheetID == "" || c.Sheets.CredentialsJSON == "" {
			return fmt.Errorf("GOOGLE_SHEET_ID and GOOGLE_SERVICE_ACCOUNT_JSON are required when RECORD_STORE=sheets")
		}
	default:
		return fmt.Errorf("RECORD_STORE must be one of: sqlite, postgres, sheets, xlsx, none")
	}

	switch c.FundamentalsCache {
	case "file":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("REDIS_ENABLED must be true when FUNDAMENTALS_CACHE=redis")
		}
	default:
		return fmt.Errorf("FUNDAMENTALS_CACHE must be one of: file, redis")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("MARKET_TZ %q: %w", c.Timezone, err)
	}

	return nil
}

// Location returns the market timezone; validate guarantees it loads
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Path joins a file name onto the data directory
func (c *Config) Path(name string) string {
	return filepath.Join(c.DataDir, name)
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

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
