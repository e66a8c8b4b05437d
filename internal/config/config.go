package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

var (
	ErrInvalidMonthlyLimit = errors.New("quota monthly limit must be positive")
	ErrInvalidBurstLimit   = errors.New("quota burst limit must be positive")
	ErrInvalidCallTimeout  = errors.New("call timeout must be positive")
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Quota    QuotaConfig
	Cache    CacheConfig
	Search   SearchConfig
	BestBuy  BestBuyConfig
	Rakuten  RakutenConfig
}

// DATABASE_URL пустой = квоты живут только в памяти процесса
type DatabaseConfig struct {
	URL string
}

// REDIS_ADDR пустой = кеш без durable-уровня
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level string
}

type QuotaConfig struct {
	MonthlyLimit  int
	MinIntervalMS int
	BurstLimit    int
	BurstWindow   time.Duration
}

type CacheConfig struct {
	SearchTTL  time.Duration
	DetailTTL  time.Duration
	MaxEntries int
}

type SearchConfig struct {
	CallTimeout time.Duration
	MaxResults  int
}

type BestBuyConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type RakutenConfig struct {
	AppID   string
	BaseURL string
	Timeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvIntOrDefault("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
		Quota: QuotaConfig{
			MonthlyLimit:  getEnvIntOrDefault("QUOTA_MONTHLY_LIMIT", 1000),
			MinIntervalMS: getEnvIntOrDefault("QUOTA_MIN_INTERVAL_MS", 500),
			BurstLimit:    getEnvIntOrDefault("QUOTA_BURST_LIMIT", 5),
			BurstWindow:   time.Duration(getEnvIntOrDefault("QUOTA_BURST_WINDOW_SEC", 300)) * time.Second,
		},
		Cache: CacheConfig{
			SearchTTL:  time.Duration(getEnvIntOrDefault("CACHE_SEARCH_TTL_SEC", 900)) * time.Second,
			DetailTTL:  time.Duration(getEnvIntOrDefault("CACHE_DETAIL_TTL_SEC", 3600)) * time.Second,
			MaxEntries: getEnvIntOrDefault("CACHE_MAX_ENTRIES", 500),
		},
		Search: SearchConfig{
			CallTimeout: time.Duration(getEnvIntOrDefault("SEARCH_CALL_TIMEOUT_SEC", 8)) * time.Second,
			MaxResults:  getEnvIntOrDefault("SEARCH_MAX_RESULTS", 20),
		},
		BestBuy: BestBuyConfig{
			APIKey:  os.Getenv("BESTBUY_API_KEY"),
			BaseURL: getEnvOrDefault("BESTBUY_BASE_URL", "https://api.bestbuy.com"),
			Timeout: time.Duration(getEnvIntOrDefault("BESTBUY_TIMEOUT_SEC", 10)) * time.Second,
		},
		Rakuten: RakutenConfig{
			AppID:   os.Getenv("RAKUTEN_APP_ID"),
			BaseURL: getEnvOrDefault("RAKUTEN_BASE_URL", "https://app.rakuten.co.jp"),
			Timeout: time.Duration(getEnvIntOrDefault("RAKUTEN_TIMEOUT_SEC", 10)) * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Quota.MonthlyLimit <= 0 {
		return ErrInvalidMonthlyLimit
	}
	if c.Quota.BurstLimit <= 0 {
		return ErrInvalidBurstLimit
	}
	if c.Search.CallTimeout <= 0 {
		return ErrInvalidCallTimeout
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
