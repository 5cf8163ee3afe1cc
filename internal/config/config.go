package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// Search API configuration
	SearchBaseURL string        `json:"search_base_url" validate:"required,url"`
	SearchPath    string        `json:"search_path" validate:"required,startswith=/"`
	SearchAPIKey  string        `json:"-" validate:"required"`
	ImageBaseURL  string        `json:"image_base_url" validate:"omitempty,url"`
	HTTPTimeout   time.Duration `json:"http_timeout" validate:"gt=0"`

	// Persistent store configuration
	StoreDriver string `json:"store_driver" validate:"oneof=redis memory"`
	RedisURL    string `json:"redis_url" validate:"required_if=StoreDriver redis"`
	RedisPrefix string `json:"redis_prefix"`

	// Preferences
	PrefsPath string `json:"prefs_path" validate:"required"`
	PrefsName string `json:"prefs_name" validate:"required"`

	// Connectivity monitor
	ConnectivityInterval  time.Duration `json:"connectivity_interval" validate:"gt=0"`
	ConnectivityProbeAddr string        `json:"connectivity_probe_addr" validate:"omitempty,hostname_port"`
	ConnectivityTimeout   time.Duration `json:"connectivity_timeout" validate:"gt=0"`

	// Headless server configuration
	Port            string        `json:"port" validate:"required,numeric"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	AdminAPIKey     string        `json:"-"`

	// Archive mirror (S3 / R2 compatible)
	ArchiveBucket    string `json:"archive_bucket"`
	ArchivePrefix    string `json:"archive_prefix"`
	ArchiveEndpoint  string `json:"archive_endpoint" validate:"omitempty,url"`
	ArchiveRegion    string `json:"archive_region"`
	ArchiveAccessKey string `json:"-"`
	ArchiveSecretKey string `json:"-" validate:"required_with=ArchiveAccessKey"`
	ArchivePathStyle bool   `json:"archive_path_style"`

	// Logging
	LogLevel string `json:"log_level" validate:"omitempty,oneof=debug info warn error fatal panic disabled"`
	LogFile  string `json:"log_file"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := FromEnv()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// FromEnv builds a Config from the current environment without validating it.
func FromEnv() *Config {
	return &Config{
		// Search API configuration
		SearchBaseURL: getEnv("SEARCH_BASE_URL", "https://api.nytimes.com"),
		SearchPath:    getEnv("SEARCH_PATH", "/svc/search/v2/articlesearch.json"),
		SearchAPIKey:  getEnv("SEARCH_API_KEY", ""),
		ImageBaseURL:  getEnv("IMAGE_BASE_URL", "https://static01.nyt.com/"),
		HTTPTimeout:   getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		// Persistent store configuration
		StoreDriver: getEnv("STORE_DRIVER", StoreDriverRedis),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix: getEnv("REDIS_PREFIX", "newsfeed:"),

		// Preferences
		PrefsPath: getEnv("PREFS_PATH", "./data"),
		PrefsName: getEnv("PREFS_NAME", "news_prefs"),

		// Connectivity monitor
		ConnectivityInterval:  getEnvAsDuration("CONNECTIVITY_INTERVAL", 5*time.Second),
		ConnectivityProbeAddr: getEnv("CONNECTIVITY_PROBE_ADDR", ""),
		ConnectivityTimeout:   getEnvAsDuration("CONNECTIVITY_TIMEOUT", 2*time.Second),

		// Headless server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		AdminAPIKey:     getEnv("ADMIN_API_KEY", ""),

		// Archive mirror
		ArchiveBucket:    getEnv("ARCHIVE_BUCKET", ""),
		ArchivePrefix:    getEnv("ARCHIVE_PREFIX", ""),
		ArchiveEndpoint:  getEnv("ARCHIVE_ENDPOINT", ""),
		ArchiveRegion:    getEnv("ARCHIVE_REGION", "auto"),
		ArchiveAccessKey: getEnv("ARCHIVE_ACCESS_KEY", ""),
		ArchiveSecretKey: getEnv("ARCHIVE_SECRET_KEY", ""),
		ArchivePathStyle: getEnvAsBool("ARCHIVE_PATH_STYLE", false),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// SearchURL is the full search endpoint without the API key.
func (c *Config) SearchURL() string {
	return c.SearchBaseURL + c.SearchPath
}

// ArchiveEnabled reports whether the archive mirror is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
