package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ErrMissingCredential is returned when no NYT API key is configured.
var ErrMissingCredential = errors.New("missing NYT_API_KEY")

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port" validate:"required,numeric"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// NYT API configuration
	NYTAPIKey          string        `json:"-"`
	NYTBaseURL         string        `json:"nyt_base_url" validate:"required,url"`
	NYTSitePrefix      string        `json:"nyt_site_prefix" validate:"required"`
	ValidSections      []string      `json:"valid_sections" validate:"required,min=1,dive,required"`
	Categories         []string      `json:"categories" validate:"required,min=1,dive,required"`
	StoriesPerCategory int           `json:"stories_per_category" validate:"min=1"`
	FetchConcurrency   int           `json:"fetch_concurrency" validate:"min=1"`
	UpstreamTimeout    time.Duration `json:"upstream_timeout" validate:"min=0"`

	// Upstream response cache, disabled when CacheBackend is empty
	CacheBackend string        `json:"cache_backend" validate:"omitempty,oneof=memory redis"`
	RedisURL     string        `json:"redis_url" validate:"omitempty,url"`
	RedisPrefix  string        `json:"redis_prefix"`
	CacheTTL     time.Duration `json:"cache_ttl" validate:"min=0"`

	// Logging
	LogLevel string `json:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	LogFile  string `json:"log_file"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		// NYT API configuration
		NYTAPIKey:          getEnv("NYT_API_KEY", ""),
		NYTBaseURL:         getEnv("NYT_BASE_URL", "https://api.nytimes.com/svc"),
		NYTSitePrefix:      getEnv("NYT_SITE_PREFIX", "https://www.nytimes.com"),
		ValidSections:      getEnvAsSlice("NYT_VALID_SECTIONS", []string{"arts", "business", "science", "technology", "world"}),
		Categories:         getEnvAsSlice("NYT_CATEGORIES", []string{"arts", "technology"}),
		StoriesPerCategory: getEnvAsInt("STORIES_PER_CATEGORY", 2),
		FetchConcurrency:   getEnvAsInt("FETCH_CONCURRENCY", 1),
		UpstreamTimeout:    getEnvAsDuration("UPSTREAM_TIMEOUT", 30*time.Second),

		// Cache configuration
		CacheBackend: strings.ToLower(getEnv("CACHE_BACKEND", "")),
		RedisURL:     getEnv("REDIS_URL", ""),
		RedisPrefix:  getEnv("REDIS_PREFIX", "nyt:"),
		CacheTTL:     getEnvAsDuration("CACHE_TTL", 5*time.Minute),

		// Logging
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:  getEnv("LOG_FILE", ""),
	}

	// A Redis URL alone selects the Redis backend.
	if cfg.CacheBackend == "" && cfg.RedisURL != "" {
		cfg.CacheBackend = "redis"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the credential first, then the struct constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.NYTAPIKey) == "" {
		return ErrMissingCredential
	}

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.CacheBackend == "redis" && c.RedisURL == "" {
		return errors.New("invalid configuration: CACHE_BACKEND=redis requires REDIS_URL")
	}

	return nil
}

// IsValidSection reports whether section is one of the configured NYT sections.
func (c *Config) IsValidSection(section string) bool {
	for _, s := range c.ValidSections {
		if s == section {
			return true
		}
	}
	return false
}

// UnknownCategories returns the aggregated categories that are not valid sections.
func (c *Config) UnknownCategories() []string {
	var unknown []string
	for _, cat := range c.Categories {
		if !c.IsValidSection(cat) {
			unknown = append(unknown, cat)
		}
	}
	return unknown
}

// CacheEnabled reports whether upstream responses should be cached.
func (c *Config) CacheEnabled() bool {
	return c.CacheBackend != "" && c.CacheTTL > 0
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
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

// getEnvAsSlice splits a comma separated list, dropping blank entries.
func getEnvAsSlice(name string, defaultVal []string) []string {
	valueStr, exists := os.LookupEnv(name)
	if !exists {
		return defaultVal
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
