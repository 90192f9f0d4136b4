/**
 * Configuration for the Plan Review Worker
 *
 * Loads configuration from environment variables matching .env.example
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds worker configuration
type Config struct {
	// Redis configuration
	RedisURL string

	// PostgreSQL configuration
	DatabaseURL string

	// OpenAI configuration
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Reviewer registry
	ReviewersPath string

	// Rasterization and OCR configuration
	OCRDPI           int
	OCRMinConfidence int
	OCRLanguages     string
	VisionScale      float64

	// Worker configuration
	WorkerConcurrency int
	MaxPDFSize        int64
	SubmitTimeout     time.Duration

	// Raw response audit cache
	RawResponseTTL time.Duration

	// Node environment
	NodeEnv string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:          getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL:       getEnvOrThrow("DATABASE_URL"),
		OpenAIAPIKey:      getEnvOrThrow("OPENAI_API_KEY"),
		OpenAIModel:       getEnvOrDefault("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:     getEnvOrDefault("OPENAI_BASE_URL", ""),
		ReviewersPath:     getEnvOrDefault("REVIEWERS_PATH", "reviewers.json"),
		OCRDPI:            getEnvAsIntOrDefault("OCR_DPI", 150),
		OCRMinConfidence:  getEnvAsIntOrDefault("OCR_MIN_CONFIDENCE", 30),
		OCRLanguages:      getEnvOrDefault("OCR_LANGUAGES", "eng"),
		VisionScale:       getEnvAsFloatOrDefault("VISION_SCALE", 4.0),
		WorkerConcurrency: getEnvAsIntOrDefault("WORKER_CONCURRENCY", 5),
		MaxPDFSize:        getEnvAsInt64OrDefault("MAX_PDF_SIZE", 104857600), // 100MB
		SubmitTimeout:     time.Duration(getEnvAsIntOrDefault("SUBMIT_TIMEOUT_MS", 120000)) * time.Millisecond,
		RawResponseTTL:    time.Duration(getEnvAsIntOrDefault("RAW_RESPONSE_TTL_HOURS", 72)) * time.Hour,
		NodeEnv:           getEnvOrDefault("NODE_ENV", "development"),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	if c.ReviewersPath == "" {
		return fmt.Errorf("REVIEWERS_PATH is required")
	}

	if c.OCRDPI < 72 || c.OCRDPI > 600 {
		return fmt.Errorf("OCR_DPI must be between 72 and 600, got %d", c.OCRDPI)
	}

	if c.OCRMinConfidence < 0 || c.OCRMinConfidence > 100 {
		return fmt.Errorf("OCR_MIN_CONFIDENCE must be between 0 and 100, got %d", c.OCRMinConfidence)
	}

	if c.VisionScale < 1 || c.VisionScale > 8 {
		return fmt.Errorf("VISION_SCALE must be between 1 and 8, got %g", c.VisionScale)
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.MaxPDFSize < 1024 || c.MaxPDFSize > 1073741824 { // 1KB to 1GB
		return fmt.Errorf("MAX_PDF_SIZE must be between 1KB and 1GB, got %d", c.MaxPDFSize)
	}

	if c.SubmitTimeout < time.Second {
		return fmt.Errorf("SUBMIT_TIMEOUT_MS must be at least 1000, got %d", c.SubmitTimeout.Milliseconds())
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrThrow gets environment variable or returns error
func getEnvOrThrow(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
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

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
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
