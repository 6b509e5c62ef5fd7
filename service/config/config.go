package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	// MaxPageSize is the largest page the Helius transactions endpoint serves.
	MaxPageSize = 100

	// MinPageInterval is the floor for the delay between page requests.
	MinPageInterval = 100 * time.Millisecond

	placeholderAPIKey = "your_key_here"
)

// Config holds all application configuration loaded from the environment,
// an optional .env file, and an optional TOML secrets file.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Helius configuration
	HeliusAPIKey         string
	HeliusBaseURL        string
	HeliusCommitment     string
	HeliusPageSize       int
	HeliusRequestTimeout time.Duration
	HeliusPageInterval   time.Duration
	HeliusMaxRetries     int
	HeliusRetryBaseDelay time.Duration

	// Export limits
	FetchTimeout    time.Duration
	MaxTransactions int
	MaxExportRows   int
	PreviewRows     int
	ExportCacheTTL  time.Duration

	// Placeholder valuation used when a record carries no USD prices.
	// These are rough estimates, not market data.
	EstimateNativePriceUSD  float64
	EstimateTokenMultiplier float64

	// NATS configuration; empty disables export events
	NATSURL string

	S3 S3Config
}

// S3Config configures the optional object store sink for exports.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	UsePathStyle    bool
}

// Enabled reports whether an S3 bucket is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// secretsFile mirrors the layout of the TOML secrets file.
type secretsFile struct {
	API struct {
		HeliusKey string `toml:"helius_key"`
	} `toml:"api"`
}

// Load reads configuration and validates every field, reporting all problems at once.
func Load() (*Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []error

	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Helius configuration; the env var wins over the secrets file
	cfg.HeliusAPIKey = os.Getenv("HELIUS_API_KEY")
	if cfg.HeliusAPIKey == "" {
		key, err := loadSecretsKey(getEnvOrDefault("SECRETS_FILE", ".streamlit/secrets.toml"))
		if err != nil {
			errs = append(errs, err)
		}
		cfg.HeliusAPIKey = key
	}
	cfg.HeliusBaseURL = getEnvOrDefault("HELIUS_BASE_URL", "https://api.helius.xyz/v0")
	cfg.HeliusCommitment = getEnvOrDefault("HELIUS_COMMITMENT", "confirmed")

	var err error
	if cfg.HeliusPageSize, err = parseInt("HELIUS_PAGE_SIZE", MaxPageSize); err != nil {
		errs = append(errs, err)
	}
	if cfg.HeliusRequestTimeout, err = parseDuration("HELIUS_REQUEST_TIMEOUT", "30s"); err != nil {
		errs = append(errs, err)
	}
	if cfg.HeliusPageInterval, err = parseDuration("HELIUS_PAGE_INTERVAL", "100ms"); err != nil {
		errs = append(errs, err)
	}
	if cfg.HeliusMaxRetries, err = parseInt("HELIUS_MAX_RETRIES", 3); err != nil {
		errs = append(errs, err)
	}
	if cfg.HeliusRetryBaseDelay, err = parseDuration("HELIUS_RETRY_BASE_DELAY", "1s"); err != nil {
		errs = append(errs, err)
	}

	// Export limits
	if cfg.FetchTimeout, err = parseDuration("FETCH_TIMEOUT", "5m"); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxTransactions, err = parseInt("MAX_TRANSACTIONS", 5000); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxExportRows, err = parseInt("MAX_EXPORT_ROWS", 10000); err != nil {
		errs = append(errs, err)
	}
	if cfg.PreviewRows, err = parseInt("PREVIEW_ROWS", 20); err != nil {
		errs = append(errs, err)
	}
	if cfg.ExportCacheTTL, err = parseDuration("EXPORT_CACHE_TTL", "15m"); err != nil {
		errs = append(errs, err)
	}

	if cfg.EstimateNativePriceUSD, err = parseFloat("ESTIMATE_NATIVE_PRICE_USD", 100); err != nil {
		errs = append(errs, err)
	}
	if cfg.EstimateTokenMultiplier, err = parseFloat("ESTIMATE_TOKEN_MULTIPLIER", 0.1); err != nil {
		errs = append(errs, err)
	}

	cfg.NATSURL = os.Getenv("NATS_URL")

	cfg.S3 = S3Config{
		Bucket:          os.Getenv("S3_BUCKET"),
		Region:          getEnvOrDefault("S3_REGION", "us-east-1"),
		Endpoint:        os.Getenv("S3_ENDPOINT"),
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		Prefix:          getEnvOrDefault("S3_PREFIX", "exports/"),
	}
	if cfg.S3.UsePathStyle, err = parseBool("S3_USE_PATH_STYLE", false); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.HeliusAPIKey == "" {
		errs = append(errs, fmt.Errorf("HELIUS_API_KEY is required (or set [api] helius_key in the secrets file)"))
	} else if c.HeliusAPIKey == placeholderAPIKey {
		errs = append(errs, fmt.Errorf("HELIUS_API_KEY is still the placeholder value"))
	}

	if c.HeliusBaseURL == "" {
		errs = append(errs, fmt.Errorf("HELIUS_BASE_URL is required"))
	}

	if c.HeliusPageSize < 1 || c.HeliusPageSize > MaxPageSize {
		errs = append(errs, fmt.Errorf("HELIUS_PAGE_SIZE must be between 1 and %d", MaxPageSize))
	}

	if c.HeliusRequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HELIUS_REQUEST_TIMEOUT must be positive"))
	}

	if c.HeliusPageInterval < MinPageInterval {
		errs = append(errs, fmt.Errorf("HELIUS_PAGE_INTERVAL must be at least %v", MinPageInterval))
	}

	if c.HeliusMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("HELIUS_MAX_RETRIES cannot be negative"))
	}

	if c.MaxTransactions < 1 {
		errs = append(errs, fmt.Errorf("MAX_TRANSACTIONS must be at least 1"))
	}

	if c.MaxExportRows < 1 {
		errs = append(errs, fmt.Errorf("MAX_EXPORT_ROWS must be at least 1"))
	}

	if c.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("FETCH_TIMEOUT cannot be negative (0 disables it)"))
	}

	if c.ExportCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("EXPORT_CACHE_TTL must be positive"))
	}

	if c.EstimateNativePriceUSD < 0 || c.EstimateTokenMultiplier < 0 {
		errs = append(errs, fmt.Errorf("estimate prices cannot be negative"))
	}

	if c.S3.Enabled() && (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		errs = append(errs, fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// loadSecretsKey reads the Helius key from a TOML secrets file.
// A missing file yields an empty key and no error.
func loadSecretsKey(path string) (string, error) {
	var secrets secretsFile
	if _, err := toml.DecodeFile(path, &secrets); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("SECRETS_FILE: failed to parse %s: %w", path, err)
	}
	return secrets.API.HeliusKey, nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

func parseFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q: %w", key, value, err)
	}
	return result, nil
}

func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}
