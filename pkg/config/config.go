package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		// Set default values
		setDefaults()

		// Set up environment variable reading for overrides
		viper.SetEnvPrefix("SCRIBE")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		// Load config from fixed location (cleaned for safety)
		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		// Try to read the config file
		if err := viper.ReadInConfig(); err != nil {
			// If the config file doesn't exist, just use defaults and env vars
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		// Validate the configuration
		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Get returns a config value by key using Viper directly
func Get(key string) any {
	return viper.Get(key)
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetFloat64 returns a float64 config value
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if viper.GetString("database.path") == "" {
		fmt.Println("Warning: No database path configured")
	}

	for _, key := range []string{"transcription.base_url", "diarization.base_url"} {
		if viper.GetString(key) == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
	}

	threshold := viper.GetFloat64("alignment.overlap_threshold")
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("alignment.overlap_threshold must be between 0 and 1, got %v", threshold)
	}

	// Auto-correct invalid worker count
	if viper.GetInt("processing.workers") <= 0 {
		viper.Set("processing.workers", 2)
	}

	// Auto-correct invalid poll interval
	if viper.GetDuration("processing.poll_interval") <= 0 {
		viper.Set("processing.poll_interval", time.Second)
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Alignment.OverlapThreshold < 0 || c.Alignment.OverlapThreshold > 1 {
		return fmt.Errorf("invalid overlap threshold: %v", c.Alignment.OverlapThreshold)
	}

	if c.Processing.Workers <= 0 {
		c.Processing.Workers = 2
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Environment defaults
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)

	// Database defaults
	viper.SetDefault("database.path", "./data/scribe.db")
	viper.SetDefault("database.verbose", false)

	// Processing defaults
	viper.SetDefault("processing.workers", 2)
	viper.SetDefault("processing.poll_interval", time.Second)
	viper.SetDefault("processing.job_retention_days", 14)

	// Transcription service defaults
	viper.SetDefault("transcription.base_url", "http://localhost:9000")
	viper.SetDefault("transcription.timeout", 120*time.Second)
	viper.SetDefault("transcription.language", "en")
	viper.SetDefault("transcription.rate_limit", 5.0)
	viper.SetDefault("transcription.rate_burst", 5)

	// Diarization service defaults
	viper.SetDefault("diarization.base_url", "http://localhost:9001")
	viper.SetDefault("diarization.timeout", 120*time.Second)
	viper.SetDefault("diarization.rate_limit", 5.0)
	viper.SetDefault("diarization.rate_burst", 5)

	// Resilience defaults
	viper.SetDefault("resilience.retry.max_attempts", 5)
	viper.SetDefault("resilience.retry.base_delay", time.Second)
	viper.SetDefault("resilience.retry.max_delay", 60*time.Second)
	viper.SetDefault("resilience.breaker.failure_threshold", 5)
	viper.SetDefault("resilience.breaker.success_threshold", 2)
	viper.SetDefault("resilience.breaker.open_timeout", 60*time.Second)

	// Alignment defaults
	viper.SetDefault("alignment.overlap_threshold", 0.3)
	viper.SetDefault("alignment.use_nearest_fallback", true)
	viper.SetDefault("alignment.max_gap_seconds", 2.0)

	// Progress tracking defaults
	viper.SetDefault("progress.session_ttl", time.Hour)
	viper.SetDefault("progress.sweep_interval", 5*time.Minute)

	// Rate limiting defaults (inbound, per client IP)
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.requests_per_minute", 120)

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cors_origins", []string{"*"})
	viper.SetDefault("security.cors_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors_headers", []string{"Content-Type", "Authorization"})
	viper.SetDefault("security.max_request_bytes", 1048576)
}
