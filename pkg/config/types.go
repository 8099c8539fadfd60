package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Processing    ProcessingConfig    `mapstructure:"processing"`
	Transcription RemoteServiceConfig `mapstructure:"transcription"`
	Diarization   RemoteServiceConfig `mapstructure:"diarization"`
	Resilience    ResilienceConfig    `mapstructure:"resilience"`
	Alignment     AlignmentConfig     `mapstructure:"alignment"`
	Progress      ProgressConfig      `mapstructure:"progress"`
	RateLimiting  RateLimitConfig     `mapstructure:"rate_limiting"`
	Security      SecurityConfig      `mapstructure:"security"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// ProcessingConfig contains worker pool settings
type ProcessingConfig struct {
	Workers          int           `mapstructure:"workers"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	JobRetentionDays int           `mapstructure:"job_retention_days"`
}

// RemoteServiceConfig contains settings for one remote HTTP service
type RemoteServiceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Language  string        `mapstructure:"language"`
	RateLimit float64       `mapstructure:"rate_limit"`
	RateBurst int           `mapstructure:"rate_burst"`
}

// ResilienceConfig contains retry and circuit breaker settings
type ResilienceConfig struct {
	Retry   RetrySettings   `mapstructure:"retry"`
	Breaker BreakerSettings `mapstructure:"breaker"`
}

// RetrySettings contains retry loop settings
type RetrySettings struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// BreakerSettings contains circuit breaker settings
type BreakerSettings struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

// AlignmentConfig contains speaker alignment settings
type AlignmentConfig struct {
	OverlapThreshold   float64 `mapstructure:"overlap_threshold"`
	UseNearestFallback bool    `mapstructure:"use_nearest_fallback"`
	MaxGapSeconds      float64 `mapstructure:"max_gap_seconds"`
}

// ProgressConfig contains progress tracker settings
type ProgressConfig struct {
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RateLimitConfig contains inbound rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	EnableCORS      bool     `mapstructure:"enable_cors"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
	CORSMethods     []string `mapstructure:"cors_methods"`
	CORSHeaders     []string `mapstructure:"cors_headers"`
	MaxRequestBytes int64    `mapstructure:"max_request_bytes"`
}
