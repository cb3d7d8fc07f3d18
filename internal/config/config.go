// Package config defines and loads the application configuration.
package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Media    MediaConfig    `mapstructure:"media" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// MediaConfig tunes the async media-resolution pipeline.
type MediaConfig struct {
	// GeneratorURL is the base URL of the external thumbnailer service.
	GeneratorURL string `mapstructure:"generator_url" validate:"required,url"`

	// BatchTTL bounds how long a page's batch of media requests is
	// tracked after the page renders.
	BatchTTL time.Duration `mapstructure:"batch_ttl" validate:"required"`

	// WorkerCount bounds concurrent generation jobs.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`

	// QueueSize is the buffer of the generation task queue.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// MaxAttempts bounds generation attempts per job.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gt=0"`

	// AttemptTimeout bounds one generation attempt.
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" validate:"required"`

	// URLCacheEntries bounds the resolved-URL cache.
	URLCacheEntries int64 `mapstructure:"url_cache_entries" validate:"required,gt=0"`
}
