// Package config loads the clausegraph configuration file.
package config

import (
	"time"

	"github.com/zero-day-ai/clausegraph/internal/graph"
)

// Config is the root configuration.
type Config struct {
	Neo4j    Neo4jConfig    `mapstructure:"neo4j" yaml:"neo4j" validate:"required"`
	Retry    RetryConfig    `mapstructure:"retry" yaml:"retry"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

// Neo4jConfig contains graph database connection settings.
type Neo4jConfig struct {
	URI               string        `mapstructure:"uri" yaml:"uri" validate:"required,neo4juri"`
	Username          string        `mapstructure:"username" yaml:"username"`
	Password          string        `mapstructure:"password" yaml:"password"`
	Database          string        `mapstructure:"database" yaml:"database"`
	MaxConnections    int           `mapstructure:"max_connections" yaml:"max_connections" validate:"min=1,max=1000"`
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout" yaml:"connection_timeout" validate:"min=1s"`
	Pooled            bool          `mapstructure:"pooled" yaml:"pooled"`
}

// RetryConfig bounds retries of transient graph failures.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries" validate:"min=0,max=10"`
	BaseDelay  time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

// AnalysisConfig contains extraction settings. ModelName is recorded in run
// metadata; the heuristic extractor does not use it. A CacheSize of zero
// disables the extraction cache.
type AnalysisConfig struct {
	ModelName string        `mapstructure:"model_name" yaml:"model_name"`
	CacheSize int           `mapstructure:"cache_size" yaml:"cache_size" validate:"min=0,max=100000"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name" validate:"required"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate" validate:"min=0,max=1"`
}

// HistoryConfig controls the local run archive.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address" yaml:"address" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=1s"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=1s"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes" validate:"min=1"`
}

// GraphClientConfig converts the Neo4j section for the graph client.
func (c *Config) GraphClientConfig() graph.GraphClientConfig {
	return graph.GraphClientConfig{
		URI:                   c.Neo4j.URI,
		Username:              c.Neo4j.Username,
		Password:              c.Neo4j.Password,
		Database:              c.Neo4j.Database,
		MaxConnectionPoolSize: c.Neo4j.MaxConnections,
		ConnectionTimeout:     c.Neo4j.ConnectionTimeout,
	}
}

// RetryPolicy converts the retry section.
func (c *Config) RetryPolicy() graph.RetryPolicy {
	p := graph.DefaultRetryPolicy()
	p.MaxRetries = c.Retry.MaxRetries
	if c.Retry.BaseDelay > 0 {
		p.BaseDelay = c.Retry.BaseDelay
	}
	if c.Retry.MaxDelay > 0 {
		p.MaxDelay = c.Retry.MaxDelay
	}
	return p
}

// Redacted returns a copy with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Neo4j.Password != "" {
		out.Neo4j.Password = "********"
	}
	return &out
}
