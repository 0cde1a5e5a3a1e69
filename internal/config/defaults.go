package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	homeDir := DefaultHomeDir()

	return &Config{
		Neo4j: Neo4jConfig{
			URI:               "bolt://localhost:7687",
			Username:          "neo4j",
			Password:          "password",
			MaxConnections:    50,
			ConnectionTimeout: 30 * time.Second,
			Pooled:            true,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   5 * time.Second,
		},
		Analysis: AnalysisConfig{
			ModelName: "heuristic",
			CacheSize: 128,
			CacheTTL:  time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			Insecure:    true,
			ServiceName: "clausegraph",
			SampleRate:  1.0,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(homeDir, "history.db"),
		},
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
			MaxBodyBytes: 10 << 20,
		},
	}
}

// DefaultHomeDir returns ~/.clausegraph, or a directory under the temp dir
// when the user home cannot be determined.
func DefaultHomeDir() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".clausegraph")
	}
	return filepath.Join(userHome, ".clausegraph")
}

// DefaultConfigPath returns the config file path for a home directory.
func DefaultConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}
