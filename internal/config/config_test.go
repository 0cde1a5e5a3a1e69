package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/clausegraph/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.Username)
	assert.Equal(t, 50, cfg.Neo4j.MaxConnections)
	assert.Equal(t, 30*time.Second, cfg.Neo4j.ConnectionTimeout)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 128, cfg.Analysis.CacheSize)
	assert.Equal(t, time.Hour, cfg.Analysis.CacheTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Contains(t, cfg.History.Path, ".clausegraph")
	assert.Equal(t, ":8080", cfg.Server.Address)

	assert.NoError(t, NewValidator().Validate(cfg))
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
neo4j:
  uri: neo4j+s://graph.example.com:7687
  username: analyst
  password: secret
  max_connections: 10
  connection_timeout: 5s
retry:
  max_retries: 1
analysis:
  cache_size: 0
logging:
  level: debug
  format: json
`)

	cfg, err := NewConfigLoader(nil).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "neo4j+s://graph.example.com:7687", cfg.Neo4j.URI)
	assert.Equal(t, "analyst", cfg.Neo4j.Username)
	assert.Equal(t, 10, cfg.Neo4j.MaxConnections)
	assert.Equal(t, 5*time.Second, cfg.Neo4j.ConnectionTimeout)
	assert.Equal(t, 1, cfg.Retry.MaxRetries)
	assert.Zero(t, cfg.Analysis.CacheSize)
	assert.Equal(t, time.Hour, cfg.Analysis.CacheTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched sections keep their defaults
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)

	gc := cfg.GraphClientConfig()
	assert.Equal(t, cfg.Neo4j.URI, gc.URI)
	assert.Equal(t, 10, gc.MaxConnectionPoolSize)

	policy := cfg.RetryPolicy()
	assert.Equal(t, 1, policy.MaxRetries)
	assert.Equal(t, 5*time.Second, policy.MaxDelay)
}

func TestLoad_Interpolation(t *testing.T) {
	t.Setenv("CG_TEST_PASSWORD", "from-env")
	path := writeConfig(t, `
neo4j:
  uri: bolt://localhost:7687
  password: ${CG_TEST_PASSWORD}
  username: ${CG_TEST_UNSET_USER}
`)

	cfg, err := NewConfigLoader(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Neo4j.Password)
	assert.Equal(t, "${CG_TEST_UNSET_USER}", cfg.Neo4j.Username)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CLAUSEGRAPH_NEO4J_URI", "bolt+s://override:7687")
	t.Setenv("CLAUSEGRAPH_LOGGING_LEVEL", "warn")

	cfg, err := NewConfigLoader(nil).LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "bolt+s://override:7687", cfg.Neo4j.URI)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    types.ErrorCode
		message string
	}{
		{
			name:    "bad scheme",
			content: "neo4j:\n  uri: http://localhost:7474\n",
			code:    types.CONFIG_VALIDATION_FAILED,
			message: "neo4j.uri must use one of the schemes",
		},
		{
			name:    "bad level",
			content: "logging:\n  level: verbose\n",
			code:    types.CONFIG_VALIDATION_FAILED,
			message: "logging.level must be one of",
		},
		{
			name:    "pool too small",
			content: "neo4j:\n  max_connections: 0\n",
			code:    types.CONFIG_VALIDATION_FAILED,
			message: "neo4j.max_connections must be at least 1",
		},
		{
			name:    "tracing without endpoint",
			content: "tracing:\n  enabled: true\n  endpoint: \"\"\n",
			code:    types.CONFIG_VALIDATION_FAILED,
			message: "tracing.endpoint is required",
		},
		{
			name:    "retry delays inverted",
			content: "retry:\n  base_delay: 10s\n  max_delay: 1s\n",
			code:    types.CONFIG_VALIDATION_FAILED,
			message: "retry.base_delay",
		},
		{
			name:    "malformed yaml",
			content: "neo4j: [unclosed\n",
			code:    types.CONFIG_LOAD_FAILED,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfigLoader(nil).Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, types.HasCode(err, tt.code), "got %v", err)
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewConfigLoader(nil).Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.CONFIG_LOAD_FAILED))
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Neo4j.URI = "neo4j://cluster:7687"

	require.NoError(t, Save(path, cfg, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "connection_timeout: 30s")
	assert.Contains(t, string(data), "neo4j://cluster:7687")

	err = Save(path, cfg, false)
	assert.True(t, types.HasCode(err, types.CONFIG_LOAD_FAILED))
	require.NoError(t, Save(path, cfg, true))

	loaded, err := NewConfigLoader(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Neo4j, loaded.Neo4j)
	assert.Equal(t, cfg.Server, loaded.Server)
}

func TestRedacted(t *testing.T) {
	cfg := DefaultConfig()
	redacted := cfg.Redacted()

	assert.Equal(t, "********", redacted.Neo4j.Password)
	assert.Equal(t, "password", cfg.Neo4j.Password)

	cfg.Neo4j.Password = ""
	assert.Empty(t, cfg.Redacted().Neo4j.Password)
}

func TestCamelToSnake(t *testing.T) {
	assert.Equal(t, "max_connections", camelToSnake("MaxConnections"))
	assert.Equal(t, "uri", camelToSnake("URI"))
	assert.Equal(t, "neo4j", camelToSnake("Neo4j"))
	assert.Equal(t, "max_body_bytes", camelToSnake("MaxBodyBytes"))
	assert.Equal(t, "neo4j.uri", formatFieldPath("Config.Neo4j.URI"))
}
