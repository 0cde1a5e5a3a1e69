package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/clausegraph/internal/types"
)

// EnvPrefix prefixes environment overrides, e.g. CLAUSEGRAPH_NEO4J_URI.
const EnvPrefix = "CLAUSEGRAPH"

// ConfigLoader handles loading configuration from files.
type ConfigLoader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperConfigLoader implements ConfigLoader using Viper.
type viperConfigLoader struct {
	validator ConfigValidator
}

// NewConfigLoader creates a new ConfigLoader instance.
func NewConfigLoader(validator ConfigValidator) ConfigLoader {
	if validator == nil {
		validator = NewValidator()
	}
	return &viperConfigLoader{validator: validator}
}

// Load reads path, applies ${VAR} interpolation and CLAUSEGRAPH_* overrides
// on top of the defaults, and validates the result.
func (l *viperConfigLoader) Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to read config file", err).
			WithDetail("path", path)
	}
	return l.finish(v)
}

// LoadWithDefaults behaves like Load but falls back to the defaults, still
// subject to environment overrides, when path does not exist.
func (l *viperConfigLoader) LoadWithDefaults(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return l.Load(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to stat config file", err).
				WithDetail("path", path)
		}
	}
	return l.finish(newViper())
}

func (l *viperConfigLoader) finish(v *viper.Viper) (*Config, error) {
	for _, key := range v.AllKeys() {
		if s, ok := v.Get(key).(string); ok && strings.Contains(s, "${") {
			v.Set(key, interpolateString(s))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to unmarshal config", err)
	}
	if err := l.validator.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newViper returns a viper instance seeded with every default so that
// AutomaticEnv can override keys absent from the file.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("neo4j.uri", d.Neo4j.URI)
	v.SetDefault("neo4j.username", d.Neo4j.Username)
	v.SetDefault("neo4j.password", d.Neo4j.Password)
	v.SetDefault("neo4j.database", d.Neo4j.Database)
	v.SetDefault("neo4j.max_connections", d.Neo4j.MaxConnections)
	v.SetDefault("neo4j.connection_timeout", d.Neo4j.ConnectionTimeout)
	v.SetDefault("neo4j.pooled", d.Neo4j.Pooled)
	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.base_delay", d.Retry.BaseDelay)
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay)
	v.SetDefault("analysis.model_name", d.Analysis.ModelName)
	v.SetDefault("analysis.cache_size", d.Analysis.CacheSize)
	v.SetDefault("analysis.cache_ttl", d.Analysis.CacheTTL)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	return v
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateString replaces ${VAR_NAME} with the environment value. Unset
// variables are left as written.
func interpolateString(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if value := os.Getenv(name); value != "" {
			return value
		}
		return match
	})
}

// Save writes cfg as YAML to path, creating parent directories. An existing
// file is only replaced when overwrite is set.
func Save(path string, cfg *Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return types.NewError(types.CONFIG_LOAD_FAILED, "config file already exists").WithDetail("path", path)
		}
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return types.WrapError(types.CONFIG_LOAD_FAILED, "failed to create config directory", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return types.WrapError(types.CONFIG_LOAD_FAILED, "failed to write config file", err).WithDetail("path", path)
	}
	return nil
}

// Marshal renders cfg as YAML with durations written as "30s" rather than
// nanoseconds.
func Marshal(cfg *Config) ([]byte, error) {
	node, err := yamlNode(reflect.ValueOf(*cfg))
	if err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to marshal config", err)
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to marshal config", err)
	}
	return data, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func yamlNode(v reflect.Value) (*yaml.Node, error) {
	node := &yaml.Node{}
	switch {
	case v.Type() == durationType:
		return node, node.Encode(time.Duration(v.Int()).String())
	case v.Kind() == reflect.Struct:
		node.Kind = yaml.MappingNode
		for i := 0; i < v.NumField(); i++ {
			field := v.Type().Field(i)
			name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
			if name == "" || name == "-" {
				continue
			}
			value, err := yamlNode(v.Field(i))
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: name}, value)
		}
		return node, nil
	default:
		return node, node.Encode(v.Interface())
	}
}
