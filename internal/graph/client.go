package graph

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/zero-day-ai/clausegraph/internal/types"
)

// GraphClient executes Cypher against a graph database.
// Implementations must be safe for concurrent use.
type GraphClient interface {
	// Connect establishes the connection. It makes a single attempt; retry
	// policy belongs to callers.
	Connect(ctx context.Context) error

	// Close releases the client. Calling it more than once is a no-op.
	Close(ctx context.Context) error

	// Health reports connectivity without returning an error.
	Health(ctx context.Context) types.HealthStatus

	// Query runs a read statement in its own session.
	Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)

	// Execute runs a write statement in its own session.
	Execute(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)
}

// QueryResult is a fully materialized result set.
type QueryResult struct {
	Records []map[string]any
	Columns []string
	Summary QuerySummary
}

// QuerySummary carries execution counters.
type QuerySummary struct {
	ExecutionTime        time.Duration
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	RelationshipsDeleted int
	PropertiesSet        int
	ConstraintsAdded     int
}

// AllowedSchemes are the URI schemes accepted for the database address.
var AllowedSchemes = []string{"bolt", "bolt+s", "bolt+ssc", "neo4j", "neo4j+s", "neo4j+ssc"}

// ValidateURI checks that uri parses and uses one of AllowedSchemes.
func ValidateURI(uri string) error {
	if strings.TrimSpace(uri) == "" {
		return fmt.Errorf("URI cannot be empty")
	}
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid URI %q: %w", uri, err)
	}
	for _, s := range AllowedSchemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("unsupported URI scheme %q: must be one of %s", u.Scheme, strings.Join(AllowedSchemes, ", "))
}

// GraphClientConfig configures a Neo4jClient.
type GraphClientConfig struct {
	// URI of the database, e.g. "bolt://localhost:7687" or
	// "neo4j+s://host:7687" for routed TLS connections.
	URI string

	Username string
	Password string

	// Database name. Empty selects the server default.
	Database string

	// MaxConnectionPoolSize of the underlying driver. Zero uses the driver
	// default.
	MaxConnectionPoolSize int

	// ConnectionTimeout bounds connection acquisition.
	ConnectionTimeout time.Duration
}

// DefaultConfig returns a config for a local development database.
func DefaultConfig() GraphClientConfig {
	return GraphClientConfig{
		URI:                   "bolt://localhost:7687",
		Username:              "neo4j",
		Password:              "password",
		MaxConnectionPoolSize: 50,
		ConnectionTimeout:     30 * time.Second,
	}
}

// Validate checks that the config is usable.
func (c GraphClientConfig) Validate() error {
	if err := ValidateURI(c.URI); err != nil {
		return types.WrapError(ErrCodeGraphInvalidConfig, "invalid URI", err)
	}
	if c.Username == "" {
		return types.NewError(ErrCodeGraphInvalidConfig, "Username cannot be empty")
	}
	if c.ConnectionTimeout <= 0 {
		return types.NewError(ErrCodeGraphInvalidConfig, "ConnectionTimeout must be positive")
	}
	if c.MaxConnectionPoolSize < 0 {
		return types.NewError(ErrCodeGraphInvalidConfig, "MaxConnectionPoolSize cannot be negative")
	}
	return nil
}
