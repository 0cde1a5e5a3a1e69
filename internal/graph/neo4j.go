package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/zero-day-ai/clausegraph/internal/types"
)

// Neo4jClient implements GraphClient on the Neo4j Go driver.
//
// In pooled mode the driver is borrowed from a DriverPool and Close leaves it
// open. Otherwise the client owns its driver and Close releases it.
type Neo4jClient struct {
	config  GraphClientConfig
	pool    *DriverPool
	factory DriverFactory
	logger  *slog.Logger

	mu     sync.RWMutex
	driver neo4j.DriverWithContext
	closed bool
}

// ClientOption configures a Neo4jClient.
type ClientOption func(*Neo4jClient)

// WithDriverPool makes the client borrow its driver from pool.
func WithDriverPool(pool *DriverPool) ClientOption {
	return func(c *Neo4jClient) {
		c.pool = pool
	}
}

// WithClientDriverFactory overrides driver construction in owned mode.
func WithClientDriverFactory(f DriverFactory) ClientOption {
	return func(c *Neo4jClient) {
		c.factory = f
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Neo4jClient) {
		c.logger = logger
	}
}

// NewNeo4jClient validates config and returns an unconnected client.
func NewNeo4jClient(config GraphClientConfig, opts ...ClientOption) (*Neo4jClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Neo4jClient{
		config:  config,
		factory: defaultDriverFactory,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Pooled reports whether the client borrows a shared driver.
func (c *Neo4jClient) Pooled() bool {
	return c.pool != nil
}

// URI returns the configured database address.
func (c *Neo4jClient) URI() string {
	return c.config.URI
}

func (c *Neo4jClient) configure(cfg *neo4j.Config) {
	if c.config.MaxConnectionPoolSize > 0 {
		cfg.MaxConnectionPoolSize = c.config.MaxConnectionPoolSize
	}
	cfg.ConnectionAcquisitionTimeout = c.config.ConnectionTimeout
	cfg.SocketConnectTimeout = c.config.ConnectionTimeout
}

// Connect obtains a verified driver. Authentication and availability failures
// are reported as CONNECTION_FAILED with the URI in the details.
func (c *Neo4jClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return types.NewError(types.CONNECTION_CLOSED, "client is closed")
	}
	if c.driver != nil {
		return nil
	}

	auth := neo4j.BasicAuth(c.config.Username, c.config.Password, "")

	if c.pool != nil {
		driver, err := c.pool.GetOrCreate(ctx, c.config.URI, auth, c.configure)
		if err != nil {
			return err
		}
		c.driver = driver
		return nil
	}

	driver, err := c.factory(c.config.URI, auth, c.configure)
	if err != nil {
		return types.NewConnectionError("failed to create driver", c.config.URI, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		msg := "connectivity verification failed"
		if IsAuthError(err) {
			msg = "authentication failed"
		}
		return types.NewConnectionError(msg, c.config.URI, err)
	}

	c.driver = driver
	c.logger.Debug("connected to neo4j", "uri", c.config.URI)
	return nil
}

// Close is idempotent. An owned driver is closed; a pooled one is left to the
// pool.
func (c *Neo4jClient) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	driver := c.driver
	c.driver = nil
	if driver == nil || c.pool != nil {
		return nil
	}
	if err := driver.Close(ctx); err != nil {
		return types.WrapError(types.CONNECTION_CLOSED, "failed to close driver", err)
	}
	return nil
}

// Health verifies connectivity with a five second bound.
func (c *Neo4jClient) Health(ctx context.Context) types.HealthStatus {
	driver, err := c.current()
	if err != nil {
		return types.Unhealthy(err.Error())
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return types.Probe(healthCtx, "connected to Neo4j", func(ctx context.Context) error {
		if err := driver.VerifyConnectivity(ctx); err != nil {
			return fmt.Errorf("connectivity check failed: %w", err)
		}
		return nil
	})
}

// Query runs cypher in a read session.
func (c *Neo4jClient) Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return c.run(ctx, neo4j.AccessModeRead, cypher, params)
}

// Execute runs cypher in a write session.
func (c *Neo4jClient) Execute(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return c.run(ctx, neo4j.AccessModeWrite, cypher, params)
}

func (c *Neo4jClient) current() (neo4j.DriverWithContext, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, types.NewError(types.CONNECTION_CLOSED, "client is closed")
	}
	if c.driver == nil {
		return nil, types.NewError(types.CONNECTION_CLOSED, "driver not connected")
	}
	return c.driver, nil
}

// run executes a single auto-commit statement. Retries are left to the
// caller's RetryPolicy so that every attempt is visible to it.
func (c *Neo4jClient) run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) (QueryResult, error) {
	driver, err := c.current()
	if err != nil {
		return QueryResult{}, err
	}

	start := time.Now()

	session := driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.config.Database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return QueryResult{}, classifyDriverError("query execution failed", err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return QueryResult{}, classifyDriverError("failed to collect results", err)
	}

	summary, err := result.Consume(ctx)
	if err != nil {
		return QueryResult{}, classifyDriverError("failed to consume result summary", err)
	}

	out := convertNeo4jResult(records, summary)
	out.Summary.ExecutionTime = time.Since(start)
	return out, nil
}

func convertNeo4jResult(records []*neo4j.Record, summary neo4j.ResultSummary) QueryResult {
	result := QueryResult{
		Records: make([]map[string]any, 0, len(records)),
		Columns: []string{},
	}

	if len(records) > 0 {
		result.Columns = records[0].Keys
	}

	for _, record := range records {
		row := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = record.Values[i]
		}
		result.Records = append(result.Records, row)
	}

	if summary != nil && summary.Counters() != nil {
		counters := summary.Counters()
		result.Summary = QuerySummary{
			NodesCreated:         counters.NodesCreated(),
			NodesDeleted:         counters.NodesDeleted(),
			RelationshipsCreated: counters.RelationshipsCreated(),
			RelationshipsDeleted: counters.RelationshipsDeleted(),
			PropertiesSet:        counters.PropertiesSet(),
			ConstraintsAdded:     counters.ConstraintsAdded(),
		}
	}

	return result
}
