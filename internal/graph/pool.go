package graph

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/zero-day-ai/clausegraph/internal/types"
)

// DriverFactory constructs a driver. It matches neo4j.NewDriverWithContext so
// tests can substitute a fake.
type DriverFactory func(uri string, auth neo4j.AuthToken, configurers ...func(*neo4j.Config)) (neo4j.DriverWithContext, error)

func defaultDriverFactory(uri string, auth neo4j.AuthToken, configurers ...func(*neo4j.Config)) (neo4j.DriverWithContext, error) {
	return neo4j.NewDriverWithContext(uri, auth, configurers...)
}

// DriverPool holds at most one driver per target URI. Each driver manages its
// own connection pool; DriverPool only guarantees they are shared.
//
// Lookups of an existing driver take no lock. Creation is serialized and
// re-checked under the mutex so concurrent first callers get the same driver.
type DriverPool struct {
	drivers sync.Map // uri -> neo4j.DriverWithContext
	mu      sync.Mutex
	factory DriverFactory
	logger  *slog.Logger
}

// PoolOption configures a DriverPool.
type PoolOption func(*DriverPool)

// WithDriverFactory overrides driver construction.
func WithDriverFactory(f DriverFactory) PoolOption {
	return func(p *DriverPool) {
		p.factory = f
	}
}

// WithPoolLogger sets the logger. Defaults to slog.Default().
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *DriverPool) {
		p.logger = logger
	}
}

// NewDriverPool creates an empty pool.
func NewDriverPool(opts ...PoolOption) *DriverPool {
	p := &DriverPool{
		factory: defaultDriverFactory,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetOrCreate returns the pooled driver for uri, creating and verifying it on
// first use. A driver that fails verification is closed and not pooled.
func (p *DriverPool) GetOrCreate(ctx context.Context, uri string, auth neo4j.AuthToken, configurers ...func(*neo4j.Config)) (neo4j.DriverWithContext, error) {
	if d, ok := p.drivers.Load(uri); ok {
		return d.(neo4j.DriverWithContext), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if d, ok := p.drivers.Load(uri); ok {
		return d.(neo4j.DriverWithContext), nil
	}

	driver, err := p.factory(uri, auth, configurers...)
	if err != nil {
		return nil, types.NewConnectionError("failed to create driver", uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, types.NewConnectionError("connectivity verification failed", uri, err)
	}

	p.drivers.Store(uri, driver)
	p.logger.Info("created pooled neo4j driver", "uri", uri)
	return driver, nil
}

// Len returns the number of pooled drivers.
func (p *DriverPool) Len() int {
	n := 0
	p.drivers.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// CloseAll closes and removes every pooled driver. Close errors are joined;
// every driver is attempted regardless.
func (p *DriverPool) CloseAll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	p.drivers.Range(func(key, value any) bool {
		uri := key.(string)
		if err := value.(neo4j.DriverWithContext).Close(ctx); err != nil {
			errs = append(errs, types.WrapError(types.CONNECTION_CLOSED, "failed to close driver for "+uri, err))
		}
		p.drivers.Delete(key)
		p.logger.Debug("closed pooled neo4j driver", "uri", uri)
		return true
	})
	return errors.Join(errs...)
}
