// Package app wires configuration, the driver pool, the analysis pipeline
// and the run history into one object shared by the CLI and the HTTP API.
package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/clausegraph/internal/config"
	"github.com/zero-day-ai/clausegraph/internal/database"
	"github.com/zero-day-ai/clausegraph/internal/extraction"
	"github.com/zero-day-ai/clausegraph/internal/graph"
	"github.com/zero-day-ai/clausegraph/internal/graphrag"
	"github.com/zero-day-ai/clausegraph/internal/pipeline"
	"github.com/zero-day-ai/clausegraph/internal/types"
)

// App holds the long-lived components of a clausegraph process.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	tracer    trace.Tracer
	pool      *graph.DriverPool
	openStore pipeline.StoreOpener
	extractor extraction.Extractor
	pipeline  *pipeline.Pipeline
	db        *database.DB
	runs      *database.RunDAO
	now       func() time.Time
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithStoreOpener replaces the Neo4j-backed store opener.
func WithStoreOpener(open pipeline.StoreOpener) Option {
	return func(a *App) {
		a.openStore = open
	}
}

// WithExtractor replaces the heuristic extractor.
func WithExtractor(e extraction.Extractor) Option {
	return func(a *App) {
		a.extractor = e
	}
}

// WithRunDAO supplies an already opened run history.
func WithRunDAO(runs *database.RunDAO) Option {
	return func(a *App) {
		a.runs = runs
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// New builds an App from cfg. The run history database is opened when
// enabled and not supplied with WithRunDAO. No graph connection is made
// until a store is first opened.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	a := &App{
		cfg:    cfg,
		logger: slog.Default(),
		tracer: otel.Tracer("clausegraph"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.openStore == nil {
		if cfg.Neo4j.Pooled {
			a.pool = graph.NewDriverPool(graph.WithPoolLogger(a.logger))
		}
		a.openStore = a.neo4jOpener()
	}

	if a.runs == nil && cfg.History.Enabled {
		db, err := database.Open(ctx, cfg.History.Path)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.runs = database.NewRunDAO(db)
	}

	if a.extractor == nil {
		a.extractor = extraction.NewHeuristicExtractor()
	}
	if cfg.Analysis.CacheSize > 0 {
		a.extractor = extraction.NewCachedExtractor(a.extractor, cfg.Analysis.CacheSize, cfg.Analysis.CacheTTL)
	}

	a.pipeline = pipeline.New(a.extractor, a.openStore,
		pipeline.WithLogger(a.logger),
		pipeline.WithTracer(otel.Tracer("clausegraph.pipeline")),
		pipeline.WithClock(a.now))
	return a, nil
}

func (a *App) neo4jOpener() pipeline.StoreOpener {
	return func(ctx context.Context) (graphrag.GraphStore, error) {
		store, err := graphrag.Open(ctx, a.cfg.GraphClientConfig(), a.pool,
			graphrag.WithRetryPolicy(a.cfg.RetryPolicy()),
			graphrag.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		return graphrag.NewTracedStore(store, otel.Tracer("clausegraph.graph")), nil
	}
}

// Config returns the configuration the App was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the App logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// HistoryEnabled reports whether runs are archived.
func (a *App) HistoryEnabled() bool {
	return a.runs != nil
}

// OpenStore opens a graph store. The caller closes it.
func (a *App) OpenStore(ctx context.Context) (graphrag.GraphStore, error) {
	return a.openStore(ctx)
}

// Analyze runs the pipeline over text and archives the result. source names
// the input, e.g. a file path. Pipeline failures are reported in the
// returned state; the error is non-nil only when archiving fails.
func (a *App) Analyze(ctx context.Context, source, text string) (pipeline.State, error) {
	ctx, span := a.tracer.Start(ctx, "clausegraph.analyze")
	defer span.End()

	state := a.pipeline.Run(ctx, text)
	state.Metadata["source"] = source
	state.Metadata["model_name"] = a.cfg.Analysis.ModelName

	if a.runs == nil {
		return state, nil
	}
	if err := a.runs.Create(ctx, RunFromState(state, source, a.now())); err != nil {
		a.logger.Error("failed to archive run", "run_id", state.RunID, "error", err)
		return state, err
	}
	return state, nil
}

// Reset deletes every node and relationship in the graph.
func (a *App) Reset(ctx context.Context) error {
	return a.withStore(ctx, func(store graphrag.GraphStore) error {
		return store.ClearDatabase(ctx)
	})
}

// Stats returns node counts by label.
func (a *App) Stats(ctx context.Context) (map[string]int64, error) {
	var stats map[string]int64
	err := a.withStore(ctx, func(store graphrag.GraphStore) error {
		var err error
		stats, err = store.Stats(ctx)
		return err
	})
	return stats, err
}

// Health reports graph availability. It never fails; an unreachable
// database yields an unhealthy status. When the graph is up but the run
// history cannot be reached the status is degraded.
func (a *App) Health(ctx context.Context) graphrag.Health {
	var h graphrag.Health
	store, err := a.openStore(ctx)
	if err != nil {
		h = graphrag.Health{
			Status: types.HealthStateUnhealthy,
			URI:    a.cfg.Neo4j.URI,
			Error:  err.Error(),
		}
	} else {
		h = store.HealthCheck(ctx)
		if cerr := store.Close(ctx); cerr != nil {
			a.logger.Warn("failed to close graph store", "error", cerr)
		}
	}

	if a.db != nil {
		history := types.Probe(ctx, "run history reachable", a.db.Health)
		if !history.IsHealthy() {
			h.Status = h.Status.Worse(types.HealthStateDegraded)
			h.Error = strings.TrimPrefix(h.Error+"; run history: "+history.Message, "; ")
		}
	}
	return h
}

// Runs lists archived runs.
func (a *App) Runs(ctx context.Context, filter database.RunFilter) ([]*database.Run, error) {
	if a.runs == nil {
		return nil, ErrHistoryDisabled
	}
	return a.runs.List(ctx, filter)
}

// Run returns one archived run.
func (a *App) Run(ctx context.Context, id string) (*database.Run, error) {
	if a.runs == nil {
		return nil, ErrHistoryDisabled
	}
	return a.runs.Get(ctx, id)
}

// Close releases the driver pool and the history database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.pool != nil {
		if err := a.pool.CloseAll(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, types.WrapError(types.DB_QUERY_FAILED, "failed to close history database", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) withStore(ctx context.Context, fn func(graphrag.GraphStore) error) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(ctx); cerr != nil {
			a.logger.Warn("failed to close graph store", "error", cerr)
		}
	}()
	return fn(store)
}
