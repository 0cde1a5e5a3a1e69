// Package pipeline runs contract analysis as four linear stages: Extract,
// Persist, Analyze and Finalize.
//
// Every stage is total. Failures are appended to State.Errors and the stage
// returns its best partial result, so Run always produces a report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/clausegraph/internal/extraction"
	"github.com/zero-day-ai/clausegraph/internal/graphrag"
)

// StoreOpener opens a graph store for the duration of one stage. The stage
// closes it before returning.
type StoreOpener func(ctx context.Context) (graphrag.GraphStore, error)

// Pipeline wires an extractor and a store opener into the stage sequence.
// Run may be called concurrently. Extraction proceeds in parallel but the
// Persist and Analyze stages of different runs never overlap, since each run
// owns the whole graph between them.
type Pipeline struct {
	graphMu sync.Mutex

	extractor extraction.Extractor
	openStore StoreOpener
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithTracer sets the tracer used for stage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(newID func() string) Option {
	return func(p *Pipeline) {
		p.newID = newID
	}
}

// New returns a pipeline. A nil extractor selects the heuristic extractor.
func New(extractor extraction.Extractor, openStore StoreOpener, opts ...Option) *Pipeline {
	if extractor == nil {
		extractor = extraction.NewHeuristicExtractor()
	}
	p := &Pipeline{
		extractor: extractor,
		openStore: openStore,
		logger:    slog.Default(),
		tracer:    otel.Tracer("clausegraph.pipeline"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewState creates the initial state for text.
func (p *Pipeline) NewState(text string) State {
	return NewState(p.newID(), text, p.now())
}

// Run executes every stage in order and returns the terminal state. It never
// fails; inspect State.Errors for degraded runs.
func (p *Pipeline) Run(ctx context.Context, text string) State {
	state := p.NewState(text)

	ctx, span := p.tracer.Start(ctx, "clausegraph.pipeline.run",
		trace.WithAttributes(attribute.String("clausegraph.run_id", state.RunID)))
	defer span.End()

	logger := p.logger.With("run_id", state.RunID)
	logger.Info("starting contract analysis", "text_length", len(text))

	state = p.Extract(ctx, state)
	state = p.persistAndAnalyze(ctx, state)
	state = p.Finalize(ctx, state)

	span.SetAttributes(
		attribute.Bool("clausegraph.critical", state.HasCriticalFindings()),
		attribute.Int("clausegraph.error_count", len(state.Errors)),
	)
	if state.Degraded() {
		span.SetStatus(codes.Error, fmt.Sprintf("%d stage error(s)", len(state.Errors)))
	} else {
		span.SetStatus(codes.Ok, "analysis complete")
	}
	return state
}

func (p *Pipeline) persistAndAnalyze(ctx context.Context, state State) State {
	p.graphMu.Lock()
	defer p.graphMu.Unlock()

	state = p.Persist(ctx, state)
	return p.Analyze(ctx, state)
}

// stage runs fn on a copy of in inside a span. A panic in fn is recorded as a
// stage error and the copy of in is returned with it.
func (p *Pipeline) stage(ctx context.Context, name Stage, in State, fn func(ctx context.Context, s State) State) (out State) {
	ctx, span := p.tracer.Start(ctx, "clausegraph.pipeline."+string(name))
	defer span.End()

	start := time.Now()
	base := in.Clone()
	errorsBefore := len(base.Errors)

	defer func() {
		if r := recover(); r != nil {
			out = base
			out.Errors = append(out.Errors, fmt.Sprintf("%s stage panic: %v", name, r))
			p.logger.Error("pipeline stage panicked", "stage", name, "run_id", in.RunID, "panic", r)
		}
		out.Stage = name

		span.SetAttributes(attribute.Float64("clausegraph.stage.duration_ms", float64(time.Since(start).Milliseconds())))
		if added := len(out.Errors) - errorsBefore; added > 0 {
			span.SetStatus(codes.Error, out.Errors[len(out.Errors)-1])
			span.SetAttributes(attribute.Int("clausegraph.stage.errors", added))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}()

	return fn(ctx, base.Clone())
}

func (p *Pipeline) timestamp() string {
	return p.now().Format(time.RFC3339Nano)
}
