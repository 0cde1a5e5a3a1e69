package graphrag

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/clausegraph/internal/contract"
	"github.com/zero-day-ai/clausegraph/internal/types"
)

// Span attribute keys, under the "clausegraph.graph.*" namespace.
const (
	AttrGraphOperation   = "clausegraph.graph.operation"
	AttrGraphNodeType    = "clausegraph.graph.node_type"
	AttrGraphNodeID      = "clausegraph.graph.node_id"
	AttrGraphRelType     = "clausegraph.graph.relationship_type"
	AttrGraphResultCount = "clausegraph.graph.result_count"
	AttrGraphDurationMS  = "clausegraph.graph.duration_ms"
	AttrGraphStoreKind   = "clausegraph.graph.store"
)

// Span names
const (
	SpanGraphWrite  = "clausegraph.graph.write"
	SpanGraphQuery  = "clausegraph.graph.query"
	SpanGraphSchema = "clausegraph.graph.schema"
	SpanGraphHealth = "clausegraph.graph.health"
)

// TracedStore decorates a GraphStore with OpenTelemetry spans.
//
// Thread-safety: safe for concurrent use when inner is.
type TracedStore struct {
	inner  GraphStore
	tracer trace.Tracer
	kind   string
}

// TracedStoreOption configures a TracedStore.
type TracedStoreOption func(*TracedStore)

// WithStoreKind sets the clausegraph.graph.store attribute. Defaults to
// "neo4j".
func WithStoreKind(kind string) TracedStoreOption {
	return func(t *TracedStore) {
		t.kind = kind
	}
}

// NewTracedStore wraps inner.
//
//	store = graphrag.NewTracedStore(store, otel.Tracer("clausegraph.graph"))
func NewTracedStore(inner GraphStore, tracer trace.Tracer, opts ...TracedStoreOption) *TracedStore {
	t := &TracedStore{inner: inner, tracer: tracer, kind: "neo4j"}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// traced runs fn inside a span and records its outcome.
func (t *TracedStore) traced(ctx context.Context, spanName, op string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	ctx, span := t.tracer.Start(ctx, spanName)
	defer span.End()

	span.SetAttributes(
		attribute.String(AttrGraphStoreKind, t.kind),
		attribute.String(AttrGraphOperation, op),
	)
	span.SetAttributes(attrs...)

	start := time.Now()
	err := fn(ctx)
	span.SetAttributes(attribute.Float64(AttrGraphDurationMS, float64(time.Since(start).Milliseconds())))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if details := types.DetailsOf(err); details != nil {
			for k, v := range details {
				span.SetAttributes(attribute.String("error.detail."+k, fmt.Sprint(v)))
			}
		}
		return err
	}

	span.SetStatus(codes.Ok, op+" succeeded")
	return nil
}

func (t *TracedStore) ClearDatabase(ctx context.Context) error {
	return t.traced(ctx, SpanGraphWrite, "clear_database", nil, t.inner.ClearDatabase)
}

func (t *TracedStore) EnsureConstraints(ctx context.Context) error {
	return t.traced(ctx, SpanGraphSchema, "ensure_constraints", nil, t.inner.EnsureConstraints)
}

func (t *TracedStore) UpsertClause(ctx context.Context, in ClauseInput) error {
	attrs := []attribute.KeyValue{
		attribute.String(AttrGraphNodeType, string(contract.LabelClause)),
		attribute.String(AttrGraphNodeID, in.ID),
	}
	return t.traced(ctx, SpanGraphWrite, "upsert_clause", attrs, func(ctx context.Context) error {
		return t.inner.UpsertClause(ctx, in)
	})
}

func (t *TracedStore) UpsertEntity(ctx context.Context, name string, entityType contract.EntityType) error {
	attrs := []attribute.KeyValue{
		attribute.String(AttrGraphNodeType, string(contract.LabelEntity)),
		attribute.String(AttrGraphNodeID, name),
	}
	return t.traced(ctx, SpanGraphWrite, "upsert_entity", attrs, func(ctx context.Context) error {
		return t.inner.UpsertEntity(ctx, name, entityType)
	})
}

func (t *TracedStore) UpsertRisk(ctx context.Context, in RiskInput) error {
	attrs := []attribute.KeyValue{
		attribute.String(AttrGraphNodeType, string(contract.LabelRisk)),
		attribute.String(AttrGraphNodeID, in.ID),
	}
	return t.traced(ctx, SpanGraphWrite, "upsert_risk", attrs, func(ctx context.Context) error {
		return t.inner.UpsertRisk(ctx, in)
	})
}

func (t *TracedStore) Link(ctx context.Context, spec LinkSpec) error {
	attrs := []attribute.KeyValue{
		attribute.String(AttrGraphRelType, string(spec.Type)),
	}
	return t.traced(ctx, SpanGraphWrite, "link", attrs, func(ctx context.Context) error {
		return t.inner.Link(ctx, spec)
	})
}

func (t *TracedStore) Contradictions(ctx context.Context) ([]Contradiction, error) {
	var out []Contradiction
	err := t.traced(ctx, SpanGraphQuery, "contradictions", nil, func(ctx context.Context) error {
		var err error
		out, err = t.inner.Contradictions(ctx)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int(AttrGraphResultCount, len(out)))
		return err
	})
	return out, err
}

func (t *TracedStore) Risks(ctx context.Context) ([]RiskRecord, error) {
	var out []RiskRecord
	err := t.traced(ctx, SpanGraphQuery, "risks", nil, func(ctx context.Context) error {
		var err error
		out, err = t.inner.Risks(ctx)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int(AttrGraphResultCount, len(out)))
		return err
	})
	return out, err
}

func (t *TracedStore) Stats(ctx context.Context) (map[string]int64, error) {
	var out map[string]int64
	err := t.traced(ctx, SpanGraphQuery, "stats", nil, func(ctx context.Context) error {
		var err error
		out, err = t.inner.Stats(ctx)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int(AttrGraphResultCount, len(out)))
		return err
	})
	return out, err
}

// HealthCheck marks the span as errored when the store is unhealthy, but like
// the inner store it never fails.
func (t *TracedStore) HealthCheck(ctx context.Context) Health {
	ctx, span := t.tracer.Start(ctx, SpanGraphHealth)
	defer span.End()

	span.SetAttributes(attribute.String(AttrGraphStoreKind, t.kind))
	h := t.inner.HealthCheck(ctx)
	span.SetAttributes(attribute.String("clausegraph.graph.health", string(h.Status)))
	if h.Status != types.HealthStateHealthy {
		span.SetStatus(codes.Error, h.Error)
	} else {
		span.SetStatus(codes.Ok, "healthy")
	}
	return h
}

func (t *TracedStore) Close(ctx context.Context) error {
	return t.inner.Close(ctx)
}

var _ GraphStore = (*TracedStore)(nil)
