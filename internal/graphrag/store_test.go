package graphrag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/clausegraph/internal/contract"
	"github.com/zero-day-ai/clausegraph/internal/graph"
	"github.com/zero-day-ai/clausegraph/internal/types"
)

func noWaitPolicy() graph.RetryPolicy {
	p := graph.DefaultRetryPolicy()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func newTestStore(t *testing.T) (*Store, *graph.MockGraphClient) {
	t.Helper()
	mock := graph.NewMockGraphClient()
	require.NoError(t, mock.Connect(context.Background()))
	return NewStore(mock, WithRetryPolicy(noWaitPolicy()), WithURI("bolt://test:7687")), mock
}

func TestStore_UpsertClause(t *testing.T) {
	ctx := context.Background()
	store, mock := newTestStore(t)
	page := 4

	err := store.UpsertClause(ctx, ClauseInput{ID: "1", Text: "The Developer shall...", Topic: "Indemnification", Section: "1", Page: &page})
	require.NoError(t, err)

	calls := mock.GetCallsByMethod("Execute")
	require.Len(t, calls, 1)
	assert.Equal(t, cypherUpsertClause, calls[0].Cypher)
	assert.Equal(t, "1", calls[0].Params["id"])
	assert.Equal(t, "Indemnification", calls[0].Params["topic"])
	assert.Equal(t, "1", calls[0].Params["section_number"])
	assert.Equal(t, int64(4), calls[0].Params["page_number"])
	assert.Contains(t, calls[0].Cypher, "MERGE (c:Clause {id: $id})")
}

func TestStore_UpsertIsIdempotentStatement(t *testing.T) {
	ctx := context.Background()
	store, mock := newTestStore(t)
	in := ClauseInput{ID: "7", Text: "text", Topic: "Termination"}

	require.NoError(t, store.UpsertClause(ctx, in))
	require.NoError(t, store.UpsertClause(ctx, in))

	calls := mock.GetCallsByMethod("Execute")
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0].Cypher, calls[1].Cypher)
	assert.Equal(t, calls[0].Params, calls[1].Params)
	assert.NotContains(t, calls[0].Cypher, "CREATE")
}

func TestStore_ValidationFailsBeforeAnyCall(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		op   func(s *Store) error
	}{
		{"clause without id", func(s *Store) error { return s.UpsertClause(ctx, ClauseInput{Text: "x"}) }},
		{"clause with blank id", func(s *Store) error { return s.UpsertClause(ctx, ClauseInput{ID: "  ", Text: "x"}) }},
		{"clause without text", func(s *Store) error { return s.UpsertClause(ctx, ClauseInput{ID: "1"}) }},
		{"entity without name", func(s *Store) error { return s.UpsertEntity(ctx, "", contract.EntityParty) }},
		{"risk with bad severity", func(s *Store) error {
			return s.UpsertRisk(ctx, RiskInput{ID: "r", Severity: "extreme", ClauseID: "1"})
		}},
		{"risk without id", func(s *Store) error {
			return s.UpsertRisk(ctx, RiskInput{Severity: "high", ClauseID: "1"})
		}},
		{"risk without clause", func(s *Store) error {
			return s.UpsertRisk(ctx, RiskInput{ID: "r", Severity: "high"})
		}},
		{"link with bad relationship", func(s *Store) error {
			spec := validLinkSpec()
			spec.Type = "DELETES"
			return s.Link(ctx, spec)
		}},
		{"link with bad label", func(s *Store) error {
			spec := validLinkSpec()
			spec.SourceLabel = "Admin"
			return s.Link(ctx, spec)
		}},
		{"link with bad property key", func(s *Store) error {
			spec := validLinkSpec()
			spec.Properties = map[string]any{"x}) MATCH (n) DETACH DELETE n //": 1}
			return s.Link(ctx, spec)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStore(t)
			err := tt.op(store)
			require.Error(t, err)
			assert.True(t, types.HasCode(err, types.VALIDATION_FAILED))
			assert.Equal(t, 0, mock.StatementCount())
		})
	}
}

func TestStore_UpsertRisk_NormalizesSeverity(t *testing.T) {
	store, mock := newTestStore(t)

	err := store.UpsertRisk(context.Background(), RiskInput{
		ID: "risk-1-2", Severity: "CRITICAL", Description: "conflict", ClauseID: "1",
		Recommendation: "Immediate legal review required.",
	})
	require.NoError(t, err)

	calls := mock.GetCallsByMethod("Execute")
	require.Len(t, calls, 1)
	assert.Equal(t, "critical", calls[0].Params["severity"])
	assert.Contains(t, calls[0].Cypher, "MERGE (c)-[:HAS_RISK]->(r)")
}

func TestStore_RetryTransientTwiceThenSuccess(t *testing.T) {
	store, mock := newTestStore(t)
	mock.AddQueryError(types.NewTransientError("service unavailable", nil))
	mock.AddQueryError(types.NewTransientError("service unavailable", nil))

	err := store.UpsertEntity(context.Background(), "Developer", contract.EntityParty)
	require.NoError(t, err)
	assert.Equal(t, 3, mock.StatementCount())
}

func TestStore_RetryExhaustionReturnsTransient(t *testing.T) {
	store, mock := newTestStore(t)
	mock.SetQueryError(types.NewTransientError("session expired", nil))

	err := store.UpsertEntity(context.Background(), "Client", contract.EntityParty)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.TRANSIENT_FAILURE))
	assert.Equal(t, 4, mock.StatementCount())
}

func TestStore_NonTransientBecomesBuildFailure(t *testing.T) {
	store, mock := newTestStore(t)
	mock.AddQueryError(types.WrapError(graph.ErrCodeGraphQueryFailed, "constraint violation", errors.New("already exists")))

	err := store.UpsertClause(context.Background(), ClauseInput{ID: "3", Text: "x", Topic: "Liability"})
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.BUILD_FAILED))
	assert.Equal(t, "Clause", types.DetailsOf(err)["node_type"])
	assert.Equal(t, "3", types.DetailsOf(err)["node_id"])
	assert.Equal(t, 1, mock.StatementCount())
}

func TestStore_Link(t *testing.T) {
	store, mock := newTestStore(t)

	require.NoError(t, store.Link(context.Background(), validLinkSpec()))

	calls := mock.GetCallsByMethod("Execute")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Cypher, "MERGE (a)-[r:CONTRADICTS]->(b)")
	assert.Equal(t, "conflict", calls[0].Params["prop_reason"])
}

func TestStore_EnsureConstraints(t *testing.T) {
	store, mock := newTestStore(t)

	require.NoError(t, store.EnsureConstraints(context.Background()))

	calls := mock.GetCallsByMethod("Execute")
	require.Len(t, calls, 3)
	assert.Contains(t, calls[0].Cypher, "(c:Clause) REQUIRE c.id IS UNIQUE")
	assert.Contains(t, calls[1].Cypher, "(e:Entity) REQUIRE e.name IS UNIQUE")
	assert.Contains(t, calls[2].Cypher, "(r:Risk) REQUIRE r.id IS UNIQUE")
	for _, c := range calls {
		assert.Contains(t, c.Cypher, "IF NOT EXISTS")
	}
}

func TestStore_ClearDatabase(t *testing.T) {
	store, mock := newTestStore(t)
	require.NoError(t, store.ClearDatabase(context.Background()))

	calls := mock.GetCallsByMethod("Execute")
	require.Len(t, calls, 1)
	assert.Equal(t, "MATCH (n) DETACH DELETE n", calls[0].Cypher)
}

func TestStore_Contradictions(t *testing.T) {
	store, mock := newTestStore(t)
	mock.AddQueryResult(graph.QueryResult{Records: []map[string]any{
		{"clause1_id": "3", "clause1_text": "c", "clause1_topic": "Indemnification", "clause2_id": "4",
			"clause2_text": "d", "clause2_topic": "Liability", "contradiction_reason": "second"},
		{"clause1_id": "1", "clause1_text": "a", "clause1_topic": "Indemnification", "clause2_id": "2",
			"clause2_text": "b", "clause2_topic": "Liability", "contradiction_reason": "first"},
	}})

	got, err := store.Contradictions(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Clause1ID)
	assert.Equal(t, "2", got[0].Clause2ID)
	assert.Equal(t, "first", got[0].Reason)
	assert.Equal(t, "3", got[1].Clause1ID)

	calls := mock.GetCallsByMethod("Query")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Cypher, "ORDER BY c1.id")
}

func TestStore_Risks_OrderedBySeverity(t *testing.T) {
	store, mock := newTestStore(t)
	mock.AddQueryResult(graph.QueryResult{Records: []map[string]any{
		{"risk_id": "a", "severity": "low", "clause_id": "1"},
		{"risk_id": "b", "severity": "medium", "clause_id": "1"},
		{"risk_id": "c", "severity": "critical", "clause_id": "2"},
		{"risk_id": "d", "severity": "unknown", "clause_id": "2"},
		{"risk_id": "e", "severity": "HIGH", "clause_id": "3", "clause_topic": "Liability"},
		{"risk_id": "f", "severity": "critical", "clause_id": "3"},
	}})

	got, err := store.Risks(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.RiskID
	}
	assert.Equal(t, []string{"c", "f", "e", "b", "a", "d"}, ids)
	assert.Equal(t, contract.SeverityHigh, got[2].Severity)
	assert.Equal(t, "Liability", got[2].ClauseTopic)
}

func TestStore_ReadFailureIsComplianceFailure(t *testing.T) {
	store, mock := newTestStore(t)
	mock.SetQueryError(types.WrapError(graph.ErrCodeGraphQueryFailed, "bad query", nil))

	_, err := store.Risks(context.Background())
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.COMPLIANCE_CHECK_FAILED))
	assert.Equal(t, "risks", types.DetailsOf(err)["query"])
}

func TestStore_Stats(t *testing.T) {
	store, mock := newTestStore(t)
	mock.AddQueryResult(graph.QueryResult{Records: []map[string]any{
		{"label": "Clause", "node_count": int64(5)},
		{"label": "Entity", "node_count": int64(2)},
		{"label": "Risk", "node_count": int64(1)},
	}})

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Clause": 5, "Entity": 2, "Risk": 1}, stats)
}

func TestStore_HealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.AddQueryResult(graph.QueryResult{Records: []map[string]any{
			{"name": "Neo4j Kernel", "version": "5.20.0"},
		}})

		h := store.HealthCheck(context.Background())
		assert.Equal(t, types.HealthStateHealthy, h.Status)
		assert.Equal(t, "Neo4j Kernel", h.Name)
		assert.Equal(t, "5.20.0", h.Version)
	})

	t.Run("unhealthy never fails", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.SetQueryError(errors.New("connection refused"))

		h := store.HealthCheck(context.Background())
		assert.Equal(t, types.HealthStateUnhealthy, h.Status)
		assert.Equal(t, "bolt://test:7687", h.URI)
		assert.Contains(t, h.Error, "connection refused")
	})
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, mock := newTestStore(t)

	require.NoError(t, store.Close(ctx))
	require.NoError(t, store.Close(ctx))
	assert.Len(t, mock.GetCallsByMethod("Close"), 1)

	err := store.UpsertEntity(ctx, "Client", contract.EntityParty)
	assert.True(t, types.HasCode(err, types.CONNECTION_CLOSED))

	_, err = store.Contradictions(ctx)
	assert.True(t, types.HasCode(err, types.CONNECTION_CLOSED))

	h := store.HealthCheck(ctx)
	assert.Equal(t, types.HealthStateUnhealthy, h.Status)
	assert.Equal(t, 0, mock.StatementCount())
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := graph.DefaultConfig()
	cfg.URI = "http://localhost:7474"

	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, graph.ErrCodeGraphInvalidConfig))
}
