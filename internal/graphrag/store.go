package graphrag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zero-day-ai/clausegraph/internal/contract"
	"github.com/zero-day-ai/clausegraph/internal/graph"
	"github.com/zero-day-ai/clausegraph/internal/types"
)

// GraphStore is the persistence surface used by the analysis pipeline.
// Implementations must be safe for concurrent use.
type GraphStore interface {
	ClearDatabase(ctx context.Context) error
	EnsureConstraints(ctx context.Context) error
	UpsertClause(ctx context.Context, in ClauseInput) error
	UpsertEntity(ctx context.Context, name string, entityType contract.EntityType) error
	UpsertRisk(ctx context.Context, in RiskInput) error
	Link(ctx context.Context, spec LinkSpec) error
	Contradictions(ctx context.Context) ([]Contradiction, error)
	Risks(ctx context.Context) ([]RiskRecord, error)
	Stats(ctx context.Context) (map[string]int64, error)
	HealthCheck(ctx context.Context) Health
	Close(ctx context.Context) error
}

// ClauseInput is the persisted form of a clause.
type ClauseInput struct {
	ID      string
	Text    string
	Topic   string
	Section string
	Page    *int
}

// RiskInput is the persisted form of a risk linked to one clause.
type RiskInput struct {
	ID             string
	Severity       string
	Description    string
	ClauseID       string
	Recommendation string
}

// Contradiction is a CONTRADICTS edge between two clauses.
type Contradiction struct {
	Clause1ID    string `json:"clause1_id"`
	Clause1Text  string `json:"clause1_text"`
	Clause1Topic string `json:"clause1_topic"`
	Clause2ID    string `json:"clause2_id"`
	Clause2Text  string `json:"clause2_text"`
	Clause2Topic string `json:"clause2_topic"`
	Reason       string `json:"contradiction_reason"`
}

// RiskRecord is a risk together with the clause it is attached to.
type RiskRecord struct {
	RiskID         string            `json:"risk_id"`
	Severity       contract.Severity `json:"severity"`
	Description    string            `json:"description"`
	Recommendation string            `json:"recommendation"`
	ClauseID       string            `json:"clause_id"`
	ClauseTopic    string            `json:"clause_topic"`
}

// Health describes the database as seen by HealthCheck.
type Health struct {
	Status    types.HealthState `json:"status"`
	Name      string            `json:"name,omitempty"`
	Version   string            `json:"version,omitempty"`
	URI       string            `json:"uri,omitempty"`
	Error     string            `json:"error,omitempty"`
	LatencyMS int64             `json:"latency_ms"`
}

// Store implements GraphStore over a graph.GraphClient.
type Store struct {
	client graph.GraphClient
	retry  graph.RetryPolicy
	logger *slog.Logger
	uri    string

	mu     sync.RWMutex
	closed bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRetryPolicy overrides graph.DefaultRetryPolicy.
func WithRetryPolicy(p graph.RetryPolicy) StoreOption {
	return func(s *Store) {
		s.retry = p
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithURI records the database address reported by HealthCheck.
func WithURI(uri string) StoreOption {
	return func(s *Store) {
		s.uri = uri
	}
}

// NewStore wraps an already connected client. Close closes the client.
func NewStore(client graph.GraphClient, opts ...StoreOption) *Store {
	s := &Store{
		client: client,
		retry:  graph.DefaultRetryPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.retry.OnRetry == nil {
		logger := s.logger
		s.retry.OnRetry = func(attempt int, delay time.Duration, err error) {
			logger.Warn("transient graph failure, retrying",
				"attempt", attempt,
				"delay", delay,
				"error", err)
		}
	}
	return s
}

// Open connects to the database described by cfg. With a non-nil pool the
// driver is shared and outlives the store; otherwise the store owns it.
func Open(ctx context.Context, cfg graph.GraphClientConfig, pool *graph.DriverPool, opts ...StoreOption) (*Store, error) {
	clientOpts := []graph.ClientOption{}
	if pool != nil {
		clientOpts = append(clientOpts, graph.WithDriverPool(pool))
	}

	client, err := graph.NewNeo4jClient(cfg, clientOpts...)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	opts = append([]StoreOption{WithURI(cfg.URI)}, opts...)
	return NewStore(client, opts...), nil
}

// Close is idempotent. Later operations fail with CONNECTION_CLOSED.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close(ctx)
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.NewError(types.CONNECTION_CLOSED, "graph store is closed")
	}
	return nil
}

// write executes a mutation under the retry policy. Failures that are not
// transient, connection or validation errors become BUILD_FAILED.
func (s *Store) write(ctx context.Context, nodeType, nodeID, cypher string, params map[string]any) (graph.QueryResult, error) {
	if err := s.checkOpen(); err != nil {
		return graph.QueryResult{}, err
	}

	res, err := graph.Retry(ctx, s.retry, func(ctx context.Context) (graph.QueryResult, error) {
		return s.client.Execute(ctx, cypher, params)
	})
	if err != nil {
		if passThrough(err) {
			return res, err
		}
		return res, types.NewBuildError(fmt.Sprintf("failed to write %s", nodeType), nodeType, nodeID, err)
	}
	return res, nil
}

// read executes a query under the retry policy. Non-transient failures become
// COMPLIANCE_CHECK_FAILED tagged with queryName.
func (s *Store) read(ctx context.Context, queryName, cypher string) (graph.QueryResult, error) {
	if err := s.checkOpen(); err != nil {
		return graph.QueryResult{}, err
	}

	res, err := graph.Retry(ctx, s.retry, func(ctx context.Context) (graph.QueryResult, error) {
		return s.client.Query(ctx, cypher, nil)
	})
	if err != nil {
		if passThrough(err) {
			return res, err
		}
		return res, types.NewComplianceError(fmt.Sprintf("%s query failed", queryName), queryName, err)
	}
	return res, nil
}

func passThrough(err error) bool {
	return graph.IsTransient(err) ||
		types.HasCode(err, types.CONNECTION_FAILED) ||
		types.HasCode(err, types.CONNECTION_CLOSED) ||
		types.HasCode(err, types.VALIDATION_FAILED)
}

// ClearDatabase deletes every node and relationship. There is no undo.
func (s *Store) ClearDatabase(ctx context.Context) error {
	res, err := s.write(ctx, "Database", "", cypherClearDatabase, nil)
	if err != nil {
		return err
	}
	s.logger.Info("cleared graph database", "nodes_deleted", res.Summary.NodesDeleted)
	return nil
}

// EnsureConstraints declares uniqueness on Clause.id, Entity.name and Risk.id.
func (s *Store) EnsureConstraints(ctx context.Context) error {
	for _, stmt := range constraintStatements {
		if _, err := s.write(ctx, "Constraint", "", stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

// UpsertClause merges a clause by id and overwrites its properties.
func (s *Store) UpsertClause(ctx context.Context, in ClauseInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return types.NewValidationError("clause id cannot be empty", "id", in.ID)
	}
	if strings.TrimSpace(in.Text) == "" {
		return types.NewValidationError("clause text cannot be empty", "text", "")
	}

	var page any
	if in.Page != nil {
		page = int64(*in.Page)
	}
	var section any
	if in.Section != "" {
		section = in.Section
	}

	_, err := s.write(ctx, string(contract.LabelClause), in.ID, cypherUpsertClause, map[string]any{
		"id":             in.ID,
		"text":           in.Text,
		"topic":          in.Topic,
		"section_number": section,
		"page_number":    page,
	})
	return err
}

// UpsertEntity merges an entity by name.
func (s *Store) UpsertEntity(ctx context.Context, name string, entityType contract.EntityType) error {
	if strings.TrimSpace(name) == "" {
		return types.NewValidationError("entity name cannot be empty", "name", name)
	}
	if entityType == "" {
		entityType = contract.EntityParty
	}

	_, err := s.write(ctx, string(contract.LabelEntity), name, cypherUpsertEntity, map[string]any{
		"name": name,
		"type": string(entityType),
	})
	return err
}

// UpsertRisk merges a risk by id and links it to its clause with HAS_RISK.
// Severity is case-insensitive and stored lower-case.
func (s *Store) UpsertRisk(ctx context.Context, in RiskInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return types.NewValidationError("risk id cannot be empty", "risk_id", in.ID)
	}
	severity, err := contract.ParseSeverity(in.Severity)
	if err != nil {
		return types.NewValidationError(err.Error(), "severity", in.Severity)
	}
	if strings.TrimSpace(in.ClauseID) == "" {
		return types.NewValidationError("risk clause id cannot be empty", "clause_id", in.ClauseID)
	}

	_, err = s.write(ctx, string(contract.LabelRisk), in.ID, cypherUpsertRisk, map[string]any{
		"risk_id":        in.ID,
		"severity":       string(severity),
		"description":    in.Description,
		"recommendation": in.Recommendation,
		"clause_id":      in.ClauseID,
	})
	return err
}

// Link merges a relationship between two existing nodes. The LinkSpec is fully
// validated before any statement is sent.
func (s *Store) Link(ctx context.Context, spec LinkSpec) error {
	cypher, params, err := BuildLinkQuery(spec)
	if err != nil {
		return err
	}

	nodeID := fmt.Sprintf("%v->%v", spec.SourceValue, spec.TargetValue)
	res, err := s.write(ctx, string(spec.Type), nodeID, cypher, params)
	if err != nil {
		return err
	}
	if res.Summary.RelationshipsCreated == 0 {
		s.logger.Debug("link matched existing relationship or missing endpoint",
			"type", spec.Type,
			"source", spec.SourceValue,
			"target", spec.TargetValue)
	}
	return nil
}

// Contradictions returns every CONTRADICTS pair ordered by the first clause
// id.
func (s *Store) Contradictions(ctx context.Context) ([]Contradiction, error) {
	res, err := s.read(ctx, "contradictions", cypherContradictions)
	if err != nil {
		return nil, err
	}

	out := make([]Contradiction, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, Contradiction{
			Clause1ID:    stringField(rec, "clause1_id"),
			Clause1Text:  stringField(rec, "clause1_text"),
			Clause1Topic: stringField(rec, "clause1_topic"),
			Clause2ID:    stringField(rec, "clause2_id"),
			Clause2Text:  stringField(rec, "clause2_text"),
			Clause2Topic: stringField(rec, "clause2_topic"),
			Reason:       stringField(rec, "contradiction_reason"),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Clause1ID < out[j].Clause1ID
	})
	return out, nil
}

// Risks returns every risk with its clause, critical first, then high,
// medium and everything else.
func (s *Store) Risks(ctx context.Context) ([]RiskRecord, error) {
	res, err := s.read(ctx, "risks", cypherRisks)
	if err != nil {
		return nil, err
	}

	out := make([]RiskRecord, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, RiskRecord{
			RiskID:         stringField(rec, "risk_id"),
			Severity:       contract.Severity(strings.ToLower(stringField(rec, "severity"))),
			Description:    stringField(rec, "description"),
			Recommendation: stringField(rec, "recommendation"),
			ClauseID:       stringField(rec, "clause_id"),
			ClauseTopic:    stringField(rec, "clause_topic"),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() < out[j].Severity.Rank()
	})
	return out, nil
}

// Stats returns node counts keyed by label.
func (s *Store) Stats(ctx context.Context) (map[string]int64, error) {
	res, err := s.read(ctx, "stats", cypherStats)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int64, len(res.Records))
	for _, rec := range res.Records {
		label := stringField(rec, "label")
		if label == "" {
			continue
		}
		stats[label] += int64Field(rec, "node_count")
	}
	return stats, nil
}

// HealthCheck never fails. Errors are reported in the returned Health.
func (s *Store) HealthCheck(ctx context.Context) Health {
	if err := s.checkOpen(); err != nil {
		return Health{Status: types.HealthStateUnhealthy, URI: s.uri, Error: err.Error()}
	}

	var res graph.QueryResult
	probe := types.Probe(ctx, "", func(ctx context.Context) error {
		var err error
		res, err = s.client.Query(ctx, cypherHealth, nil)
		return err
	})

	h := Health{Status: probe.State, URI: s.uri, LatencyMS: probe.Latency.Milliseconds()}
	if !probe.IsHealthy() {
		h.Error = probe.Message
		return h
	}
	if len(res.Records) > 0 {
		h.Name = stringField(res.Records[0], "name")
		h.Version = stringField(res.Records[0], "version")
	}
	return h
}

func stringField(rec map[string]any, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func int64Field(rec map[string]any, key string) int64 {
	switch v := rec[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

var _ GraphStore = (*Store)(nil)
