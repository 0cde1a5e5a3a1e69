package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zero-day-ai/clausegraph/internal/contract"
	"github.com/zero-day-ai/clausegraph/internal/graphrag"
	"github.com/zero-day-ai/clausegraph/internal/types"
)

// memStore is an in-memory GraphStore keyed the same way as the Cypher
// templates, so repeated upserts merge.
type memStore struct {
	mu sync.Mutex

	clauses  map[string]graphrag.ClauseInput
	entities map[string]contract.EntityType
	risks    map[string]graphrag.RiskInput
	links    map[string]graphrag.LinkSpec

	clearErr         error
	constraintsErr   error
	entityErr        error
	clauseErr        error
	linkErr          error
	contradictionErr error
	riskErr          error

	closes int
}

func newMemStore() *memStore {
	return &memStore{
		clauses:  make(map[string]graphrag.ClauseInput),
		entities: make(map[string]contract.EntityType),
		risks:    make(map[string]graphrag.RiskInput),
		links:    make(map[string]graphrag.LinkSpec),
	}
}

func (m *memStore) opener() StoreOpener {
	return func(context.Context) (graphrag.GraphStore, error) {
		return m, nil
	}
}

func (m *memStore) ClearDatabase(context.Context) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clauses = make(map[string]graphrag.ClauseInput)
	m.entities = make(map[string]contract.EntityType)
	m.risks = make(map[string]graphrag.RiskInput)
	m.links = make(map[string]graphrag.LinkSpec)
	return nil
}

func (m *memStore) EnsureConstraints(context.Context) error {
	return m.constraintsErr
}

func (m *memStore) UpsertClause(_ context.Context, in graphrag.ClauseInput) error {
	if m.clauseErr != nil {
		return m.clauseErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clauses[in.ID] = in
	return nil
}

func (m *memStore) UpsertEntity(_ context.Context, name string, entityType contract.EntityType) error {
	if m.entityErr != nil {
		return m.entityErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[name] = entityType
	return nil
}

func (m *memStore) UpsertRisk(_ context.Context, in graphrag.RiskInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clauses[in.ClauseID]; !ok {
		return nil
	}
	m.risks[in.ID] = in
	return nil
}

func (m *memStore) Link(_ context.Context, spec graphrag.LinkSpec) error {
	if _, _, err := graphrag.BuildLinkQuery(spec); err != nil {
		return err
	}
	if m.linkErr != nil {
		return m.linkErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s:%v->%v", spec.Type, spec.SourceValue, spec.TargetValue)
	m.links[key] = spec
	return nil
}

func (m *memStore) Contradictions(context.Context) ([]graphrag.Contradiction, error) {
	if m.contradictionErr != nil {
		return nil, m.contradictionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []graphrag.Contradiction
	for _, l := range m.links {
		if l.Type != contract.RelContradicts {
			continue
		}
		a, aok := m.clauses[fmt.Sprint(l.SourceValue)]
		b, bok := m.clauses[fmt.Sprint(l.TargetValue)]
		if !aok || !bok {
			continue
		}
		reason, _ := l.Properties["reason"].(string)
		out = append(out, graphrag.Contradiction{
			Clause1ID: a.ID, Clause1Text: a.Text, Clause1Topic: a.Topic,
			Clause2ID: b.ID, Clause2Text: b.Text, Clause2Topic: b.Topic,
			Reason: reason,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Clause1ID < out[j].Clause1ID })
	return out, nil
}

func (m *memStore) Risks(context.Context) ([]graphrag.RiskRecord, error) {
	if m.riskErr != nil {
		return nil, m.riskErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []graphrag.RiskRecord
	for _, r := range m.risks {
		out = append(out, graphrag.RiskRecord{
			RiskID:         r.ID,
			Severity:       contract.Severity(r.Severity),
			Description:    r.Description,
			Recommendation: r.Recommendation,
			ClauseID:       r.ClauseID,
			ClauseTopic:    m.clauses[r.ClauseID].Topic,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Severity.Rank() < out[j].Severity.Rank() })
	return out, nil
}

func (m *memStore) Stats(context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int64{
		string(contract.LabelClause): int64(len(m.clauses)),
		string(contract.LabelEntity): int64(len(m.entities)),
		string(contract.LabelRisk):   int64(len(m.risks)),
	}, nil
}

func (m *memStore) HealthCheck(context.Context) graphrag.Health {
	return graphrag.Health{Status: types.HealthStateHealthy, Name: "memory"}
}

func (m *memStore) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

var _ graphrag.GraphStore = (*memStore)(nil)
