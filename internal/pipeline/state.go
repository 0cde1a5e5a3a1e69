package pipeline

import (
	"time"

	"github.com/zero-day-ai/clausegraph/internal/contract"
)

// Stage names the pipeline stages, in execution order.
type Stage string

const (
	StageNew      Stage = "new"
	StageExtract  Stage = "extract"
	StagePersist  Stage = "persist"
	StageAnalyze  Stage = "analyze"
	StageFinalize Stage = "finalize"
)

// Stages returns the stages in execution order.
func Stages() []Stage {
	return []Stage{StageExtract, StagePersist, StageAnalyze, StageFinalize}
}

// Metadata keys stamped by the stages.
const (
	MetaRunID                    = "run_id"
	MetaCreatedAt                = "created_at"
	MetaExtractionTimestamp      = "extraction_timestamp"
	MetaTextLength               = "text_length"
	MetaClauseCount              = "clause_count"
	MetaEntityCount              = "entity_count"
	MetaRelationshipCount        = "relationship_count"
	MetaGraphBuildTimestamp      = "graph_build_timestamp"
	MetaNodesCreated             = "nodes_created"
	MetaRelationshipsCreated     = "relationships_created"
	MetaCriticalIssues           = "critical_issues"
	MetaComplianceCheckTimestamp = "compliance_check_timestamp"
	MetaReportGeneratedAt        = "report_generated_at"
	MetaHasCriticalFindings      = "has_critical_findings"
	MetaErrorCount               = "error_count"
)

// State is the analysis record threaded through the stages. Stages receive a
// State by value and return a new one; they never modify the slices or map
// of the State they were given.
type State struct {
	RunID      string              `json:"run_id"`
	RawText    string              `json:"-"`
	Extraction contract.Extraction `json:"extraction"`
	Report     string              `json:"report"`
	Errors     []string            `json:"errors"`
	Metadata   map[string]any      `json:"metadata"`
	Stage      Stage               `json:"stage"`
}

// NewState returns the initial state for a run.
func NewState(runID, text string, now time.Time) State {
	return State{
		RunID:   runID,
		RawText: text,
		Extraction: contract.Extraction{
			Clauses:       []contract.Clause{},
			Entities:      []contract.Entity{},
			Relationships: []contract.Relationship{},
		},
		Errors: []string{},
		Metadata: map[string]any{
			MetaRunID:     runID,
			MetaCreatedAt: now.Format(time.RFC3339Nano),
		},
		Stage: StageNew,
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Extraction = s.Extraction.Clone()
	out.Errors = append([]string{}, s.Errors...)
	out.Metadata = make(map[string]any, len(s.Metadata))
	for k, v := range s.Metadata {
		out.Metadata[k] = v
	}
	return out
}

// HasCriticalFindings reports the flag stamped by Finalize.
func (s State) HasCriticalFindings() bool {
	v, _ := s.Metadata[MetaHasCriticalFindings].(bool)
	return v
}

// Degraded reports whether any stage recorded an error.
func (s State) Degraded() bool {
	return len(s.Errors) > 0
}

// MetaInt reads an integer metadata value, or def when absent.
func (s State) MetaInt(key string, def int) int {
	switch v := s.Metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
