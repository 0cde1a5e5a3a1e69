package app

import (
	"time"

	"github.com/zero-day-ai/clausegraph/internal/database"
	"github.com/zero-day-ai/clausegraph/internal/pipeline"
	"github.com/zero-day-ai/clausegraph/internal/types"
)

// ErrHistoryDisabled is returned by history queries when no run archive is
// configured.
var ErrHistoryDisabled = types.NewError(types.DB_NOT_FOUND, "run history is disabled")

// RunFromState converts a finished pipeline state into an archive record.
func RunFromState(state pipeline.State, source string, completedAt time.Time) *database.Run {
	created := completedAt
	if s, ok := state.Metadata[pipeline.MetaCreatedAt].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			created = t
		}
	}

	return &database.Run{
		ID:                state.RunID,
		Source:            source,
		CreatedAt:         created,
		CompletedAt:       completedAt,
		TextLength:        state.MetaInt(pipeline.MetaTextLength, len([]rune(state.RawText))),
		ClauseCount:       len(state.Extraction.Clauses),
		EntityCount:       len(state.Extraction.Entities),
		RelationshipCount: len(state.Extraction.Relationships),
		CriticalIssues:    state.MetaInt(pipeline.MetaCriticalIssues, 0),
		HasCritical:       state.HasCriticalFindings(),
		Errors:            append([]string{}, state.Errors...),
		Metadata:          state.Metadata,
		Report:            state.Report,
	}
}
