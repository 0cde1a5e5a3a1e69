package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zero-day-ai/clausegraph/internal/contract"
	"github.com/zero-day-ai/clausegraph/internal/graphrag"
)

// Risk recommendation attached to synthesized contradiction risks.
const contradictionRecommendation = "Immediate legal review required."

// Extract runs the extractor over the raw text. Blank text yields an empty
// extraction and a recorded error.
func (p *Pipeline) Extract(ctx context.Context, in State) State {
	return p.stage(ctx, StageExtract, in, func(ctx context.Context, s State) State {
		logger := p.logger.With("run_id", s.RunID, "stage", StageExtract)

		if strings.TrimSpace(s.RawText) == "" {
			logger.Warn("empty contract text provided")
			s.Extraction = contract.Extraction{}.Clone()
			s.Errors = append(s.Errors, "Empty contract text provided")
			return s
		}

		result, err := p.extractor.Extract(ctx, s.RawText)
		if err != nil {
			logger.Error("extraction failed", "error", err)
			s.Extraction = contract.Extraction{}.Clone()
			s.Errors = append(s.Errors, fmt.Sprintf("Extraction error: %v", err))
			return s
		}

		s.Extraction = result.Clone()
		s.Metadata[MetaExtractionTimestamp] = p.timestamp()
		s.Metadata[MetaTextLength] = len([]rune(s.RawText))
		s.Metadata[MetaClauseCount] = len(result.Clauses)
		s.Metadata[MetaEntityCount] = len(result.Entities)
		s.Metadata[MetaRelationshipCount] = len(result.Relationships)

		contradictions := 0
		for _, r := range result.Relationships {
			if r.Type == contract.RelContradicts {
				contradictions++
			}
		}
		logger.Info("extraction complete",
			"clauses", len(result.Clauses),
			"entities", len(result.Entities),
			"relationships", len(result.Relationships))
		if contradictions > 0 {
			logger.Warn("potential contradictions identified", "count", contradictions)
		}
		return s
	})
}

// Persist replaces the graph contents with the extraction. The graph is
// cleared first, even for an empty extraction, so Analyze only ever sees this
// run's clauses. Individual write failures are recorded and skipped.
func (p *Pipeline) Persist(ctx context.Context, in State) State {
	return p.stage(ctx, StagePersist, in, func(ctx context.Context, s State) State {
		logger := p.logger.With("run_id", s.RunID, "stage", StagePersist)

		store, err := p.openStore(ctx)
		if err != nil {
			logger.Error("failed to open graph store", "error", err)
			s.Errors = append(s.Errors, fmt.Sprintf("Graph build error: %v", err))
			return s
		}
		defer closeStore(ctx, store, logger)

		if err := store.ClearDatabase(ctx); err != nil {
			logger.Error("failed to clear previous run from graph", "error", err)
			s.Errors = append(s.Errors, fmt.Sprintf("Graph reset error: %v", err))
			return s
		}

		if s.Extraction.IsEmpty() {
			logger.Warn("no data to build graph from")
			return s
		}

		if err := store.EnsureConstraints(ctx); err != nil {
			logger.Error("failed to ensure constraints", "error", err)
			s.Errors = append(s.Errors, fmt.Sprintf("Graph build error: %v", err))
			return s
		}

		entities := 0
		for _, e := range s.Extraction.Entities {
			if err := store.UpsertEntity(ctx, e.Name, e.Type); err != nil {
				logger.Warn("failed to add entity", "name", e.Name, "error", err)
				s.Errors = append(s.Errors, fmt.Sprintf("Entity error: %v", err))
				continue
			}
			entities++
		}

		clauses := 0
		for _, c := range s.Extraction.Clauses {
			err := store.UpsertClause(ctx, graphrag.ClauseInput{
				ID:      c.ID,
				Text:    c.Text,
				Topic:   c.Topic,
				Section: c.Section,
				Page:    c.Page,
			})
			if err != nil {
				logger.Warn("failed to add clause", "id", c.ID, "error", err)
				s.Errors = append(s.Errors, fmt.Sprintf("Clause error: %v", err))
				continue
			}
			clauses++
		}

		links, risks := 0, 0
		for _, rel := range s.Extraction.Relationships {
			created, risk, err := persistRelationship(ctx, store, rel)
			links += created
			risks += risk
			if err != nil {
				logger.Warn("failed to create relationship",
					"type", rel.Type,
					"source", rel.Source,
					"target", rel.Target,
					"error", err)
				s.Errors = append(s.Errors, fmt.Sprintf("Relationship error: %v", err))
			}
		}

		logger.Info("graph build complete",
			"entities", fmt.Sprintf("%d/%d", entities, len(s.Extraction.Entities)),
			"clauses", fmt.Sprintf("%d/%d", clauses, len(s.Extraction.Clauses)),
			"relationships", fmt.Sprintf("%d/%d", links, len(s.Extraction.Relationships)))
		if risks > 0 {
			logger.Warn("created risk nodes", "count", risks)
		}

		s.Metadata[MetaGraphBuildTimestamp] = p.timestamp()
		s.Metadata[MetaNodesCreated] = entities + clauses + risks
		s.Metadata[MetaRelationshipsCreated] = links
		return s
	})
}

// persistRelationship writes one extracted relationship and, for a critical
// contradiction, the risk it implies. Relationship types other than
// CONTRADICTS and OBLIGATES are linked generically between clauses.
func persistRelationship(ctx context.Context, store graphrag.GraphStore, rel contract.Relationship) (links, risks int, err error) {
	switch rel.Type {
	case contract.RelContradicts:
		err = store.Link(ctx, graphrag.LinkSpec{
			SourceLabel: contract.LabelClause, SourceKey: "id", SourceValue: rel.Source,
			TargetLabel: contract.LabelClause, TargetKey: "id", TargetValue: rel.Target,
			Type:       contract.RelContradicts,
			Properties: map[string]any{"reason": rel.Reason},
		})
		if err != nil {
			return 0, 0, err
		}
		if rel.Severity != contract.SeverityCritical {
			return 1, 0, nil
		}

		description := rel.Reason
		if description == "" {
			description = "Contradicting clauses detected"
		}
		err = store.UpsertRisk(ctx, graphrag.RiskInput{
			ID:             fmt.Sprintf("risk-%s-%s", rel.Source, rel.Target),
			Severity:       string(contract.SeverityCritical),
			Description:    description,
			ClauseID:       rel.Source,
			Recommendation: contradictionRecommendation,
		})
		if err != nil {
			return 1, 0, err
		}
		return 1, 1, nil

	case contract.RelObligates:
		err = store.Link(ctx, graphrag.LinkSpec{
			SourceLabel: contract.LabelClause, SourceKey: "id", SourceValue: rel.Source,
			TargetLabel: contract.LabelEntity, TargetKey: "name", TargetValue: rel.Target,
			Type: contract.RelObligates,
		})
		if err != nil {
			return 0, 0, err
		}
		return 1, 0, nil

	default:
		target := rel.TargetLabel
		key := "id"
		if target == "" {
			target = contract.LabelClause
		}
		if target == contract.LabelEntity {
			key = "name"
		}
		err = store.Link(ctx, graphrag.LinkSpec{
			SourceLabel: contract.LabelClause, SourceKey: "id", SourceValue: rel.Source,
			TargetLabel: target, TargetKey: key, TargetValue: rel.Target,
			Type:       rel.Type,
			Properties: rel.Properties,
		})
		if err != nil {
			return 0, 0, err
		}
		return 1, 0, nil
	}
}

// Analyze queries the graph for contradictions and risks and renders the
// report. A query failure renders an error section instead.
func (p *Pipeline) Analyze(ctx context.Context, in State) State {
	return p.stage(ctx, StageAnalyze, in, func(ctx context.Context, s State) State {
		logger := p.logger.With("run_id", s.RunID, "stage", StageAnalyze)

		header := ReportHeader{
			GeneratedAt: p.now(),
			TextLength:  s.MetaInt(MetaTextLength, len([]rune(s.RawText))),
			ClauseCount: s.MetaInt(MetaClauseCount, len(s.Extraction.Clauses)),
		}

		report, critical, err := p.checkCompliance(ctx, header)
		if err != nil {
			logger.Error("compliance check failed", "error", err)
			s.Errors = append(s.Errors, fmt.Sprintf("Compliance check error: %v", err))
			s.Report = RenderErrorReport(header, err)
		} else {
			s.Report = report
			s.Metadata[MetaCriticalIssues] = critical
		}

		s.Metadata[MetaComplianceCheckTimestamp] = p.timestamp()
		return s
	})
}

func (p *Pipeline) checkCompliance(ctx context.Context, header ReportHeader) (string, int, error) {
	store, err := p.openStore(ctx)
	if err != nil {
		return "", 0, err
	}
	defer closeStore(ctx, store, p.logger)

	contradictions, err := store.Contradictions(ctx)
	if err != nil {
		return "", 0, err
	}
	risks, err := store.Risks(ctx)
	if err != nil {
		return "", 0, err
	}

	report, critical := RenderReport(header, contradictions, risks)
	return report, critical, nil
}

// Finalize sets the critical-findings flag and completion metadata.
func (p *Pipeline) Finalize(ctx context.Context, in State) State {
	return p.stage(ctx, StageFinalize, in, func(ctx context.Context, s State) State {
		logger := p.logger.With("run_id", s.RunID, "stage", StageFinalize)

		if s.Report == "" {
			s.Report = RenderErrorReport(ReportHeader{
				GeneratedAt: p.now(),
				TextLength:  len([]rune(s.RawText)),
				ClauseCount: len(s.Extraction.Clauses),
			}, fmt.Errorf("no report was produced"))
		}

		critical := strings.Contains(s.Report, "CRITICAL") || s.MetaInt(MetaCriticalIssues, 0) > 0
		if critical {
			logger.Warn("report contains CRITICAL findings")
		} else {
			logger.Info("report completed with no critical issues")
		}
		if len(s.Errors) > 0 {
			logger.Warn("errors occurred during processing", "count", len(s.Errors))
		}

		s.Metadata[MetaReportGeneratedAt] = p.timestamp()
		s.Metadata[MetaHasCriticalFindings] = critical
		s.Metadata[MetaErrorCount] = len(s.Errors)
		return s
	})
}

func closeStore(ctx context.Context, store graphrag.GraphStore, logger *slog.Logger) {
	if err := store.Close(ctx); err != nil {
		logger.Warn("failed to close graph store", "error", err)
	}
}
