// Package extraction turns raw contract text into clauses, entities and the
// relationships between them.
package extraction

import (
	"context"

	"github.com/zero-day-ai/clausegraph/internal/contract"
)

// Extractor maps contract text to extracted elements. Implementations must be
// deterministic for a given input and safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, text string) (contract.Extraction, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, text string) (contract.Extraction, error)

func (f ExtractorFunc) Extract(ctx context.Context, text string) (contract.Extraction, error) {
	return f(ctx, text)
}
