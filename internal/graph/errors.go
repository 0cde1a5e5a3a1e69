package graph

import (
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/zero-day-ai/clausegraph/internal/types"
)

// Graph access error codes
const (
	ErrCodeGraphInvalidConfig types.ErrorCode = "GRAPH_INVALID_CONFIG"
	ErrCodeGraphQueryFailed   types.ErrorCode = "GRAPH_QUERY_FAILED"
	ErrCodeGraphResultParsing types.ErrorCode = "GRAPH_RESULT_PARSING"
)

// IsTransient reports whether err is worth retrying: driver errors the
// driver itself classifies as retryable, connectivity loss, or any
// *types.Error flagged Retryable.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if types.IsRetryable(err) {
		return true
	}
	return neo4j.IsRetryable(err) || neo4j.IsConnectivityError(err)
}

// IsAuthError reports whether err is a Neo4j security rejection.
func IsAuthError(err error) bool {
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		return neoErr.Category() == "Security"
	}
	return false
}

// classifyDriverError converts a raw driver error into a *types.Error.
// Transient driver failures become retryable TRANSIENT_FAILURE errors so the
// retry layer can recognize them without importing the driver.
func classifyDriverError(message string, err error) error {
	if err == nil {
		return nil
	}
	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}
	if neo4j.IsRetryable(err) || neo4j.IsConnectivityError(err) {
		return types.NewTransientError(message, err)
	}
	return types.WrapError(ErrCodeGraphQueryFailed, message, err)
}
