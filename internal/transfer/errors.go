package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/tonimelisma/sharepoint-go/internal/graph"
)

// Error kinds. Every failed Result carries an Err that wraps exactly one of
// these, alongside the underlying cause (often a *graph.GraphError).
var (
	ErrAuth             = errors.New("authentication failed")
	ErrSessionCreation  = errors.New("upload session creation failed")
	ErrChunkTransfer    = errors.New("chunk transfer failed")
	ErrFileFetch        = errors.New("file fetch failed")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCancelled        = errors.New("cancelled")
	ErrHierarchyTooDeep = errors.New("hierarchy too deep")
)

// cancelledDetail is the FailureDetail of every Result cut short by context
// cancellation.
const cancelledDetail = "cancelled"

// isCancellation reports whether err stems from context cancellation or a
// deadline.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrCancelled)
}

// classify wraps cause with the error kind it belongs to. Cancellation wins
// over the caller's kind and a 401 from the service is reported as ErrAuth.
func classify(kind, cause error) error {
	switch {
	case isCancellation(cause):
		if errors.Is(cause, ErrCancelled) {
			return cause
		}

		return fmt.Errorf("%w: %w", ErrCancelled, cause)
	case errors.Is(cause, graph.ErrUnauthorized):
		return fmt.Errorf("%w: %w: %w", ErrAuth, kind, cause)
	default:
		return fmt.Errorf("%w: %w", kind, cause)
	}
}

// failureDetail extracts the human-readable reason from cause: the response
// body for service errors, the error text otherwise.
func failureDetail(cause error) string {
	if isCancellation(cause) {
		return cancelledDetail
	}

	var graphErr *graph.GraphError
	if errors.As(cause, &graphErr) && graphErr.Message != "" {
		return graphErr.Message
	}

	return cause.Error()
}

func errNegativeSize(size int64) error {
	return fmt.Errorf("size %d must not be negative", size)
}
