package source

import (
	"context"

	"github.com/plentyofmemes/memepipe/internal/domain"
)

// Source defines the interface for candidate sources. A source produces a
// finite sequence of candidates per invocation; no ordering is guaranteed and
// batches may be arbitrarily small or empty.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	// Parameters: none.
	// Returns:
	//   - string: stable source identifier.
	GetSourceID() string

	// GetDisplayName returns a human-readable name for this source.
	// Parameters: none.
	// Returns:
	//   - string: display-friendly source name.
	GetDisplayName() string

	// FetchBatch fetches a batch of candidates starting from the given cursor.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of candidates to fetch.
	// Returns:
	//   - items: batch of candidates.
	//   - nextCursor: cursor for the next batch or empty if done.
	//   - err: non-nil if fetching fails.
	FetchBatch(ctx context.Context, cursor string, limit int) (items []domain.Candidate, nextCursor string, err error)
}
