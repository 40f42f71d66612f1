package index

import (
	"context"

	"xcri-import/internal/domain"
)

// Indexer abstracts the full-text index so the importer does not depend on a
// specific backend. Index is an upsert keyed by presentation_identifier;
// submitted documents become visible only after Commit.
type Indexer interface {
	Index(ctx context.Context, docs []domain.Document) error
	Commit(ctx context.Context) error
}
