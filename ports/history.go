package ports

import (
	"context"

	"viewsync/domain/hypothesis"
)

// HistoryRepository persists the versioned run-history document. Implementations
// must store and return the document whole; pruning and versioning policy live
// in the results store, not the repository.
type HistoryRepository interface {
	// Load returns the stored document, or (nil, nil) when nothing has been
	// persisted yet.
	Load(ctx context.Context) (*hypothesis.HistoryDocument, error)

	// Save replaces the stored document.
	Save(ctx context.Context, doc *hypothesis.HistoryDocument) error
}
