package searchindex

import (
	"context"

	"github.com/cyberrag/cyberrag/internal/model"
)

// Index provides exact lookup by CVE id, vector similarity retrieval, and
// index maintenance for canonical Documents.
type Index interface {
	// Upsert stores one document with its vector under a deterministic
	// object id derived from the CVE id.
	Upsert(ctx context.Context, doc model.Document, vec []float32) error

	// GetByCveID returns every stored document matching the id. The
	// synchronizer relies on this to enforce one-version-per-id.
	GetByCveID(ctx context.Context, cveID string) ([]model.Document, error)

	// DeleteByCveID removes all stored documents matching the id and
	// reports how many were deleted.
	DeleteByCveID(ctx context.Context, cveID string) (int, error)

	// Query returns the topK documents ranked by similarity to the query.
	Query(ctx context.Context, query string, vec []float32, topK int) ([]model.SearchHit, error)

	// BulkCreate recreates the collection from scratch and inserts the
	// batch; BulkAppend inserts into the existing collection. Both are
	// used only by the full-rebuild seeder.
	BulkCreate(ctx context.Context, docs []model.Document, vecs [][]float32) error
	BulkAppend(ctx context.Context, docs []model.Document, vecs [][]float32) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int64, error)
}

// HealthPinger is optionally implemented by an Index to expose specialized
// health check logic. Returns nil when healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
