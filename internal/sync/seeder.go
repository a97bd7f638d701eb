package sync

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cyberrag/cyberrag/internal/embeddings"
	"github.com/cyberrag/cyberrag/internal/model"
	"github.com/cyberrag/cyberrag/internal/searchindex"
)

// Seeder rebuilds the index from scratch in fixed-size batches. The first
// batch recreates the collection, subsequent batches append. Only meant for
// seeding an empty or throwaway index; incremental refresh goes through
// Synchronizer.
type Seeder struct {
	idx       searchindex.Index
	emb       embeddings.EmbeddingProvider
	batchSize int
	log       zerolog.Logger
}

// NewSeeder returns a Seeder inserting batchSize documents per bulk call.
func NewSeeder(idx searchindex.Index, emb embeddings.EmbeddingProvider, batchSize int, log zerolog.Logger) *Seeder {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Seeder{
		idx:       idx,
		emb:       emb,
		batchSize: batchSize,
		log:       log.With().Str("component", "seeder").Logger(),
	}
}

// Seed embeds and bulk-inserts all documents, returning how many were stored.
// Documents that fail to embed are dropped with a log line; a failed batch
// insert is logged and the run continues with the next batch.
func (s *Seeder) Seed(ctx context.Context, docs []model.Document) (int, error) {
	inserted := 0
	first := true

	for offset := 0; offset < len(docs); offset += s.batchSize {
		end := offset + s.batchSize
		if end > len(docs) {
			end = len(docs)
		}

		batchDocs := make([]model.Document, 0, end-offset)
		vecs := make([][]float32, 0, end-offset)
		for _, doc := range docs[offset:end] {
			vec, err := s.emb.Embed(ctx, doc.Text)
			if err != nil {
				s.log.Warn().Err(err).Str("cve_id", doc.CveID).Msg("embedding failed; dropping document")
				continue
			}
			batchDocs = append(batchDocs, doc)
			vecs = append(vecs, vec)
		}
		if len(batchDocs) == 0 {
			continue
		}

		var err error
		if first {
			err = s.idx.BulkCreate(ctx, batchDocs, vecs)
		} else {
			err = s.idx.BulkAppend(ctx, batchDocs, vecs)
		}
		if err != nil {
			// A failed create leaves nothing to append to; bail out.
			if first {
				return inserted, err
			}
			s.log.Error().Err(err).Int("offset", offset).Msg("batch insert failed; continuing")
			continue
		}
		first = false
		inserted += len(batchDocs)

		s.log.Info().Int("inserted", inserted).Int("total", len(docs)).Msg("seed progress")

		if err := ctx.Err(); err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}
