// Package sync keeps the vector index in step with the remote CVE feed.
package sync

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cyberrag/cyberrag/internal/embeddings"
	"github.com/cyberrag/cyberrag/internal/model"
	"github.com/cyberrag/cyberrag/internal/searchindex"
)

// Skip records one document the batch could not process, with the reason.
type Skip struct {
	CveID  string `json:"cve_id"`
	Reason string `json:"reason"`
}

// Report aggregates the outcome of one batch: per-item results rather than
// silently swallowed errors, so callers and tests can assert on skips.
type Report struct {
	Added   int    `json:"added"`
	Updated int    `json:"updated"`
	Skipped []Skip `json:"skipped,omitempty"`

	// Partial is set when the feed window was truncated by a transport
	// failure; the records that did arrive are still synced.
	Partial bool `json:"partial,omitempty"`
}

func (r *Report) skip(cveID, reason string) {
	r.Skipped = append(r.Skipped, Skip{CveID: cveID, Reason: reason})
}

// Synchronizer applies normalized documents to the index one at a time,
// enforcing at most one stored version per CVE id.
type Synchronizer struct {
	idx searchindex.Index
	emb embeddings.EmbeddingProvider
	log zerolog.Logger
}

// NewSynchronizer returns a Synchronizer writing through emb into idx.
func NewSynchronizer(idx searchindex.Index, emb embeddings.EmbeddingProvider, log zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		idx: idx,
		emb: emb,
		log: log.With().Str("component", "synchronizer").Logger(),
	}
}

// Sync upserts each document: existing versions for the same id are deleted
// first (counted as updated), otherwise the document is new (counted as
// added). Per-document failures become skips and never abort the batch; the
// one-version invariant holds for every document that is not skipped.
func (s *Synchronizer) Sync(ctx context.Context, docs []model.Document) Report {
	var report Report

	for i, doc := range docs {
		vec, err := s.emb.Embed(ctx, doc.Text)
		if err != nil {
			s.log.Error().Err(err).Str("cve_id", doc.CveID).Msg("embedding failed; skipping document")
			report.skip(doc.CveID, "embed: "+err.Error())
			continue
		}

		existing, err := s.idx.GetByCveID(ctx, doc.CveID)
		if err != nil {
			s.log.Error().Err(err).Str("cve_id", doc.CveID).Msg("index lookup failed; skipping document")
			report.skip(doc.CveID, "lookup: "+err.Error())
			continue
		}

		updated := false
		if len(existing) > 0 {
			if _, err := s.idx.DeleteByCveID(ctx, doc.CveID); err != nil {
				s.log.Error().Err(err).Str("cve_id", doc.CveID).Msg("delete of prior version failed; skipping document")
				report.skip(doc.CveID, "delete: "+err.Error())
				continue
			}
			updated = true
		}

		if err := s.idx.Upsert(ctx, doc, vec); err != nil {
			s.log.Error().Err(err).Str("cve_id", doc.CveID).Msg("upsert failed; skipping document")
			report.skip(doc.CveID, "upsert: "+err.Error())
			continue
		}

		if updated {
			report.Updated++
		} else {
			report.Added++
		}

		if (i+1)%100 == 0 {
			s.log.Info().Int("processed", i+1).Int("total", len(docs)).Msg("sync progress")
		}
	}

	s.log.Info().
		Int("added", report.Added).
		Int("updated", report.Updated).
		Int("skipped", len(report.Skipped)).
		Msg("sync complete")
	return report
}
