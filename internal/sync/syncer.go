package sync

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyberrag/cyberrag/internal/checkpoint"
	"github.com/cyberrag/cyberrag/internal/history"
	"github.com/cyberrag/cyberrag/internal/model"
	"github.com/cyberrag/cyberrag/internal/nvd"
)

// Feed is the slice of the feed client the syncer needs.
type Feed interface {
	FetchWindow(ctx context.Context, start, end time.Time) ([]nvd.Record, error)
}

// Syncer drives one incremental refresh cycle: load the watermark, fetch the
// modified window, normalize, apply, advance the watermark. Successive runs
// never reprocess a window because the watermark only moves forward.
type Syncer struct {
	feed   Feed
	cp     *checkpoint.Checkpoint
	sync   *Synchronizer
	ledger *history.Store
	now    func() time.Time
	log    zerolog.Logger
}

// NewSyncer assembles a Syncer. ledger may be nil, in which case runs are not
// recorded.
func NewSyncer(feed Feed, cp *checkpoint.Checkpoint, sync *Synchronizer, ledger *history.Store, log zerolog.Logger) *Syncer {
	return &Syncer{
		feed:   feed,
		cp:     cp,
		sync:   sync,
		ledger: ledger,
		now:    time.Now,
		log:    log.With().Str("component", "syncer").Logger(),
	}
}

// Run performs one refresh cycle and returns its Report.
//
// The window end is captured before the fetch so records modified while the
// run is in flight land in the next window. The watermark is advanced even on
// an empty window and even when the window came back truncated: a partial
// window has already been applied, and stalling the watermark would replay the
// whole window next run.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	startedAt := s.now()

	windowStart, err := s.cp.Load()
	if err != nil {
		return Report{}, err
	}
	windowEnd := startedAt

	s.log.Info().
		Time("window_start", windowStart).
		Time("window_end", windowEnd).
		Msg("starting sync run")

	records, fetchErr := s.feed.FetchWindow(ctx, windowStart, windowEnd)
	if fetchErr != nil && len(records) == 0 {
		// Nothing arrived at all; leave the watermark alone and retry the
		// same window next run.
		return Report{}, fetchErr
	}

	docs := make([]model.Document, 0, len(records))
	var report Report
	for _, rec := range records {
		doc, err := nvd.Normalize(rec)
		if err != nil {
			if errors.Is(err, model.ErrMissingID) {
				s.log.Warn().Msg("record without id; skipping")
				report.skip("", "normalize: missing id")
				continue
			}
			report.skip(rec.ID, "normalize: "+err.Error())
			continue
		}
		docs = append(docs, doc)
	}

	applied := s.sync.Sync(ctx, docs)
	report.Added = applied.Added
	report.Updated = applied.Updated
	report.Skipped = append(report.Skipped, applied.Skipped...)
	report.Partial = fetchErr != nil

	if err := s.cp.Save(windowEnd); err != nil {
		return report, err
	}

	if s.ledger != nil {
		run := history.Run{
			StartedAt:   startedAt,
			FinishedAt:  s.now(),
			WindowStart: windowStart.Format(nvd.TimeFormat),
			WindowEnd:   windowEnd.Format(nvd.TimeFormat),
			Added:       report.Added,
			Updated:     report.Updated,
			Skipped:     len(report.Skipped),
			Partial:     report.Partial,
		}
		if err := s.ledger.RecordRun(ctx, run); err != nil {
			s.log.Warn().Err(err).Msg("failed to record sync run")
		}
	}

	s.log.Info().
		Int("records", len(records)).
		Int("added", report.Added).
		Int("updated", report.Updated).
		Int("skipped", len(report.Skipped)).
		Bool("partial", report.Partial).
		Msg("sync run finished")
	return report, nil
}
