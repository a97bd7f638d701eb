package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cyberrag/cyberrag/internal/api/respond"
	"github.com/cyberrag/cyberrag/internal/history"
	"github.com/cyberrag/cyberrag/internal/searchindex"
)

// Watermark exposes the raw stored sync watermark for display.
type Watermark interface {
	Raw() (string, error)
}

// StatsHandler handles GET /api/stats.
type StatsHandler struct {
	idx        searchindex.Index
	watermark  Watermark
	ledger     *history.Store
	embedModel string
}

// NewStatsHandler instantiates the handler. ledger may be nil.
func NewStatsHandler(idx searchindex.Index, watermark Watermark, ledger *history.Store, embedModel string) *StatsHandler {
	return &StatsHandler{idx: idx, watermark: watermark, ledger: ledger, embedModel: embedModel}
}

// GetStats reports index size, last sync watermark, and recent run history.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	count, err := h.idx.Count(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("stats count failed")
		respond.WriteInternalError(w, "index unavailable")
		return
	}

	lastUpdate := "Unknown"
	if raw, err := h.watermark.Raw(); err == nil && raw != "" {
		lastUpdate = raw
	}

	resp := map[string]interface{}{
		"success":         true,
		"total_cves":      count,
		"database":        "weaviate",
		"embedding_model": h.embedModel,
		"last_update":     lastUpdate,
	}

	if h.ledger != nil {
		runs, err := h.ledger.RecentRuns(r.Context(), 10)
		if err != nil {
			log.Warn().Err(err).Msg("recent runs lookup failed")
		} else {
			resp["recent_runs"] = runs
		}
	}

	respond.WriteJSON(w, http.StatusOK, resp)
}
