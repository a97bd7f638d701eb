package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cyberrag/cyberrag/internal/api/respond"
	"github.com/cyberrag/cyberrag/internal/nvd"
)

// Feed is the slice of the feed client the live-news surface needs.
type Feed interface {
	FetchLatest(ctx context.Context, start, end time.Time, limit int) ([]nvd.Record, error)
}

// NewsHandler handles POST /api/news: recently modified records fetched live
// from the upstream feed, bypassing the index.
type NewsHandler struct {
	feed Feed
	now  func() time.Time
}

// NewNewsHandler instantiates the handler.
func NewNewsHandler(feed Feed) *NewsHandler {
	return &NewsHandler{feed: feed, now: time.Now}
}

// HandleNews fetches records for the requested window, optionally filtered by
// severity, newest modification first.
func (h *NewsHandler) HandleNews(w http.ResponseWriter, r *http.Request) {
	var req NewsRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	start, end, err := h.window(req)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	records, err := h.feed.FetchLatest(r.Context(), start, end, req.Limit)
	if err != nil {
		log.Warn().Err(err).Str("filter", req.Filter).Msg("feed fetch failed")
		respond.WriteInternalError(w, "upstream feed unavailable")
		return
	}

	cves := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		score, severity := nvd.Rating(rec.Metrics)
		if req.Severity != "" && severity != req.Severity {
			continue
		}
		status := rec.VulnStatus
		if status == "" {
			status = "Unknown"
		}
		cves = append(cves, map[string]interface{}{
			"cve_id":       rec.ID,
			"severity":     severity,
			"score":        score,
			"status":       status,
			"published":    datePart(rec.Published),
			"lastModified": datePart(rec.LastModified),
			"description":  nvd.EnglishDescription(rec),
			"year":         yearPart(rec.Published),
		})
	}

	sort.Slice(cves, func(i, j int) bool {
		return cves[i]["lastModified"].(string) > cves[j]["lastModified"].(string)
	})
	total := len(cves)
	if len(cves) > req.Limit {
		cves = cves[:req.Limit]
	}

	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"cves":    cves,
		"total":   total,
		"filter":  req.Filter,
		"date_range": map[string]string{
			"start": start.Format(nvd.TimeFormat),
			"end":   end.Format(nvd.TimeFormat),
		},
	})
}

// window resolves the request's filter into concrete bounds.
func (h *NewsHandler) window(req NewsRequest) (time.Time, time.Time, error) {
	now := h.now()
	switch req.Filter {
	case "today":
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return start, now, nil
	case "week":
		return now.Add(-7 * 24 * time.Hour), now, nil
	case "month":
		return now.Add(-30 * 24 * time.Hour), now, nil
	case "custom":
		start, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, end, nil
	}
	// Anything else, including filters we do not recognize, gets a week.
	return now.Add(-7 * 24 * time.Hour), now, nil
}

func yearPart(published string) string {
	if len(published) < 4 {
		return ""
	}
	return published[:4]
}
