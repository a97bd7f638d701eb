package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cyberrag/cyberrag/internal/api/respond"
)

// SearchHandler handles POST /api/search: direct retrieval without the
// generation step.
type SearchHandler struct {
	svc AnswerService
}

// NewSearchHandler instantiates the handler.
func NewSearchHandler(svc AnswerService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// HandleSearch returns the documents most relevant to a free-text query.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	hits, err := h.svc.Retrieve(r.Context(), req.Search)
	if err != nil {
		log.Warn().Err(err).Str("search", req.Search).Msg("search failed")
		respond.WriteInternalError(w, "search service unavailable")
		return
	}

	if len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	results := make([]map[string]interface{}, 0, len(hits))
	for _, hit := range hits {
		md := hit.Document.Metadata
		results = append(results, map[string]interface{}{
			"cve_id":      md.CveID,
			"severity":    md.CvssSeverity,
			"score":       md.CvssScore,
			"status":      md.VulnStatus,
			"published":   datePart(md.Published),
			"description": hit.Document.Text,
		})
	}

	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"query":   req.Search,
		"results": results,
		"count":   len(results),
	})
}

// datePart trims a feed timestamp down to its date component.
func datePart(ts string) string {
	if len(ts) > 10 {
		return ts[:10]
	}
	return ts
}
