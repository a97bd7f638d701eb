package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/cyberrag/cyberrag/internal/api/respond"
	"github.com/cyberrag/cyberrag/internal/searchindex"
)

// RecordHandler handles GET /api/cve/{cveId}: exact lookup by identifier.
type RecordHandler struct {
	idx searchindex.Index
}

// NewRecordHandler instantiates the handler.
func NewRecordHandler(idx searchindex.Index) *RecordHandler {
	return &RecordHandler{idx: idx}
}

// GetRecord returns the stored document for one CVE id. Lookup is
// case-insensitive; ids are stored uppercase.
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	cveID := strings.ToUpper(mux.Vars(r)["cveId"])
	if cveID == "" {
		respond.WriteBadRequest(w, "cveId is required")
		return
	}

	docs, err := h.idx.GetByCveID(r.Context(), cveID)
	if err != nil {
		log.Warn().Err(err).Str("cve_id", cveID).Msg("record lookup failed")
		respond.WriteInternalError(w, "index unavailable")
		return
	}
	if len(docs) == 0 {
		respond.WriteNotFound(w, "CVE not found: "+cveID)
		return
	}

	md := docs[0].Metadata
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"cve_id":       md.CveID,
		"severity":     md.CvssSeverity,
		"score":        md.CvssScore,
		"status":       md.VulnStatus,
		"published":    datePart(md.Published),
		"lastModified": datePart(md.LastModified),
		"year":         md.Year,
		"description":  docs[0].Text,
	})
}
