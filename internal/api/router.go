package api

import (
	"github.com/gorilla/mux"

	"github.com/cyberrag/cyberrag/internal/api/recovery"
	"github.com/cyberrag/cyberrag/internal/history"
	"github.com/cyberrag/cyberrag/internal/searchindex"
)

// RouterDeps carries everything the HTTP surface needs. Ledger may be nil.
type RouterDeps struct {
	Answerer   AnswerService
	Index      searchindex.Index
	Feed       Feed
	Watermark  Watermark
	Ledger     *history.Store
	EmbedModel string
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(deps RouterDeps) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	healthHandler := NewHealthHandler()
	queryHandler := NewQueryHandler(deps.Answerer)
	searchHandler := NewSearchHandler(deps.Answerer)
	recordHandler := NewRecordHandler(deps.Index)
	newsHandler := NewNewsHandler(deps.Feed)
	statsHandler := NewStatsHandler(deps.Index, deps.Watermark, deps.Ledger, deps.EmbedModel)

	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.HandleFunc("/api/query", queryHandler.HandleQuery).Methods("POST")
	router.HandleFunc("/api/search", searchHandler.HandleSearch).Methods("POST")
	router.HandleFunc("/api/cve/{cveId}", recordHandler.GetRecord).Methods("GET")
	router.HandleFunc("/api/news", newsHandler.HandleNews).Methods("POST")
	router.HandleFunc("/api/stats", statsHandler.GetStats).Methods("GET")

	return router
}
