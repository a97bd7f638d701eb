package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cyberrag/cyberrag/internal/api/respond"
	"github.com/cyberrag/cyberrag/internal/model"
)

// AnswerService is the slice of the answering pipeline the HTTP layer needs.
type AnswerService interface {
	Answer(ctx context.Context, question string, history []model.ConversationTurn) (model.Answer, error)
	Retrieve(ctx context.Context, query string) ([]model.SearchHit, error)
}

// QueryHandler handles POST /api/query.
type QueryHandler struct {
	svc AnswerService
}

// NewQueryHandler instantiates the handler with its answering service.
func NewQueryHandler(svc AnswerService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

// HandleQuery runs one retrieval-augmented answer for the chat surface.
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	ans, err := h.svc.Answer(r.Context(), req.Query, req.History)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRetrieval):
			log.Warn().Err(err).Str("query", req.Query).Msg("retrieval failed")
			respond.WriteInternalError(w, "retrieval service unavailable")
		case errors.Is(err, model.ErrGeneration):
			log.Warn().Err(err).Str("query", req.Query).Msg("generation failed")
			respond.WriteInternalError(w, "generation service unavailable")
		default:
			log.Error().Err(err).Str("query", req.Query).Msg("query failed")
			respond.WriteInternalError(w, "An error occurred while processing your query")
		}
		return
	}

	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"query":        ans.Question,
		"answer":       ans.Text,
		"sources":      ans.Sources,
		"source_count": len(ans.Sources),
	})
}
