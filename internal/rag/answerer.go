// Package rag implements retrieval-augmented answering over the CVE index.
package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cyberrag/cyberrag/internal/embeddings"
	"github.com/cyberrag/cyberrag/internal/llm"
	"github.com/cyberrag/cyberrag/internal/model"
	"github.com/cyberrag/cyberrag/internal/searchindex"
)

// Answerer runs the retrieve-then-generate loop: embed the question, pull the
// top-k matching documents, assemble a grounded prompt and hand it to the
// generator. Retrieval failures and generation failures carry distinct
// sentinels so callers can tell which stage broke.
type Answerer struct {
	idx  searchindex.Index
	emb  embeddings.EmbeddingProvider
	gen  llm.Generator
	topK int
	log  zerolog.Logger
}

// NewAnswerer wires the three backends together. topK values below 1 fall
// back to 5.
func NewAnswerer(idx searchindex.Index, emb embeddings.EmbeddingProvider, gen llm.Generator, topK int, log zerolog.Logger) *Answerer {
	if topK < 1 {
		topK = 5
	}
	return &Answerer{
		idx:  idx,
		emb:  emb,
		gen:  gen,
		topK: topK,
		log:  log.With().Str("component", "answerer").Logger(),
	}
}

// Retrieve returns the top-k documents most relevant to the query, ordered by
// descending relevance. Errors wrap model.ErrRetrieval.
func (a *Answerer) Retrieve(ctx context.Context, query string) ([]model.SearchHit, error) {
	vec, err := a.emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", model.ErrRetrieval, err)
	}
	hits, err := a.idx.Query(ctx, query, vec, a.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRetrieval, err)
	}
	return hits, nil
}

// Answer retrieves context for the question, assembles the prompt with up to
// the last six turns of history, and returns the generated answer alongside
// the source documents that grounded it. Generation errors wrap
// model.ErrGeneration.
func (a *Answerer) Answer(ctx context.Context, question string, history []model.ConversationTurn) (model.Answer, error) {
	hits, err := a.Retrieve(ctx, question)
	if err != nil {
		return model.Answer{}, err
	}
	a.log.Debug().Int("hits", len(hits)).Str("question", question).Msg("retrieved context")

	prompt := buildPrompt(question, history, hits)

	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return model.Answer{}, fmt.Errorf("%w: %v", model.ErrGeneration, err)
	}

	return model.Answer{
		Question: question,
		Text:     text,
		Sources:  sourceRefs(hits),
	}, nil
}

// sourceRefs projects hits into the citation shape returned to clients.
func sourceRefs(hits []model.SearchHit) []model.SourceRef {
	refs := make([]model.SourceRef, 0, len(hits))
	for _, h := range hits {
		refs = append(refs, model.SourceRef{
			CveID:              h.Document.Metadata.CveID,
			Severity:           h.Document.Metadata.CvssSeverity,
			Score:              h.Document.Metadata.CvssScore,
			Status:             h.Document.Metadata.VulnStatus,
			Published:          datePart(h.Document.Metadata.Published),
			Year:               h.Document.Metadata.Year,
			DescriptionPreview: preview(h.Document.Text, 150),
		})
	}
	return refs
}

func datePart(ts string) string {
	if len(ts) > 10 {
		return ts[:10]
	}
	return ts
}

// preview truncates to n characters, not bytes, so multi-byte descriptions
// stay valid UTF-8.
func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
