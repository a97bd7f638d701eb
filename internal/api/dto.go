package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cyberrag/cyberrag/internal/model"
)

// QueryRequest is the payload for POST /api/query.
//
// Fields:
//
//	query   – required, non-empty string
//	history – optional, prior conversation turns oldest first
type QueryRequest struct {
	Query   string                   `json:"query"`
	History []model.ConversationTurn `json:"history,omitempty"`
}

// Validate sanitises the struct and applies defaults.
func (r *QueryRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return errors.New("query cannot be empty")
	}
	return nil
}

// SearchRequest is the payload for POST /api/search.
type SearchRequest struct {
	Search string `json:"search"`
	Limit  int    `json:"limit,omitempty"`
}

// Validate sanitises the struct and applies defaults.
func (r *SearchRequest) Validate() error {
	r.Search = strings.TrimSpace(r.Search)
	if r.Search == "" {
		return errors.New("search query cannot be empty")
	}
	if r.Limit <= 0 {
		r.Limit = 10
	}
	if r.Limit > 100 {
		r.Limit = 100
	}
	return nil
}

// NewsRequest is the payload for POST /api/news. Filter selects a relative
// window; "custom" requires both dates in RFC 3339.
type NewsRequest struct {
	Filter    string `json:"filter,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// Validate sanitises the struct and applies defaults. Unrecognized filter
// values are kept; the window resolution treats them as a week.
func (r *NewsRequest) Validate() error {
	if r.Filter == "" {
		r.Filter = "today"
	}
	if r.Filter == "custom" && (r.StartDate == "" || r.EndDate == "") {
		return errors.New("custom filter requires startDate and endDate")
	}
	if r.Limit <= 0 {
		r.Limit = 20
	}
	if r.Limit > 2000 {
		r.Limit = 2000
	}
	return nil
}

// decodeJSON parses the request body into dst and runs its validation.
func decodeJSON(r *http.Request, dst interface{ Validate() error }) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return dst.Validate()
}
