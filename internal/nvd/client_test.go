package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeFeed serves a fixed set of records page by page, recording every
// request it sees.
type fakeFeed struct {
	mu       sync.Mutex
	records  []Record
	pageSize int
	failPage int // 1-based page number to fail, 0 = never
	requests []*http.Request
}

func (f *fakeFeed) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Clone(context.Background()))
		pageNum := len(f.requests)
		f.mu.Unlock()

		if f.failPage != 0 && pageNum == f.failPage {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		start, _ := strconv.Atoi(r.URL.Query().Get("startIndex"))
		end := start + f.pageSize
		if end > len(f.records) {
			end = len(f.records)
		}
		var slice []Record
		if start < len(f.records) {
			slice = f.records[start:end]
		}

		resp := struct {
			TotalResults    int `json:"totalResults"`
			Vulnerabilities []struct {
				Cve Record `json:"cve"`
			} `json:"vulnerabilities"`
		}{TotalResults: len(f.records)}
		for _, rec := range slice {
			resp.Vulnerabilities = append(resp.Vulnerabilities, struct {
				Cve Record `json:"cve"`
			}{Cve: rec})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (f *fakeFeed) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func makeRecords(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{ID: fmt.Sprintf("CVE-2024-%04d", i)}
	}
	return out
}

func newTestClient(baseURL string, pageSize int, apiKey string) *Client {
	return NewClient(Options{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		PageSize:     pageSize,
		KeyedDelay:   time.Millisecond,
		UnkeyedDelay: time.Millisecond,
	}, zerolog.Nop())
}

func TestFetchWindowPaginates(t *testing.T) {
	feed := &fakeFeed{records: makeRecords(5), pageSize: 2}
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	c := newTestClient(srv.URL, 2, "")
	got, err := c.FetchWindow(context.Background(), time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d records, want 5", len(got))
	}
	if n := feed.requestCount(); n != 3 {
		t.Errorf("made %d requests, want 3", n)
	}
	if got[0].ID != "CVE-2024-0000" || got[4].ID != "CVE-2024-0004" {
		t.Errorf("records out of order: first=%s last=%s", got[0].ID, got[4].ID)
	}
}

func TestFetchWindowPartialOnPageFailure(t *testing.T) {
	feed := &fakeFeed{records: makeRecords(6), pageSize: 2, failPage: 2}
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	c := newTestClient(srv.URL, 2, "")
	got, err := c.FetchWindow(context.Background(), time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("expected error for truncated window")
	}
	if len(got) != 2 {
		t.Errorf("got %d records, want the 2 from page one", len(got))
	}
	if n := feed.requestCount(); n != 2 {
		t.Errorf("made %d requests, want 2 (no page after the failure)", n)
	}
}

func TestFetchWindowEmpty(t *testing.T) {
	feed := &fakeFeed{records: nil, pageSize: 2}
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	c := newTestClient(srv.URL, 2, "")
	got, err := c.FetchWindow(context.Background(), time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records, want 0", len(got))
	}
}

func TestFetchWindowSendsAPIKeyAndBounds(t *testing.T) {
	feed := &fakeFeed{records: makeRecords(1), pageSize: 2000}
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	c := newTestClient(srv.URL, 2000, "secret")
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	if _, err := c.FetchWindow(context.Background(), start, end); err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}

	req := feed.requests[0]
	if got := req.Header.Get("apiKey"); got != "secret" {
		t.Errorf("apiKey header = %q, want secret", got)
	}
	q := req.URL.Query()
	if got := q.Get("lastModStartDate"); got != "2024-06-01T00:00:00.000" {
		t.Errorf("lastModStartDate = %q", got)
	}
	if got := q.Get("lastModEndDate"); got != "2024-06-02T00:00:00.000" {
		t.Errorf("lastModEndDate = %q", got)
	}
}

func TestFetchAllOmitsDateFilter(t *testing.T) {
	feed := &fakeFeed{records: makeRecords(3), pageSize: 2000}
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	c := newTestClient(srv.URL, 2000, "")
	got, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if q := feed.requests[0].URL.Query(); q.Get("lastModStartDate") != "" {
		t.Error("full fetch must not send a date filter")
	}
}

func TestFetchLatestSinglePage(t *testing.T) {
	feed := &fakeFeed{records: makeRecords(3), pageSize: 2000}
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	c := newTestClient(srv.URL, 2000, "")
	got, err := c.FetchLatest(context.Background(), time.Now().Add(-time.Hour), time.Now(), 2)
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3 (single page as served)", len(got))
	}
	if n := feed.requestCount(); n != 1 {
		t.Errorf("made %d requests, want 1", n)
	}
	if q := feed.requests[0].URL.Query(); q.Get("resultsPerPage") != "2" {
		t.Errorf("resultsPerPage = %q, want 2", q.Get("resultsPerPage"))
	}
}

func TestFetchWindowContextCancel(t *testing.T) {
	feed := &fakeFeed{records: makeRecords(10), pageSize: 2}
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(srv.URL, 2, "")
	if _, err := c.FetchWindow(ctx, time.Now().Add(-time.Hour), time.Now()); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
