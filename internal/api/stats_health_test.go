package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyberrag/cyberrag/internal/model"
)

func TestGetStats(t *testing.T) {
	idx := &mockIndex{count: 240000}
	h := NewStatsHandler(idx, &mockWatermark{raw: "2024-06-10T00:00:00.000"}, nil, "mxbai-embed-large")

	req := httptest.NewRequest("GET", "/api/stats", nil)
	rr := httptest.NewRecorder()
	h.GetStats(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["total_cves"] != float64(240000) {
		t.Errorf("total_cves = %v", body["total_cves"])
	}
	if body["last_update"] != "2024-06-10T00:00:00.000" {
		t.Errorf("last_update = %v", body["last_update"])
	}
	if body["embedding_model"] != "mxbai-embed-large" {
		t.Errorf("embedding_model = %v", body["embedding_model"])
	}
}

func TestGetStatsNoWatermark(t *testing.T) {
	h := NewStatsHandler(&mockIndex{}, &mockWatermark{raw: ""}, nil, "m")

	req := httptest.NewRequest("GET", "/api/stats", nil)
	rr := httptest.NewRecorder()
	h.GetStats(rr, req)

	body := decodeBody(t, rr)
	if body["last_update"] != "Unknown" {
		t.Errorf("last_update = %v, want Unknown", body["last_update"])
	}
}

func TestGetStatsIndexDown(t *testing.T) {
	h := NewStatsHandler(&mockIndex{fail: true}, &mockWatermark{}, nil, "m")

	req := httptest.NewRequest("GET", "/api/stats", nil)
	rr := httptest.NewRecorder()
	h.GetStats(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestCheckHealthReflectsBinding(t *testing.T) {
	h := NewHealthHandler()

	BindServiceHealth(func() bool { return true })
	defer BindServiceHealth(func() bool { return false })

	req := httptest.NewRequest("GET", "/api/health", nil)
	rr := httptest.NewRecorder()
	h.CheckHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["status"] != "healthy" {
		t.Errorf("status = %v", body["status"])
	}

	BindServiceHealth(func() bool { return false })
	rr = httptest.NewRecorder()
	h.CheckHealth(rr, req)
	if body := decodeBody(t, rr); body["status"] != "unhealthy" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestRouterRoutes(t *testing.T) {
	router := NewRouter(RouterDeps{
		Answerer: &mockAnswerService{},
		Index: &mockIndex{docs: map[string][]model.Document{
			"CVE-2024-0001": {{CveID: "CVE-2024-0001"}},
		}},
		Feed:       &mockFeed{},
		Watermark:  &mockWatermark{},
		EmbedModel: "m",
	})

	for _, tc := range []struct {
		method, path string
		wantFound    bool
	}{
		{"GET", "/api/health", true},
		{"POST", "/api/query", true},
		{"POST", "/api/search", true},
		{"GET", "/api/cve/CVE-2024-0001", true},
		{"POST", "/api/news", true},
		{"GET", "/api/stats", true},
		{"GET", "/api/query", false},
		{"GET", "/api/missing", false},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		found := rr.Code != http.StatusNotFound && rr.Code != http.StatusMethodNotAllowed
		if found != tc.wantFound {
			t.Errorf("%s %s: status %d, want found=%v", tc.method, tc.path, rr.Code, tc.wantFound)
		}
	}
}
