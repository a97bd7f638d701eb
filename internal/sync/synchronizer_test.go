package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cyberrag/cyberrag/internal/model"
)

// fakeIndex is an in-memory Index keyed by CVE id.
type fakeIndex struct {
	mu      sync.Mutex
	docs    map[string]model.Document
	deletes int

	failLookup bool
	failUpsert map[string]bool
	failDelete bool
	failBulk   bool

	createCalls int
	appendCalls int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: map[string]model.Document{}, failUpsert: map[string]bool{}}
}

func (f *fakeIndex) Upsert(ctx context.Context, doc model.Document, vec []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert[doc.CveID] {
		return errors.New("upsert refused")
	}
	f.docs[doc.CveID] = doc
	return nil
}

func (f *fakeIndex) GetByCveID(ctx context.Context, cveID string) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLookup {
		return nil, errors.New("lookup refused")
	}
	if doc, ok := f.docs[cveID]; ok {
		return []model.Document{doc}, nil
	}
	return nil, nil
}

func (f *fakeIndex) DeleteByCveID(ctx context.Context, cveID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return 0, errors.New("delete refused")
	}
	if _, ok := f.docs[cveID]; ok {
		delete(f.docs, cveID)
		f.deletes++
		return 1, nil
	}
	return 0, nil
}

func (f *fakeIndex) Query(ctx context.Context, query string, vec []float32, topK int) ([]model.SearchHit, error) {
	return nil, nil
}

func (f *fakeIndex) BulkCreate(ctx context.Context, docs []model.Document, vecs [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBulk {
		return errors.New("bulk refused")
	}
	f.createCalls++
	f.docs = map[string]model.Document{}
	for _, d := range docs {
		f.docs[d.CveID] = d
	}
	return nil
}

func (f *fakeIndex) BulkAppend(ctx context.Context, docs []model.Document, vecs [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBulk {
		return errors.New("bulk refused")
	}
	f.appendCalls++
	for _, d := range docs {
		f.docs[d.CveID] = d
	}
	return nil
}

func (f *fakeIndex) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.docs)), nil
}

// fakeEmbedder returns a constant vector, optionally failing for marked texts.
type fakeEmbedder struct {
	failFor map[string]bool
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failFor[text] {
		return nil, errors.New("embed refused")
	}
	return []float32{0.1, 0.2}, nil
}

func makeDocs(n int) []model.Document {
	out := make([]model.Document, n)
	for i := range out {
		id := fmt.Sprintf("CVE-2024-%04d", i)
		out[i] = model.Document{CveID: id, Text: "text " + id, Metadata: model.DocumentMetadata{CveID: id}}
	}
	return out
}

func TestSyncAddsNewDocuments(t *testing.T) {
	idx := newFakeIndex()
	s := NewSynchronizer(idx, &fakeEmbedder{}, zerolog.Nop())

	report := s.Sync(context.Background(), makeDocs(3))
	if report.Added != 3 || report.Updated != 0 || len(report.Skipped) != 0 {
		t.Errorf("report = %+v, want 3 added", report)
	}
	if n, _ := idx.Count(context.Background()); n != 3 {
		t.Errorf("index holds %d docs, want 3", n)
	}
}

func TestSyncUpdatesExisting(t *testing.T) {
	idx := newFakeIndex()
	s := NewSynchronizer(idx, &fakeEmbedder{}, zerolog.Nop())

	docs := makeDocs(2)
	s.Sync(context.Background(), docs)

	docs[0].Text = "revised"
	report := s.Sync(context.Background(), docs[:1])
	if report.Added != 0 || report.Updated != 1 {
		t.Errorf("report = %+v, want 1 updated", report)
	}
	if idx.deletes != 1 {
		t.Errorf("prior version deletes = %d, want 1", idx.deletes)
	}

	stored, _ := idx.GetByCveID(context.Background(), docs[0].CveID)
	if len(stored) != 1 || stored[0].Text != "revised" {
		t.Errorf("stored = %+v, want single revised doc", stored)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	idx := newFakeIndex()
	s := NewSynchronizer(idx, &fakeEmbedder{}, zerolog.Nop())

	docs := makeDocs(4)
	s.Sync(context.Background(), docs)
	report := s.Sync(context.Background(), docs)

	if report.Added != 0 || report.Updated != 4 {
		t.Errorf("second pass report = %+v, want all updated", report)
	}
	if n, _ := idx.Count(context.Background()); n != 4 {
		t.Errorf("index holds %d docs after re-sync, want 4", n)
	}
}

func TestSyncSkipsOnEmbedFailure(t *testing.T) {
	idx := newFakeIndex()
	docs := makeDocs(3)
	emb := &fakeEmbedder{failFor: map[string]bool{docs[1].Text: true}}
	s := NewSynchronizer(idx, emb, zerolog.Nop())

	report := s.Sync(context.Background(), docs)
	if report.Added != 2 {
		t.Errorf("added = %d, want 2", report.Added)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].CveID != docs[1].CveID {
		t.Errorf("skipped = %+v, want the failing doc", report.Skipped)
	}
}

func TestSyncSkipsOnUpsertFailure(t *testing.T) {
	idx := newFakeIndex()
	docs := makeDocs(2)
	idx.failUpsert[docs[0].CveID] = true
	s := NewSynchronizer(idx, &fakeEmbedder{}, zerolog.Nop())

	report := s.Sync(context.Background(), docs)
	if report.Added != 1 || len(report.Skipped) != 1 {
		t.Errorf("report = %+v, want 1 added 1 skipped", report)
	}
}
