package searchindex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	filters "github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/cyberrag/cyberrag/internal/model"
)

const className = "CveDocument"

// docFields are the GraphQL fields fetched for every stored document.
var docFields = []gql.Field{
	{Name: "cveId"},
	{Name: "published"},
	{Name: "lastModified"},
	{Name: "vulnStatus"},
	{Name: "cvssScore"},
	{Name: "cvssSeverity"},
	{Name: "source"},
	{Name: "year"},
	{Name: "text"},
}

// weavIndex implements Index using the Weaviate Go client.
type weavIndex struct {
	client  *weaviate.Client
	baseURL string // host:port without scheme
	alpha   float32
	log     zerolog.Logger
}

// NewWeaviateIndex constructs an Index backed by Weaviate at baseURL
// (host:port, no scheme). alpha weighs vector vs keyword signal in queries.
// The document class is created on first use if missing.
func NewWeaviateIndex(baseURL string, alpha float32, log zerolog.Logger) (Index, error) {
	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	cl, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	w := &weavIndex{
		client:  cl,
		baseURL: baseURL,
		alpha:   alpha,
		log:     log.With().Str("component", "searchindex").Logger(),
	}
	if err := w.ensureClass(context.Background(), false); err != nil {
		return nil, err
	}
	return w, nil
}

// objectID derives a stable Weaviate object id from a CVE id, so re-ingesting
// the same record always targets the same object.
func objectID(cveID string) strfmt.UUID {
	u := uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://nvd.nist.gov/vuln/detail/"+cveID))
	return strfmt.UUID(u.String())
}

func (w *weavIndex) ensureClass(ctx context.Context, recreate bool) error {
	schema, err := w.client.Schema().Getter().Do(ctx)
	if err != nil {
		return err
	}

	exists := false
	for _, cls := range schema.Classes {
		if cls.Class == className {
			exists = true
		}
	}

	if exists && recreate {
		if err := w.client.Schema().ClassDeleter().WithClassName(className).Do(ctx); err != nil {
			return err
		}
		exists = false
	}
	if exists {
		return nil
	}

	cls := &models.Class{
		Class:      className,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "cveId", DataType: []string{"string"}},
			{Name: "published", DataType: []string{"string"}},
			{Name: "lastModified", DataType: []string{"string"}},
			{Name: "vulnStatus", DataType: []string{"string"}},
			{Name: "cvssScore", DataType: []string{"string"}},
			{Name: "cvssSeverity", DataType: []string{"string"}},
			{Name: "source", DataType: []string{"string"}},
			{Name: "year", DataType: []string{"string"}},
			{Name: "text", DataType: []string{"text"}},
		},
	}
	return w.client.Schema().ClassCreator().WithClass(cls).Do(ctx)
}

func docProperties(doc model.Document) map[string]interface{} {
	return map[string]interface{}{
		"cveId":        doc.Metadata.CveID,
		"published":    doc.Metadata.Published,
		"lastModified": doc.Metadata.LastModified,
		"vulnStatus":   doc.Metadata.VulnStatus,
		"cvssScore":    doc.Metadata.CvssScore,
		"cvssSeverity": doc.Metadata.CvssSeverity,
		"source":       doc.Metadata.Source,
		"year":         doc.Metadata.Year,
		"text":         doc.Text,
	}
}

func (w *weavIndex) Upsert(ctx context.Context, doc model.Document, vec []float32) error {
	if w == nil || w.client == nil {
		return fmt.Errorf("weaviate client not initialised")
	}
	_, err := w.client.Data().Creator().
		WithClassName(className).
		WithID(string(objectID(doc.CveID))).
		WithProperties(docProperties(doc)).
		WithVector(vec).
		Do(ctx)
	return err
}

func (w *weavIndex) GetByCveID(ctx context.Context, cveID string) ([]model.Document, error) {
	where := filters.Where().WithPath([]string{"cveId"}).WithOperator(filters.Equal).WithValueText(cveID)
	req := w.client.GraphQL().Get().
		WithClassName(className).
		WithWhere(where).
		WithFields(docFields...)

	resp, err := req.Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate graphql: %s", formatGraphQLErrors(resp.Errors))
	}
	hits := parseHits(plainData(resp.Data))
	docs := make([]model.Document, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, h.Document)
	}
	return docs, nil
}

func (w *weavIndex) DeleteByCveID(ctx context.Context, cveID string) (int, error) {
	docs, err := w.GetByCveID(ctx, cveID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, d := range docs {
		if err := w.client.Data().Deleter().
			WithClassName(className).
			WithID(string(objectID(d.CveID))).
			Do(ctx); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (w *weavIndex) Query(ctx context.Context, query string, vec []float32, topK int) ([]model.SearchHit, error) {
	hy := (&gql.HybridArgumentBuilder{}).
		WithQuery(query).
		WithVector(vec).
		WithAlpha(w.alpha).
		WithProperties([]string{"text"})

	fields := append(append([]gql.Field{}, docFields...),
		gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "score"}}})

	req := w.client.GraphQL().Get().
		WithClassName(className).
		WithHybrid(hy).
		WithLimit(topK).
		WithFields(fields...)

	resp, err := req.Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate graphql: %s", formatGraphQLErrors(resp.Errors))
	}
	return parseHits(plainData(resp.Data)), nil
}

func (w *weavIndex) BulkCreate(ctx context.Context, docs []model.Document, vecs [][]float32) error {
	if err := w.ensureClass(ctx, true); err != nil {
		return err
	}
	return w.bulkInsert(ctx, docs, vecs)
}

func (w *weavIndex) BulkAppend(ctx context.Context, docs []model.Document, vecs [][]float32) error {
	return w.bulkInsert(ctx, docs, vecs)
}

func (w *weavIndex) bulkInsert(ctx context.Context, docs []model.Document, vecs [][]float32) error {
	if len(docs) != len(vecs) {
		return fmt.Errorf("bulk insert: %d docs but %d vectors", len(docs), len(vecs))
	}
	if len(docs) == 0 {
		return nil
	}

	objs := make([]*models.Object, 0, len(docs))
	for i, doc := range docs {
		objs = append(objs, &models.Object{
			Class:      className,
			ID:         objectID(doc.CveID),
			Properties: docProperties(doc),
			Vector:     vecs[i],
		})
	}
	if _, err := w.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx); err != nil {
		w.log.Error().Err(err).Int("batch_size", len(objs)).
			Str("first_object_id", objs[0].ID.String()).Msg("batch upload failed")
		return err
	}
	w.log.Info().Int("batch_size", len(objs)).Msg("batch uploaded")
	return nil
}

func (w *weavIndex) Count(ctx context.Context) (int64, error) {
	resp, err := w.client.GraphQL().Aggregate().
		WithClassName(className).
		WithFields(gql.Field{Name: "meta", Fields: []gql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(resp.Errors) > 0 {
		return 0, fmt.Errorf("weaviate graphql: %s", formatGraphQLErrors(resp.Errors))
	}

	agg, ok := resp.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	arr, ok := agg[className].([]interface{})
	if !ok || len(arr) == 0 {
		return 0, nil
	}
	item, ok := arr[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := item["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, _ := meta["count"].(float64)
	return int64(count), nil
}

// HealthPing calls GET http://<baseURL>/v1/meta and expects 200 OK.
func (w *weavIndex) HealthPing(ctx context.Context) error {
	if w == nil || w.baseURL == "" {
		return fmt.Errorf("weaviate baseURL missing")
	}
	url := w.baseURL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/v1/meta", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weaviate status %d", resp.StatusCode)
	}
	return nil
}

// plainData converts the typed GraphQL response map into a plain interface map.
func plainData(data map[string]models.JSONObject) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// parseHits converts a GraphQL Get response into search hits, tolerating the
// null/missing shapes Weaviate produces for empty result sets.
func parseHits(data map[string]interface{}) []model.SearchHit {
	safeString := func(v interface{}) string {
		s, _ := v.(string)
		return s
	}

	getData, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	val := getData[className]
	if val == nil {
		return []model.SearchHit{}
	}
	raw, ok := val.([]interface{})
	if !ok {
		return nil
	}

	out := make([]model.SearchHit, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		var score float64
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			switch v := add["score"].(type) {
			case float64:
				score = v
			case string:
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					score = f
				}
			}
		}
		out = append(out, model.SearchHit{
			Document: model.Document{
				CveID: safeString(m["cveId"]),
				Text:  safeString(m["text"]),
				Metadata: model.DocumentMetadata{
					CveID:        safeString(m["cveId"]),
					Published:    safeString(m["published"]),
					LastModified: safeString(m["lastModified"]),
					VulnStatus:   safeString(m["vulnStatus"]),
					CvssScore:    safeString(m["cvssScore"]),
					CvssSeverity: safeString(m["cvssSeverity"]),
					Source:       safeString(m["source"]),
					Year:         safeString(m["year"]),
				},
			},
			Score: score,
		})
	}
	return out
}

// formatGraphQLErrors returns a compact string with messages extracted for logging.
func formatGraphQLErrors(errs interface{}) string {
	if b, err := json.Marshal(errs); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", errs)
}
