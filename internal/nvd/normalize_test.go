package nvd

import (
	"errors"
	"strings"
	"testing"

	"github.com/cyberrag/cyberrag/internal/model"
)

func f64(v float64) *float64 { return &v }

func TestNormalizeMissingID(t *testing.T) {
	_, err := Normalize(Record{})
	if !errors.Is(err, model.ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestNormalizePrefersV31OverV2(t *testing.T) {
	rec := Record{
		ID:        "CVE-2024-0001",
		Published: "2024-01-15T10:00:00.000",
		Metrics: Metrics{
			CvssMetricV31: []CvssMetricV31{
				{CvssData: CvssDataV31{BaseScore: f64(9.8), BaseSeverity: "CRITICAL"}},
			},
			CvssMetricV2: []CvssMetricV2{
				{CvssData: CvssDataV2{BaseScore: f64(5.0)}, BaseSeverity: "MEDIUM"},
			},
		},
	}

	doc, err := Normalize(rec)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if doc.Metadata.CvssScore != "9.8" || doc.Metadata.CvssSeverity != "CRITICAL" {
		t.Errorf("got score=%s severity=%s, want 9.8/CRITICAL",
			doc.Metadata.CvssScore, doc.Metadata.CvssSeverity)
	}
}

func TestNormalizeFallsBackToV2(t *testing.T) {
	rec := Record{
		ID: "CVE-2010-1234",
		Metrics: Metrics{
			CvssMetricV2: []CvssMetricV2{
				{CvssData: CvssDataV2{BaseScore: f64(5)}, BaseSeverity: "MEDIUM"},
			},
		},
	}

	doc, err := Normalize(rec)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if doc.Metadata.CvssScore != "5" || doc.Metadata.CvssSeverity != "MEDIUM" {
		t.Errorf("got score=%s severity=%s, want 5/MEDIUM",
			doc.Metadata.CvssScore, doc.Metadata.CvssSeverity)
	}
}

func TestNormalizeNoMetricsYieldsNA(t *testing.T) {
	doc, err := Normalize(Record{ID: "CVE-2024-0002"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if doc.Metadata.CvssScore != "N/A" || doc.Metadata.CvssSeverity != "N/A" {
		t.Errorf("got score=%s severity=%s, want N/A for both",
			doc.Metadata.CvssScore, doc.Metadata.CvssSeverity)
	}
	if doc.Metadata.VulnStatus != "Unknown" {
		t.Errorf("empty status should normalize to Unknown, got %s", doc.Metadata.VulnStatus)
	}
}

func TestNormalizeText(t *testing.T) {
	rec := Record{
		ID:         "CVE-2024-0003",
		VulnStatus: "Analyzed",
		Published:  "2024-03-01T00:00:00.000",
		Descriptions: []Description{
			{Lang: "es", Value: "descripción"},
			{Lang: "en", Value: "A buffer overflow."},
		},
		Metrics: Metrics{
			CvssMetricV31: []CvssMetricV31{
				{CvssData: CvssDataV31{BaseScore: f64(7.5), BaseSeverity: "HIGH"}},
			},
		},
	}

	doc, err := Normalize(rec)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	for _, want := range []string{
		"CVE ID: CVE-2024-0003",
		"Status: Analyzed",
		"Severity: HIGH (Score: 7.5)",
		"Description:\nA buffer overflow.",
	} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("text missing %q:\n%s", want, doc.Text)
		}
	}
	if doc.Metadata.Year != "2024" {
		t.Errorf("year = %s, want 2024", doc.Metadata.Year)
	}
	if doc.Metadata.Source != "NVD" {
		t.Errorf("source = %s, want NVD", doc.Metadata.Source)
	}
}

func TestEnglishDescriptionAbsent(t *testing.T) {
	rec := Record{ID: "CVE-2024-0004", Descriptions: []Description{{Lang: "fr", Value: "x"}}}
	if got := EnglishDescription(rec); got != "" {
		t.Errorf("expected empty description, got %q", got)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	rec := Record{ID: "CVE-2024-0005", Published: "2024-05-05T12:00:00.000"}
	a, _ := Normalize(rec)
	b, _ := Normalize(rec)
	if a != b {
		t.Error("same record must normalize identically")
	}
}
