package nvd

import (
	"fmt"
	"strconv"

	"github.com/cyberrag/cyberrag/internal/model"
)

// severityRating is the normalized outcome of scoring-scheme resolution.
// Absence of any scheme yields the "N/A" sentinels so downstream metadata is
// always fully populated.
type severityRating struct {
	Score    string
	Severity string
}

var noRating = severityRating{Score: "N/A", Severity: "N/A"}

// resolveSeverity picks one rating from the closed set of scoring schemes a
// record may carry. CVSS v3.1 always wins over the legacy v2 block when both
// are present.
func resolveSeverity(m Metrics) severityRating {
	if len(m.CvssMetricV31) > 0 {
		data := m.CvssMetricV31[0].CvssData
		return severityRating{
			Score:    formatScore(data.BaseScore),
			Severity: orNA(data.BaseSeverity),
		}
	}
	if len(m.CvssMetricV2) > 0 {
		metric := m.CvssMetricV2[0]
		return severityRating{
			Score:    formatScore(metric.CvssData.BaseScore),
			Severity: orNA(metric.BaseSeverity),
		}
	}
	return noRating
}

// Normalize converts one feed record into its canonical Document. Pure, no
// I/O; the only failure mode is a record without an identifier.
func Normalize(rec Record) (model.Document, error) {
	if rec.ID == "" {
		return model.Document{}, model.ErrMissingID
	}

	description := EnglishDescription(rec)
	rating := resolveSeverity(rec.Metrics)
	status := rec.VulnStatus
	if status == "" {
		status = "Unknown"
	}

	text := fmt.Sprintf(`CVE ID: %s
Status: %s
Severity: %s (Score: %s)

Description:
%s
`, rec.ID, status, rating.Severity, rating.Score, description)

	return model.Document{
		CveID: rec.ID,
		Text:  text,
		Metadata: model.DocumentMetadata{
			CveID:        rec.ID,
			Published:    rec.Published,
			LastModified: rec.LastModified,
			VulnStatus:   status,
			CvssScore:    rating.Score,
			CvssSeverity: rating.Severity,
			Source:       "NVD",
			Year:         yearOf(rec.Published),
		},
	}, nil
}

// EnglishDescription returns the first description entry tagged "en", or the
// empty string when none exists.
func EnglishDescription(rec Record) string {
	for _, d := range rec.Descriptions {
		if d.Lang == "en" {
			return d.Value
		}
	}
	return ""
}

// Rating exposes scheme resolution for callers that render records without
// building a full Document (the live feed-filter surface).
func Rating(m Metrics) (score, severity string) {
	r := resolveSeverity(m)
	return r.Score, r.Severity
}

func formatScore(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func yearOf(published string) string {
	if len(published) < 4 {
		return ""
	}
	return published[:4]
}
