package nvd

// TimeFormat is the timestamp layout the feed expects for window bounds and
// emits for publication/modification times.
const TimeFormat = "2006-01-02T15:04:05.000"

// Record is one CVE as delivered by the feed. Records are immutable as
// received; an update supersedes the whole record, never a single field.
type Record struct {
	ID           string        `json:"id"`
	Published    string        `json:"published"`
	LastModified string        `json:"lastModified"`
	VulnStatus   string        `json:"vulnStatus"`
	Descriptions []Description `json:"descriptions"`
	Metrics      Metrics       `json:"metrics"`
}

// Description is one localized description entry.
type Description struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

// Metrics holds the scoring blocks a record may carry, keyed by scheme.
// Both schemes may be present simultaneously; resolution precedence is
// handled by the normalizer.
type Metrics struct {
	CvssMetricV31 []CvssMetricV31 `json:"cvssMetricV31"`
	CvssMetricV2  []CvssMetricV2  `json:"cvssMetricV2"`
}

// CvssMetricV31 is a CVSS v3.1 scoring block.
type CvssMetricV31 struct {
	CvssData CvssDataV31 `json:"cvssData"`
}

// CvssDataV31 carries the v3.1 base score and severity. Pointers distinguish
// absent fields from zero values.
type CvssDataV31 struct {
	BaseScore    *float64 `json:"baseScore"`
	BaseSeverity string   `json:"baseSeverity"`
}

// CvssMetricV2 is a legacy CVSS v2 scoring block; severity lives one level
// above the score in this scheme.
type CvssMetricV2 struct {
	CvssData     CvssDataV2 `json:"cvssData"`
	BaseSeverity string     `json:"baseSeverity"`
}

// CvssDataV2 carries the v2 base score.
type CvssDataV2 struct {
	BaseScore *float64 `json:"baseScore"`
}

// page is the wire shape of one feed response.
type page struct {
	TotalResults    int `json:"totalResults"`
	Vulnerabilities []struct {
		Cve Record `json:"cve"`
	} `json:"vulnerabilities"`
}
