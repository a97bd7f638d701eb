package model

// Document is the canonical, index-ready form of one CVE record.
// It is derived deterministically from a feed record and never hand-edited;
// the index holds at most one Document per CveID at any time.
type Document struct {
	CveID    string           `json:"cveId"`
	Text     string           `json:"text"`
	Metadata DocumentMetadata `json:"metadata"`
}

// DocumentMetadata carries the structured attributes stored alongside the
// rendered text. All fields are always populated; absent severity data is
// represented by the "N/A" sentinel rather than an empty field.
type DocumentMetadata struct {
	CveID        string `json:"cve_id"`
	Published    string `json:"published"`
	LastModified string `json:"lastModified"`
	VulnStatus   string `json:"vulnStatus"`
	CvssScore    string `json:"cvss_score"`
	CvssSeverity string `json:"cvss_severity"`
	Source       string `json:"source"`
	Year         string `json:"year"`
}

// SearchHit is one ranked retrieval result.
type SearchHit struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// ConversationTurn is one prior message in a chat session. Turns are
// caller-supplied per request and never persisted.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SourceRef is the display form of one retrieved document.
type SourceRef struct {
	CveID              string `json:"cve_id"`
	Severity           string `json:"severity"`
	Score              string `json:"score"`
	Status             string `json:"status"`
	Published          string `json:"published"`
	Year               string `json:"year"`
	DescriptionPreview string `json:"description_preview"`
}

// Answer is the result of one retrieval-augmented query.
type Answer struct {
	Question string      `json:"query"`
	Text     string      `json:"answer"`
	Sources  []SourceRef `json:"sources"`
}
