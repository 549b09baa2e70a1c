package domain

// SourceKind identifies where a retrieval candidate came from. Raw scores
// from different kinds are not comparable with each other.
type SourceKind string

const (
	SourceVector SourceKind = "vector"
	SourceWeb    SourceKind = "web"
)

// Candidate is one retrieved unit of evidence, normalized across retrieval
// backends. Candidates live only for the duration of a pipeline run.
type Candidate struct {
	Text       string     `json:"text"`
	SourceKind SourceKind `json:"source_kind"`
	OriginID   string     `json:"origin_id"`
	Title      string     `json:"title"`
	Section    string     `json:"section,omitempty"`
	URL        string     `json:"url,omitempty"`
	RawScore   float64    `json:"raw_score"`
}

// RankedCandidate is a Candidate after cross-encoder reranking. RerankScore
// is comparable across source kinds; Rank is the 0-based final position.
type RankedCandidate struct {
	Candidate
	RerankScore float64 `json:"rerank_score"`
	Rank        int     `json:"rank"`
}
