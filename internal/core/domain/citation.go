package domain

// Citation is the externally visible evidence reference attached to an
// answer. IDs are sequential and 1-based within one answer; no two citations
// of the same answer share an OriginID.
type Citation struct {
	ID       int        `json:"id"`
	Label    string     `json:"label"`
	Title    string     `json:"title"`
	Section  string     `json:"section,omitempty"`
	URL      string     `json:"url,omitempty"`
	Preview  string     `json:"preview"`
	Kind     SourceKind `json:"source_kind"`
	OriginID string     `json:"-"`
}
