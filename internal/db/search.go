package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string

	// TagFilter restricts candidates to hashes whose TagField contains at
	// least one of the given values (OR semantics). Empty means no filter.
	TagFilter []string
	TagField  string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// Distance is the raw vector distance; HasDistance is false when the
// server did not report one.
type SearchEntry struct {
	Key         string
	Distance    float64
	HasDistance bool
	Fields      map[string]string
}
