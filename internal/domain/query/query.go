// Package query defines the ephemeral per-search query context.
package query

// Intent is the structured vocabulary extraction from a raw query.
// Lists keep duplicates in detection order.
type Intent struct {
	Color       []string `json:"color"`
	VehicleType []string `json:"vehicleType"`
	Features    []string `json:"features"`
	Brand       []string `json:"brand"`
	Style       []string `json:"style"`
	Performance []string `json:"performance"`
}

// Terms flattens the intent lists used for lexical tag filtering.
// Vehicle types are deliberately excluded; they over-match as filters.
func (i Intent) Terms() []string {
	out := make([]string, 0, len(i.Color)+len(i.Features)+len(i.Brand)+len(i.Style)+len(i.Performance))
	out = append(out, i.Color...)
	out = append(out, i.Features...)
	out = append(out, i.Brand...)
	out = append(out, i.Style...)
	out = append(out, i.Performance...)
	return out
}

// Context carries one search request through the pipeline stages.
type Context struct {
	RawQuery           string
	EnhancedQuery      string
	Variations         []string
	Intent             Intent
	ExtractedTags      []string
	Embedding          []float32
	UsedColorHistogram bool
}
