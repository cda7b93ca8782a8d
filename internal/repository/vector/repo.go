// Package vector is the vector index repository: one hash per image with
// the embedding plus denormalized attributes for retrieval-time
// enrichment without a relational join.
package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/carlens/internal/db"
	"github.com/kailas-cloud/carlens/internal/domain"
	"github.com/kailas-cloud/carlens/internal/domain/search"
)

const indexName = "idx:carlens:images"

// store is the consumer interface for the vector repository (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Attrs are the denormalized image attributes stored alongside the vector.
type Attrs struct {
	Filename     string
	OriginalName string
	FilePath     string
	Tags         []string
	UploadedAt   int64 // unix millis
}

// Repo manages image vectors in the FT index.
type Repo struct {
	store     store
	keyPrefix string
	width     int
}

// New creates the vector repository. width is the index-wide vector
// length; every stored and queried vector is normalized to it.
func New(s store, keyPrefix string, width int) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix + "img:", width: width}
}

// Width returns the fixed index vector width.
func (r *Repo) Width() int { return r.width }

// EnsureIndex creates the FT index if it does not exist.
func (r *Repo) EnsureIndex(ctx context.Context, hnswM, hnswEFConstruct int) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("probe index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(indexName).
		Prefix(r.keyPrefix).
		TagWithOpts("tags", ",", false).
		Numeric("uploaded_at").
		VectorHNSW("vector", r.width, db.DistanceCosine, hnswM, hnswEFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && err != db.ErrIndexExists {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Upsert stores the vector and attributes under the given ID.
func (r *Repo) Upsert(ctx context.Context, id string, vector []float32, attrs Attrs) error {
	vec := domain.NormalizeDim(vector, r.width)
	fields := map[string]string{
		"vector":        vectorToBytes(vec),
		"filename":      attrs.Filename,
		"original_name": attrs.OriginalName,
		"file_path":     attrs.FilePath,
		"tags":          strings.Join(attrs.Tags, ","),
		"uploaded_at":   strconv.FormatInt(attrs.UploadedAt, 10),
	}
	if err := r.store.HSet(ctx, r.key(id), fields); err != nil {
		return fmt.Errorf("upsert vector %s: %w", id, err)
	}
	return nil
}

// UpdateTags re-syncs only the tag attribute of an existing entry.
func (r *Repo) UpdateTags(ctx context.Context, id string, tags []string) error {
	exists, err := r.store.Exists(ctx, r.key(id))
	if err != nil {
		return fmt.Errorf("probe vector %s: %w", id, err)
	}
	if !exists {
		return domain.ErrImageNotFound
	}
	if err := r.store.HSet(ctx, r.key(id), map[string]string{"tags": strings.Join(tags, ",")}); err != nil {
		return fmt.Errorf("update vector tags %s: %w", id, err)
	}
	return nil
}

// Delete removes an entry from the index.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.key(id)); err != nil {
		return fmt.Errorf("delete vector %s: %w", id, err)
	}
	return nil
}

// Count returns the number of indexed images.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count vectors: %w: %v", domain.ErrRetrieval, err)
	}
	return n, nil
}

// NearestNeighbors returns up to k candidates ordered by vector distance,
// dropping anything beyond maxDistance. An optional tag filter restricts
// candidates to entries sharing at least one tag (OR semantics); those
// hits are marked with the tag-filtered search type.
func (r *Repo) NearestNeighbors(ctx context.Context, vector []float32, k int, maxDistance float64, tagFilter []string) ([]search.Candidate, error) {
	vec := domain.NormalizeDim(vector, r.width)

	q := &db.KNNQuery{
		IndexName:    indexName,
		Vector:       vec,
		K:            k,
		ReturnFields: []string{"__vector_score", "vector", "filename", "original_name", "file_path", "tags", "uploaded_at"},
	}
	searchType := search.TypeSemantic
	if len(tagFilter) > 0 {
		q.TagField = "tags"
		q.TagFilter = tagFilter
		searchType = search.TypeTagFiltered
	}

	res, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w: %v", domain.ErrRetrieval, err)
	}

	out := make([]search.Candidate, 0, len(res.Entries))
	for _, e := range res.Entries {
		if e.HasDistance && e.Distance > maxDistance {
			continue
		}
		out = append(out, search.Candidate{
			VectorID:     strings.TrimPrefix(e.Key, r.keyPrefix),
			Distance:     e.Distance,
			HasDistance:  e.HasDistance,
			Vector:       bytesToVector(e.Fields["vector"]),
			Filename:     e.Fields["filename"],
			OriginalName: e.Fields["original_name"],
			FilePath:     e.Fields["file_path"],
			Tags:         splitTags(e.Fields["tags"]),
			SearchType:   searchType,
			UploadedAt:   parseMillis(e.Fields["uploaded_at"]),
		})
	}
	return out, nil
}

func (r *Repo) key(id string) string {
	return r.keyPrefix + id
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func parseMillis(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(s string) []float32 {
	if len(s) == 0 || len(s)%4 != 0 {
		return nil
	}
	v := make([]float32, len(s)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(s[i*4 : i*4+4])))
	}
	return v
}
