// Package image defines the uploaded image aggregate.
package image

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/carlens/internal/domain"
)

// MaxFileSize is the maximum accepted upload size in bytes.
const MaxFileSize = 10 << 20 // 10MB

// Record is the per-upload image aggregate. Tags are mutable after
// creation; every mutation must be re-synced into the vector index.
type Record struct {
	id           int64
	vectorID     string
	filename     string
	originalName string
	filePath     string
	fileSize     int64
	mimeType     string
	width        int
	height       int
	tags         []string
	createdAt    time.Time
	updatedAt    time.Time
}

// New validates and creates a Record. Tags are lowercased and deduplicated.
func New(vectorID, filename, originalName, filePath string, fileSize int64, mimeType string, width, height int, tags []string) (Record, error) {
	if vectorID == "" {
		return Record{}, fmt.Errorf("vector ID is required")
	}
	if filename == "" {
		return Record{}, fmt.Errorf("filename is required")
	}
	if filePath == "" {
		return Record{}, fmt.Errorf("file path is required")
	}
	if fileSize <= 0 {
		return Record{}, fmt.Errorf("file size must be positive")
	}
	if fileSize > MaxFileSize {
		return Record{}, fmt.Errorf("%w (max %d bytes)", domain.ErrFileTooLarge, int64(MaxFileSize))
	}
	now := time.Now().UTC()
	return Record{
		vectorID:     vectorID,
		filename:     filename,
		originalName: originalName,
		filePath:     filePath,
		fileSize:     fileSize,
		mimeType:     mimeType,
		width:        width,
		height:       height,
		tags:         NormalizeTags(tags),
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(
	id int64, vectorID, filename, originalName, filePath string,
	fileSize int64, mimeType string, width, height int,
	tags []string, createdAt, updatedAt time.Time,
) Record {
	return Record{
		id: id, vectorID: vectorID, filename: filename, originalName: originalName,
		filePath: filePath, fileSize: fileSize, mimeType: mimeType,
		width: width, height: height, tags: tags,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the store-assigned identifier.
func (r *Record) ID() int64 { return r.id }

// VectorID returns the vector index key.
func (r *Record) VectorID() string { return r.vectorID }

// Filename returns the stored filename.
func (r *Record) Filename() string { return r.filename }

// OriginalName returns the filename supplied by the uploader.
func (r *Record) OriginalName() string { return r.originalName }

// FilePath returns the on-disk path of the stored file.
func (r *Record) FilePath() string { return r.filePath }

// FileSize returns the file size in bytes.
func (r *Record) FileSize() int64 { return r.fileSize }

// MimeType returns the detected content type.
func (r *Record) MimeType() string { return r.mimeType }

// Width returns the image width in pixels.
func (r *Record) Width() int { return r.width }

// Height returns the image height in pixels.
func (r *Record) Height() int { return r.height }

// Tags returns a copy of the current tag set.
func (r *Record) Tags() []string {
	out := make([]string, len(r.tags))
	copy(out, r.tags)
	return out
}

// CreatedAt returns the creation timestamp.
func (r *Record) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last mutation timestamp.
func (r *Record) UpdatedAt() time.Time { return r.updatedAt }

// SetID sets the store-assigned identifier after insert.
func (r *Record) SetID(id int64) { r.id = id }

// AddTag appends a tag. Returns an error if the normalized tag is empty
// or already present.
func (r *Record) AddTag(tag string) error {
	t := normalizeTag(tag)
	if t == "" {
		return fmt.Errorf("empty tag: %w", domain.ErrInvalidTag)
	}
	for _, existing := range r.tags {
		if existing == t {
			return fmt.Errorf("tag %q: %w", t, domain.ErrTagExists)
		}
	}
	r.tags = append(r.tags, t)
	r.touch()
	return nil
}

// RemoveTag deletes a tag. Returns an error if the tag is not present.
func (r *Record) RemoveTag(tag string) error {
	t := normalizeTag(tag)
	for i, existing := range r.tags {
		if existing == t {
			r.tags = append(r.tags[:i], r.tags[i+1:]...)
			r.touch()
			return nil
		}
	}
	return fmt.Errorf("tag %q: %w", t, domain.ErrTagNotFound)
}

// ReplaceTags swaps the whole tag set.
func (r *Record) ReplaceTags(tags []string) {
	r.tags = NormalizeTags(tags)
	r.touch()
}

func (r *Record) touch() {
	r.updatedAt = time.Now().UTC()
	if r.updatedAt.Before(r.createdAt) {
		r.updatedAt = r.createdAt
	}
}

// NormalizeTags lowercases, trims and deduplicates preserving order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		t := normalizeTag(tag)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
