// Package images manages uploaded image records and keeps the relational
// store and the vector index in sync.
package images

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carlens/internal/domain"
	"github.com/kailas-cloud/carlens/internal/domain/image"
	"github.com/kailas-cloud/carlens/internal/imaging"
	"github.com/kailas-cloud/carlens/internal/repository/vector"
	"github.com/kailas-cloud/carlens/internal/usecase/embedding"
)

// allowedMimeTypes are the upload formats the encoder pipeline accepts.
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// UploadInput describes one incoming image.
type UploadInput struct {
	OriginalName string
	// SourcePath, when set, points at a file already on disk (bulk
	// import); the file is indexed in place instead of copied.
	SourcePath string
	Data       []byte
	Tags       []string
}

// Service coordinates image ingestion, lookup and tag editing.
type Service struct {
	repo    Repository
	index   VectorIndex
	embed   Embedder
	files   FileStore
	embOpts embedding.Options
	logger  *zap.Logger
}

// New creates the image service.
func New(repo Repository, index VectorIndex, embed Embedder, files FileStore, embOpts embedding.Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, index: index, embed: embed, files: files, embOpts: embOpts, logger: logger}
}

// Upload validates, stores, embeds and indexes one image.
func (s *Service) Upload(ctx context.Context, in UploadInput) (image.Record, error) {
	if len(in.Data) == 0 {
		return image.Record{}, fmt.Errorf("empty upload: %w", domain.ErrUnsupportedFormat)
	}
	if int64(len(in.Data)) > image.MaxFileSize {
		return image.Record{}, domain.ErrFileTooLarge
	}
	mime := imaging.SniffMimeType(in.Data)
	if !allowedMimeTypes[mime] {
		return image.Record{}, fmt.Errorf("mime %q: %w", mime, domain.ErrUnsupportedFormat)
	}

	if in.SourcePath != "" {
		if _, err := s.repo.FindByFilePath(ctx, in.SourcePath); err == nil {
			return image.Record{}, fmt.Errorf("file path %q: %w", in.SourcePath, domain.ErrDuplicateImage)
		} else if !errors.Is(err, domain.ErrImageNotFound) {
			return image.Record{}, fmt.Errorf("duplicate check: %w", err)
		}
	}
	if in.OriginalName != "" {
		if _, err := s.repo.FindByOriginalName(ctx, in.OriginalName); err == nil {
			return image.Record{}, fmt.Errorf("original name %q: %w", in.OriginalName, domain.ErrDuplicateImage)
		} else if !errors.Is(err, domain.ErrImageNotFound) {
			return image.Record{}, fmt.Errorf("duplicate check: %w", err)
		}
	}

	img, _, err := imaging.Decode(in.Data)
	if err != nil {
		return image.Record{}, err
	}
	bounds := img.Bounds()

	tags := image.NormalizeTags(in.Tags)
	vec, err := s.embed.EmbedEnhanced(ctx, in.Data, tags, s.embOpts)
	if err != nil {
		return image.Record{}, err
	}

	filename := uniqueFilename(in.OriginalName)
	path := in.SourcePath
	stored := path == ""
	if stored {
		var serr error
		path, serr = s.files.Save(filename, in.Data)
		if serr != nil {
			return image.Record{}, fmt.Errorf("store file: %w", serr)
		}
	}

	vectorID := strings.TrimSuffix(filename, filepath.Ext(filename))
	rec, err := image.New(vectorID, filename, in.OriginalName, path,
		int64(len(in.Data)), mime, bounds.Dx(), bounds.Dy(), tags)
	if err != nil {
		if stored {
			s.removeFile(path)
		}
		return image.Record{}, err
	}

	err = s.index.Upsert(ctx, vectorID, vec, vector.Attrs{
		Filename:     filename,
		OriginalName: in.OriginalName,
		FilePath:     path,
		Tags:         rec.Tags(),
		UploadedAt:   rec.CreatedAt().UnixMilli(),
	})
	if err != nil {
		if stored {
			s.removeFile(path)
		}
		return image.Record{}, fmt.Errorf("index image: %w", err)
	}

	if err := s.repo.Create(ctx, &rec); err != nil {
		// Roll back the index entry so search never returns an image
		// without a backing record.
		if derr := s.index.Delete(ctx, vectorID); derr != nil {
			s.logger.Error("orphaned vector entry after record insert failure",
				zap.String("vector_id", vectorID), zap.Error(derr))
		}
		if stored {
			s.removeFile(path)
		}
		return image.Record{}, err
	}

	s.logger.Info("image uploaded",
		zap.Int64("id", rec.ID()),
		zap.String("vector_id", vectorID),
		zap.Int("tags", len(rec.Tags())))
	return rec, nil
}

// Get returns one image record.
func (s *Service) Get(ctx context.Context, id int64) (image.Record, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of records plus the total count.
func (s *Service) List(ctx context.Context, offset, limit int) ([]image.Record, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	records, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Count returns the number of stored records.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Delete removes the image from the index, disk and store, in that
// order. Index and file failures are logged but do not block record
// removal.
func (s *Service) Delete(ctx context.Context, id int64) error {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.index.Delete(ctx, rec.VectorID()); err != nil {
		s.logger.Warn("delete vector entry failed",
			zap.String("vector_id", rec.VectorID()), zap.Error(err))
	}
	s.removeFile(rec.FilePath())

	return s.repo.Delete(ctx, id)
}

// AddTag appends a tag and re-syncs the index attributes.
func (s *Service) AddTag(ctx context.Context, id int64, tag string) (image.Record, error) {
	return s.editTags(ctx, id, func(rec *image.Record) error {
		return rec.AddTag(tag)
	})
}

// RemoveTag deletes a tag and re-syncs the index attributes.
func (s *Service) RemoveTag(ctx context.Context, id int64, tag string) (image.Record, error) {
	return s.editTags(ctx, id, func(rec *image.Record) error {
		return rec.RemoveTag(tag)
	})
}

// ReplaceTags swaps the whole tag set and re-syncs the index attributes.
func (s *Service) ReplaceTags(ctx context.Context, id int64, tags []string) (image.Record, error) {
	return s.editTags(ctx, id, func(rec *image.Record) error {
		rec.ReplaceTags(tags)
		return nil
	})
}

func (s *Service) editTags(ctx context.Context, id int64, mutate func(*image.Record) error) (image.Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return image.Record{}, err
	}
	if err := mutate(&rec); err != nil {
		return image.Record{}, err
	}
	if err := s.repo.UpdateTags(ctx, &rec); err != nil {
		return image.Record{}, err
	}
	// Index sync failure leaves stale search attributes but the record
	// is authoritative; log and serve.
	if err := s.index.UpdateTags(ctx, rec.VectorID(), rec.Tags()); err != nil {
		s.logger.Warn("vector tag sync failed",
			zap.String("vector_id", rec.VectorID()), zap.Error(err))
	}
	return rec, nil
}

func (s *Service) removeFile(path string) {
	if err := s.files.Remove(path); err != nil {
		s.logger.Warn("remove file failed", zap.String("path", path), zap.Error(err))
	}
}

// uniqueFilename builds "<unixms>_<hex8><ext>" from the original name.
func uniqueFilename(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".jpg"
	}
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), hex.EncodeToString(suffix), ext)
}
