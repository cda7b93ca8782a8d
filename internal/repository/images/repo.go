// Package images is the relational store for uploaded image records.
package images

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/carlens/internal/domain"
	"github.com/kailas-cloud/carlens/internal/domain/image"
)

const schema = `
CREATE TABLE IF NOT EXISTS images (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	vector_id     TEXT    NOT NULL UNIQUE,
	filename      TEXT    NOT NULL,
	original_name TEXT    NOT NULL,
	file_path     TEXT    NOT NULL,
	file_size     INTEGER NOT NULL,
	mime_type     TEXT    NOT NULL,
	width         INTEGER NOT NULL DEFAULT 0,
	height        INTEGER NOT NULL DEFAULT 0,
	tags          TEXT    NOT NULL DEFAULT '[]',
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_images_file_path     ON images(file_path);
CREATE INDEX IF NOT EXISTS idx_images_original_name ON images(original_name);
`

// Repo stores image records in SQLite via sqlx.
type Repo struct {
	db *sqlx.DB
}

// Open connects to the SQLite database and ensures the schema exists.
func Open(path string) (*Repo, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent imports.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate images schema: %w", err)
	}
	return &Repo{db: db}, nil
}

// Close releases the database handle.
func (r *Repo) Close() error {
	return r.db.Close()
}

type row struct {
	ID           int64     `db:"id"`
	VectorID     string    `db:"vector_id"`
	Filename     string    `db:"filename"`
	OriginalName string    `db:"original_name"`
	FilePath     string    `db:"file_path"`
	FileSize     int64     `db:"file_size"`
	MimeType     string    `db:"mime_type"`
	Width        int       `db:"width"`
	Height       int       `db:"height"`
	Tags         string    `db:"tags"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (rw *row) toRecord() image.Record {
	var tags []string
	_ = json.Unmarshal([]byte(rw.Tags), &tags)
	return image.Reconstruct(
		rw.ID, rw.VectorID, rw.Filename, rw.OriginalName, rw.FilePath,
		rw.FileSize, rw.MimeType, rw.Width, rw.Height,
		tags, rw.CreatedAt, rw.UpdatedAt,
	)
}

func tagsJSON(rec *image.Record) string {
	data, _ := json.Marshal(rec.Tags())
	return string(data)
}

// Create inserts a record and sets its store-assigned ID.
func (r *Repo) Create(ctx context.Context, rec *image.Record) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO images (vector_id, filename, original_name, file_path, file_size, mime_type, width, height, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.VectorID(), rec.Filename(), rec.OriginalName(), rec.FilePath(),
		rec.FileSize(), rec.MimeType(), rec.Width(), rec.Height(),
		tagsJSON(rec), rec.CreatedAt(), rec.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("vector id %s: %w", rec.VectorID(), domain.ErrDuplicateImage)
		}
		return fmt.Errorf("insert image: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("image insert id: %w", err)
	}
	rec.SetID(id)
	return nil
}

// Get returns a record by ID.
func (r *Repo) Get(ctx context.Context, id int64) (image.Record, error) {
	return r.one(ctx, `SELECT * FROM images WHERE id = ?`, id)
}

// FindByVectorID returns a record by its vector index key.
func (r *Repo) FindByVectorID(ctx context.Context, vectorID string) (image.Record, error) {
	return r.one(ctx, `SELECT * FROM images WHERE vector_id = ?`, vectorID)
}

// FindByFilePath returns a record by stored file path.
func (r *Repo) FindByFilePath(ctx context.Context, filePath string) (image.Record, error) {
	return r.one(ctx, `SELECT * FROM images WHERE file_path = ?`, filePath)
}

// FindByOriginalName returns a record by the uploader-supplied filename.
func (r *Repo) FindByOriginalName(ctx context.Context, originalName string) (image.Record, error) {
	return r.one(ctx, `SELECT * FROM images WHERE original_name = ? ORDER BY id LIMIT 1`, originalName)
}

func (r *Repo) one(ctx context.Context, query string, arg any) (image.Record, error) {
	var rw row
	if err := r.db.GetContext(ctx, &rw, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return image.Record{}, domain.ErrImageNotFound
		}
		return image.Record{}, fmt.Errorf("select image: %w", err)
	}
	return rw.toRecord(), nil
}

// List returns records ordered by newest first.
func (r *Repo) List(ctx context.Context, offset, limit int) ([]image.Record, error) {
	var rows []row
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM images ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	out := make([]image.Record, len(rows))
	for i := range rows {
		out[i] = rows[i].toRecord()
	}
	return out, nil
}

// Count returns the total number of records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM images`); err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return n, nil
}

// UpdateTags persists the record's current tag set and updated_at.
func (r *Repo) UpdateTags(ctx context.Context, rec *image.Record) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE images SET tags = ?, updated_at = ? WHERE id = ?`,
		tagsJSON(rec), rec.UpdatedAt(), rec.ID())
	if err != nil {
		return fmt.Errorf("update image tags: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update image tags: %w", err)
	}
	if n == 0 {
		return domain.ErrImageNotFound
	}
	return nil
}

// Delete removes a record by ID.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if n == 0 {
		return domain.ErrImageNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
