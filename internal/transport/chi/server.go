// Package chi exposes the HTTP API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/carlens/internal/domain"
	"github.com/kailas-cloud/carlens/internal/domain/image"
	"github.com/kailas-cloud/carlens/internal/domain/job"
	"github.com/kailas-cloud/carlens/internal/domain/query"
	domsearch "github.com/kailas-cloud/carlens/internal/domain/search"
	healthuc "github.com/kailas-cloud/carlens/internal/usecase/health"
	imagesuc "github.com/kailas-cloud/carlens/internal/usecase/images"
	importeruc "github.com/kailas-cloud/carlens/internal/usecase/importer"
	searchuc "github.com/kailas-cloud/carlens/internal/usecase/search"
)

// maxCSVSize bounds import uploads.
const maxCSVSize = 10 << 20

// Error codes returned in the JSON error envelope.
const (
	codeBadRequest        = "bad_request"
	codeUnauthorized      = "unauthorized"
	codeInvalidQuery      = "invalid_query"
	codeUnsupportedFormat = "unsupported_format"
	codeFileTooLarge      = "file_too_large"
	codeImageNotFound     = "image_not_found"
	codeDuplicateImage    = "duplicate_image"
	codeInvalidTag        = "invalid_tag"
	codeTagExists         = "tag_exists"
	codeTagNotFound       = "tag_not_found"
	codeJobNotFound       = "job_not_found"
	codeJobFinished       = "job_finished"
	codeEncodingFailed    = "encoding_failed"
	codeRetrievalFailed   = "retrieval_failed"
	codeInternalError     = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Searcher runs the search pipeline.
type Searcher interface {
	Search(ctx context.Context, rawQuery string, opts searchuc.Options) (*domsearch.Response, error)
}

// QueryAnalyzer exposes the query enhancement primitives.
type QueryAnalyzer interface {
	AnalyzeIntent(raw string) query.Intent
	Enhance(raw string) string
	ExtractTags(raw string) []string
	Suggestions(partial string) []string
}

// ImageManager manages stored images and their tags.
type ImageManager interface {
	Upload(ctx context.Context, in imagesuc.UploadInput) (image.Record, error)
	Get(ctx context.Context, id int64) (image.Record, error)
	List(ctx context.Context, offset, limit int) ([]image.Record, int, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id int64) error
	AddTag(ctx context.Context, id int64, tag string) (image.Record, error)
	RemoveTag(ctx context.Context, id int64, tag string) (image.Record, error)
	ReplaceTags(ctx context.Context, id int64, tags []string) (image.Record, error)
}

// ImportManager runs and tracks CSV bulk import jobs.
type ImportManager interface {
	StartCSV(csvData []byte) (string, error)
	Status(id string) (job.Snapshot, error)
	Cancel(id string) error
	List() []job.Snapshot
	Stats() importeruc.Stats
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// VectorCounter reports the vector index size for stats.
type VectorCounter interface {
	Count(ctx context.Context) (int, error)
}

// Server wires the use case services into HTTP handlers.
type Server struct {
	search        Searcher
	images        ImageManager
	importer      ImportManager
	enhancer      QueryAnalyzer
	health        HealthChecker
	vectors       VectorCounter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	images ImageManager,
	importer ImportManager,
	enhancer QueryAnalyzer,
	health HealthChecker,
	vectors VectorCounter,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		images:   images,
		importer: importer,
		enhancer: enhancer,
		health:   health,
		vectors:  vectors,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusBadRequest, codeUnsupportedFormat),
		sentinelHandler(domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, codeFileTooLarge),
		sentinelHandler(domain.ErrImageNotFound, http.StatusNotFound, codeImageNotFound),
		sentinelHandler(domain.ErrDuplicateImage, http.StatusConflict, codeDuplicateImage),
		sentinelHandler(domain.ErrInvalidTag, http.StatusBadRequest, codeInvalidTag),
		sentinelHandler(domain.ErrTagExists, http.StatusConflict, codeTagExists),
		sentinelHandler(domain.ErrTagNotFound, http.StatusNotFound, codeTagNotFound),
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound, codeJobNotFound),
		sentinelHandler(domain.ErrJobFinished, http.StatusConflict, codeJobFinished),
		sentinelHandler(domain.ErrEncoding, http.StatusBadGateway, codeEncodingFailed),
		sentinelHandler(domain.ErrDetection, http.StatusBadGateway, codeEncodingFailed),
		sentinelHandler(domain.ErrRetrieval, http.StatusBadGateway, codeRetrievalFailed),
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Get("/search/suggestions", s.Suggestions)
		r.Post("/search/analyze", s.Analyze)

		r.Post("/images", s.UploadImage)
		r.Get("/images", s.ListImages)
		r.Get("/images/{id}", s.GetImage)
		r.Delete("/images/{id}", s.DeleteImage)
		r.Post("/images/{id}/tags", s.AddTag)
		r.Put("/images/{id}/tags", s.ReplaceTags)
		r.Delete("/images/{id}/tags/{tag}", s.RemoveTag)

		r.Post("/import", s.StartImport)
		r.Get("/import/jobs", s.ListJobs)
		r.Get("/import/jobs/{id}", s.GetJob)
		r.Delete("/import/jobs/{id}", s.CancelJob)

		r.Get("/stats", s.Stats)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type searchRequest struct {
	Query           string   `json:"query"`
	Limit           int      `json:"limit"`
	MinSimilarity   *float64 `json:"minSimilarity"`
	UseHybridSearch bool     `json:"useHybridSearch"`
	SemanticWeight  float64  `json:"semanticWeight"`
	KeywordWeight   float64  `json:"keywordWeight"`
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	opts := searchuc.Options{
		Limit:           req.Limit,
		UseHybridSearch: req.UseHybridSearch,
		SemanticWeight:  req.SemanticWeight,
		KeywordWeight:   req.KeywordWeight,
	}
	if req.MinSimilarity != nil {
		if *req.MinSimilarity < 0 || *req.MinSimilarity > 1 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "minSimilarity must be between 0 and 1")
			return
		}
		opts.MinSimilarity = *req.MinSimilarity
		opts.HasMinSim = true
	}

	resp, err := s.search.Search(r.Context(), req.Query, opts)
	if err != nil {
		// Empty stored embeddings are a data defect, not a failed
		// request; answer with an explanatory zero-result payload.
		if errors.Is(err, domain.ErrEmptyEmbeddings) {
			writeJSON(w, http.StatusOK, &domsearch.Response{
				Query:        req.Query,
				Results:      []domsearch.ScoredResult{},
				SearchMethod: domsearch.MethodNone,
				Message:      "Stored image embeddings are empty. Re-import your images to rebuild the index.",
			})
			return
		}
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Suggestions handles GET /api/v1/search/suggestions.
func (s *Server) Suggestions(w http.ResponseWriter, r *http.Request) {
	partial := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": s.enhancer.Suggestions(partial),
	})
}

// Analyze handles POST /api/v1/search/analyze.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, "query is required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":         req.Query,
		"intent":        s.enhancer.AnalyzeIntent(req.Query),
		"enhancedQuery": s.enhancer.Enhance(req.Query),
		"extractedTags": s.enhancer.ExtractTags(req.Query),
		"suggestions":   s.enhancer.Suggestions(req.Query),
	})
}

// UploadImage handles POST /api/v1/images (multipart form).
func (s *Server) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(image.MaxFileSize + 1<<20); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "image file field is required")
		return
	}
	defer file.Close()

	data, err := readUpload(file)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	rec, err := s.images.Upload(r.Context(), imagesuc.UploadInput{
		OriginalName: header.Filename,
		Data:         data,
		Tags:         parseTagsField(r.FormValue("tags")),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/images/%d", rec.ID()))
	writeJSON(w, http.StatusCreated, imageToJSON(&rec))
}

// ListImages handles GET /api/v1/images.
func (s *Server) ListImages(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, total, err := s.images.List(r.Context(), offset, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]map[string]any, len(records))
	for i := range records {
		items[i] = imageToJSON(&records[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"total":  total,
		"offset": offset,
	})
}

// GetImage handles GET /api/v1/images/{id}.
func (s *Server) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}
	rec, err := s.images.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imageToJSON(&rec))
}

// DeleteImage handles DELETE /api/v1/images/{id}.
func (s *Server) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}
	if err := s.images.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTag handles POST /api/v1/images/{id}/tags.
func (s *Server) AddTag(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}
	var req struct {
		Tag string `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rec, err := s.images.AddTag(r.Context(), id, req.Tag)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imageToJSON(&rec))
}

// ReplaceTags handles PUT /api/v1/images/{id}/tags.
func (s *Server) ReplaceTags(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}
	var req struct {
		Tags []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rec, err := s.images.ReplaceTags(r.Context(), id, req.Tags)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imageToJSON(&rec))
}

// RemoveTag handles DELETE /api/v1/images/{id}/tags/{tag}.
func (s *Server) RemoveTag(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}
	tag := chi.URLParam(r, "tag")

	rec, err := s.images.RemoveTag(r.Context(), id, tag)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imageToJSON(&rec))
}

// StartImport handles POST /api/v1/import. Accepts either a multipart
// "file" field or a raw CSV body.
func (s *Server) StartImport(w http.ResponseWriter, r *http.Request) {
	data, err := readCSVUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	jobID, err := s.importer.StartCSV(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

// ListJobs handles GET /api/v1/import/jobs.
func (s *Server) ListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.importer.List()})
}

// GetJob handles GET /api/v1/import/jobs/{id}.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	snap, err := s.importer.Status(chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// CancelJob handles DELETE /api/v1/import/jobs/{id}.
func (s *Server) CancelJob(w http.ResponseWriter, r *http.Request) {
	if err := s.importer.Cancel(chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/v1/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	imageCount, err := s.images.Count(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	vectorCount, err := s.vectors.Count(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"images":  imageCount,
		"vectors": vectorCount,
		"jobs":    s.importer.Stats(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func imageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid image id")
		return 0, false
	}
	return id, true
}

func readUpload(file multipart.File) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(file, image.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > image.MaxFileSize {
		return nil, domain.ErrFileTooLarge
	}
	return data, nil
}

func readCSVUpload(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxCSVSize); err != nil {
			return nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("file field is required")
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxCSVSize))
	}
	return io.ReadAll(io.LimitReader(r.Body, maxCSVSize))
}

func parseTagsField(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func imageToJSON(rec *image.Record) map[string]any {
	return map[string]any{
		"id":           rec.ID(),
		"vectorId":     rec.VectorID(),
		"filename":     rec.Filename(),
		"originalName": rec.OriginalName(),
		"filePath":     rec.FilePath(),
		"fileSize":     rec.FileSize(),
		"mimeType":     rec.MimeType(),
		"width":        rec.Width(),
		"height":       rec.Height(),
		"tags":         rec.Tags(),
		"createdAt":    rec.CreatedAt().UTC().Format(time.RFC3339),
		"updatedAt":    rec.UpdatedAt().UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrUnsupportedFormat,
		domain.ErrFileTooLarge,
		domain.ErrImageNotFound,
		domain.ErrDuplicateImage,
		domain.ErrInvalidTag,
		domain.ErrTagExists,
		domain.ErrTagNotFound,
		domain.ErrJobNotFound,
		domain.ErrJobFinished,
		domain.ErrEncoding,
		domain.ErrDetection,
		domain.ErrRetrieval,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
