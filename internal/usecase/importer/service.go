// Package importer runs CSV bulk import jobs on a shared worker pool
// with cooperative cancellation between items.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/carlens/internal/domain"
	"github.com/kailas-cloud/carlens/internal/domain/job"
	"github.com/kailas-cloud/carlens/internal/metrics"
	"github.com/kailas-cloud/carlens/internal/usecase/images"
)

const (
	// historyLimit caps retained finished jobs.
	historyLimit = 100
	// historyTTL prunes finished jobs regardless of count.
	historyTTL = 24 * time.Hour
)

// Config tunes the import runner.
type Config struct {
	Workers int
	MaxRows int
}

// Stats summarizes the job registry.
type Stats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Failed    int `json:"failed"`
}

// Service tracks import jobs and processes their rows.
type Service struct {
	uploader Uploader
	files    FileReader
	pool     *ants.Pool
	cfg      Config
	logger   *zap.Logger

	mu      sync.Mutex
	jobs    map[string]*job.Job
	cancels map[string]context.CancelFunc
}

// New creates the import service and its worker pool.
func New(uploader Uploader, files FileReader, cfg Config, logger *zap.Logger) (*Service, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create import pool: %w", err)
	}
	return &Service{
		uploader: uploader,
		files:    files,
		pool:     pool,
		cfg:      cfg,
		logger:   logger,
		jobs:     make(map[string]*job.Job),
		cancels:  make(map[string]context.CancelFunc),
	}, nil
}

// Close drains the worker pool.
func (s *Service) Close() {
	s.pool.Release()
}

// StartCSV parses the CSV, registers a job and starts processing in the
// background. Returns the job ID immediately.
func (s *Service) StartCSV(csvData []byte) (string, error) {
	rows, err := parseCSV(csvData, s.cfg.MaxRows)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	j := job.New(id, len(rows))

	// Jobs outlive the submitting request.
	jobCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.pruneLocked()
	s.jobs[id] = j
	s.cancels[id] = cancel
	s.mu.Unlock()

	go s.run(jobCtx, j, rows)

	s.logger.Info("import job started", zap.String("job_id", id), zap.Int("rows", len(rows)))
	return id, nil
}

// Status returns a job snapshot.
func (s *Service) Status(id string) (job.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return job.Snapshot{}, domain.ErrJobNotFound
	}
	return j.Snapshot(), nil
}

// Cancel requests cooperative cancellation of a job.
func (s *Service) Cancel(id string) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrJobNotFound
	}
	if j.State().Finished() {
		s.mu.Unlock()
		return domain.ErrJobFinished
	}
	err := j.Cancel()
	cancel := s.cancels[id]
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if cancel != nil {
		cancel()
	}
	s.logger.Info("import job cancelled", zap.String("job_id", id))
	return nil
}

// List returns snapshots of all tracked jobs, newest first.
func (s *Service) List() []job.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]job.Snapshot, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Snapshot())
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out
}

// Stats counts tracked jobs by state.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	for _, j := range s.jobs {
		switch j.State() {
		case job.StatePending:
			st.Pending++
		case job.StateRunning:
			st.Running++
		case job.StateCompleted:
			st.Completed++
		case job.StateCancelled:
			st.Cancelled++
		case job.StateFailed:
			st.Failed++
		}
	}
	return st
}

func (s *Service) run(ctx context.Context, j *job.Job, rows []Row) {
	s.mu.Lock()
	err := j.Start()
	s.mu.Unlock()
	if err != nil {
		// Cancelled before the goroutine got scheduled.
		s.mu.Lock()
		delete(s.cancels, j.ID())
		s.mu.Unlock()
		return
	}

	var wg sync.WaitGroup
	for i, row := range rows {
		// Cancellation is checked between items; in-flight items finish.
		if ctx.Err() != nil {
			break
		}
		i, row := i, row
		wg.Add(1)
		if perr := s.pool.Submit(func() {
			defer wg.Done()
			s.processRow(ctx, j, i, row)
		}); perr != nil {
			wg.Done()
			s.record(j, func() { j.RecordError(i, row.Name, perr.Error()) })
			metrics.ImportRowsTotal.WithLabelValues("failed").Inc()
		}
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if j.State() == job.StateRunning {
		if cerr := j.Complete(); cerr != nil {
			s.logger.Error("complete import job", zap.String("job_id", j.ID()), zap.Error(cerr))
		}
	}
	delete(s.cancels, j.ID())
	s.logger.Info("import job finished",
		zap.String("job_id", j.ID()),
		zap.String("state", string(j.State())),
		zap.Int("succeeded", j.Succeeded()),
		zap.Int("processed", j.Processed()))
}

func (s *Service) processRow(ctx context.Context, j *job.Job, i int, row Row) {
	data, err := s.files.Read(row.Path)
	if err != nil {
		s.record(j, func() { j.RecordError(i, row.Name, err.Error()) })
		metrics.ImportRowsTotal.WithLabelValues("failed").Inc()
		return
	}

	rec, err := s.uploader.Upload(ctx, images.UploadInput{
		OriginalName: row.Name,
		SourcePath:   row.Path,
		Data:         data,
		Tags:         row.Tags,
	})
	switch {
	case errors.Is(err, domain.ErrDuplicateImage):
		s.record(j, func() { j.RecordSkip(i, row.Name, "already imported") })
		metrics.ImportRowsTotal.WithLabelValues("skipped").Inc()
	case err != nil:
		s.record(j, func() { j.RecordError(i, row.Name, err.Error()) })
		metrics.ImportRowsTotal.WithLabelValues("failed").Inc()
	default:
		s.record(j, func() { j.RecordSuccess(rec.VectorID()) })
		metrics.ImportRowsTotal.WithLabelValues("imported").Inc()
	}
}

func (s *Service) record(j *job.Job, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// pruneLocked drops finished jobs beyond the history limit or TTL.
// Caller holds s.mu.
func (s *Service) pruneLocked() {
	type finished struct {
		id string
		at time.Time
	}
	var done []finished
	cutoff := time.Now().UTC().Add(-historyTTL)
	for id, j := range s.jobs {
		if !j.State().Finished() {
			continue
		}
		if j.FinishedAt().Before(cutoff) {
			delete(s.jobs, id)
			delete(s.cancels, id)
			continue
		}
		done = append(done, finished{id: id, at: j.FinishedAt()})
	}
	if len(done) <= historyLimit {
		return
	}
	sort.Slice(done, func(i, k int) bool { return done[i].at.Before(done[k].at) })
	for _, f := range done[:len(done)-historyLimit] {
		delete(s.jobs, f.id)
		delete(s.cancels, f.id)
	}
}
