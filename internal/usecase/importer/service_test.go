package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carlens/internal/domain"
	"github.com/kailas-cloud/carlens/internal/domain/image"
	"github.com/kailas-cloud/carlens/internal/domain/job"
	"github.com/kailas-cloud/carlens/internal/usecase/images"
)

type mockUploader struct {
	mu          sync.Mutex
	uploaded    []string
	sourcePaths map[string]string
	errFor      map[string]error
	delay       time.Duration
}

func (m *mockUploader) Upload(_ context.Context, in images.UploadInput) (image.Record, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errFor[in.OriginalName]; ok {
		return image.Record{}, err
	}
	m.uploaded = append(m.uploaded, in.OriginalName)
	if m.sourcePaths == nil {
		m.sourcePaths = make(map[string]string)
	}
	m.sourcePaths[in.OriginalName] = in.SourcePath
	rec, _ := image.New("vec-"+in.OriginalName, "f.jpg", in.OriginalName, "p/f.jpg", 1, "image/jpeg", 1, 1, in.Tags)
	return rec, nil
}

type mockFiles struct {
	data   map[string][]byte
	errFor map[string]error
}

func (m *mockFiles) Read(path string) ([]byte, error) {
	if err, ok := m.errFor[path]; ok {
		return nil, err
	}
	if d, ok := m.data[path]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("no such file %s", path)
}

func newTestService(t *testing.T, up *mockUploader, files *mockFiles) *Service {
	t.Helper()
	s, err := New(up, files, Config{Workers: 2, MaxRows: 100}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func waitFinished(t *testing.T, s *Service, id string) job.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := s.Status(id)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if snap.State.Finished() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return job.Snapshot{}
}

func TestParseCSV(t *testing.T) {
	rows, err := parseCSV([]byte("path,tags\nimgs/a.jpg,red;suv\nimgs/b.jpg,\n"), 10)
	if err != nil {
		t.Fatalf("parseCSV() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (header skipped)", len(rows))
	}
	if rows[0].Name != "a.jpg" || len(rows[0].Tags) != 2 || rows[0].Tags[0] != "red" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if len(rows[1].Tags) != 0 {
		t.Errorf("row 1 tags = %v, want none", rows[1].Tags)
	}
}

func TestParseCSV_RowLimit(t *testing.T) {
	_, err := parseCSV([]byte("a.jpg\nb.jpg\nc.jpg\n"), 2)
	if err == nil {
		t.Error("parseCSV() error = nil, want row limit failure")
	}
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := parseCSV([]byte("path,tags\n"), 10)
	if err == nil {
		t.Error("parseCSV() error = nil, want empty csv failure")
	}
}

func TestImport_MixedOutcomes(t *testing.T) {
	up := &mockUploader{errFor: map[string]error{
		"dup.jpg": domain.ErrDuplicateImage,
		"bad.jpg": errors.New("encoder down"),
	}}
	files := &mockFiles{data: map[string][]byte{
		"ok.jpg":      []byte("x"),
		"dup.jpg":     []byte("x"),
		"bad.jpg":     []byte("x"),
		"missing.jpg": nil,
	}, errFor: map[string]error{"missing.jpg": errors.New("enoent")}}
	s := newTestService(t, up, files)

	id, err := s.StartCSV([]byte("ok.jpg,red\ndup.jpg\nbad.jpg\nmissing.jpg\n"))
	if err != nil {
		t.Fatalf("StartCSV() error = %v", err)
	}

	snap := waitFinished(t, s, id)
	if snap.State != job.StateCompleted {
		t.Errorf("state = %s, want completed", snap.State)
	}
	if snap.Total != 4 || snap.Processed != 4 {
		t.Errorf("total/processed = %d/%d, want 4/4", snap.Total, snap.Processed)
	}
	if snap.Succeeded != 1 || len(snap.Results) != 1 {
		t.Errorf("succeeded = %d results = %v, want 1", snap.Succeeded, snap.Results)
	}
	if len(snap.Skipped) != 1 || snap.Skipped[0].Name != "dup.jpg" {
		t.Errorf("skipped = %+v, want dup.jpg", snap.Skipped)
	}
	if len(snap.Errors) != 2 {
		t.Errorf("errors = %+v, want bad.jpg and missing.jpg", snap.Errors)
	}
	// The row path travels with the upload so path-based dedupe works.
	if up.sourcePaths["ok.jpg"] != "ok.jpg" {
		t.Errorf("source path = %q, want the CSV row path", up.sourcePaths["ok.jpg"])
	}
}

func TestImport_CancelBetweenItems(t *testing.T) {
	up := &mockUploader{delay: 20 * time.Millisecond}
	files := &mockFiles{data: map[string][]byte{}}
	var csv []byte
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("img%02d.jpg", i)
		files.data[name] = []byte("x")
		csv = append(csv, []byte(name+"\n")...)
	}
	s := newTestService(t, up, files)

	id, err := s.StartCSV(csv)
	if err != nil {
		t.Fatalf("StartCSV() error = %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if err := s.Cancel(id); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	snap := waitFinished(t, s, id)
	if snap.State != job.StateCancelled {
		t.Errorf("state = %s, want cancelled", snap.State)
	}
	if snap.Processed >= snap.Total {
		t.Errorf("processed = %d of %d, want early stop", snap.Processed, snap.Total)
	}

	if err := s.Cancel(id); !errors.Is(err, domain.ErrJobFinished) {
		t.Errorf("second Cancel() error = %v, want ErrJobFinished", err)
	}
}

func TestCancel_UnknownJob(t *testing.T) {
	s := newTestService(t, &mockUploader{}, &mockFiles{})

	if err := s.Cancel("nope"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("Cancel() error = %v, want ErrJobNotFound", err)
	}
}

func TestStatus_UnknownJob(t *testing.T) {
	s := newTestService(t, &mockUploader{}, &mockFiles{})

	if _, err := s.Status("nope"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("Status() error = %v, want ErrJobNotFound", err)
	}
}

func TestListAndStats(t *testing.T) {
	up := &mockUploader{}
	files := &mockFiles{data: map[string][]byte{"a.jpg": []byte("x")}}
	s := newTestService(t, up, files)

	id, err := s.StartCSV([]byte("a.jpg\n"))
	if err != nil {
		t.Fatalf("StartCSV() error = %v", err)
	}
	waitFinished(t, s, id)

	jobs := s.List()
	if len(jobs) != 1 || jobs[0].ID != id {
		t.Errorf("List() = %+v", jobs)
	}
	st := s.Stats()
	if st.Completed != 1 {
		t.Errorf("Stats() = %+v, want one completed", st)
	}
}
