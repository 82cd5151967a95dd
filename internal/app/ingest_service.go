package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"docassist/internal/metrics"
	"docassist/internal/model"
)

const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

type JobPublisher interface {
	PublishIngestJob(ctx context.Context, job model.IngestJob) error
}

type JobStatus struct {
	ID        string        `json:"id"`
	Status    string        `json:"status"`
	Files     []string      `json:"files"`
	Result    *IngestResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IngestService stages uploads on disk and hands them to a queue so the
// request returns before indexing finishes. Job status lives in memory.
type IngestService struct {
	docs       *DocumentService
	publisher  JobPublisher
	stagingDir string
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time

	mu   sync.RWMutex
	jobs map[string]*JobStatus
}

func NewIngestService(docs *DocumentService, publisher JobPublisher, stagingDir string, m *metrics.Metrics, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		docs:       docs,
		publisher:  publisher,
		stagingDir: stagingDir,
		metrics:    m,
		logger:     logger.With("component", "ingest"),
		now:        time.Now,
		jobs:       make(map[string]*JobStatus),
	}
}

func (s *IngestService) Submit(ctx context.Context, files []UploadFile) (*JobStatus, error) {
	if len(files) == 0 {
		return nil, ErrInvalidInput
	}

	job := model.IngestJob{ID: uuid.NewString(), CreatedAt: s.now()}
	dir := filepath.Join(s.stagingDir, job.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir failed: %w", err)
	}
	names := make([]string, 0, len(files))
	for i, f := range files {
		// prefix keeps duplicate names apart
		path := filepath.Join(dir, fmt.Sprintf("%03d_%s", i, filepath.Base(f.Name)))
		if err := os.WriteFile(path, f.Data, 0o600); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("stage file %s failed: %w", f.Name, err)
		}
		job.Files = append(job.Files, model.StagedFile{Name: f.Name, Path: path})
		names = append(names, f.Name)
	}

	status := &JobStatus{
		ID:        job.ID,
		Status:    JobQueued,
		Files:     names,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.CreatedAt,
	}
	// snapshot before publishing: a worker may start updating the status at once
	s.mu.Lock()
	s.jobs[job.ID] = status
	queued := s.snapshot(status)
	s.mu.Unlock()

	if err := s.publisher.PublishIngestJob(ctx, job); err != nil {
		_ = os.RemoveAll(dir)
		s.mu.Lock()
		delete(s.jobs, job.ID)
		s.mu.Unlock()
		return nil, err
	}
	s.logger.Info("ingest job queued", "job_id", job.ID, "files", len(files))
	return queued, nil
}

// Process runs one queued job to completion. The job's outcome is recorded
// in its status; the returned error only signals that processing failed.
func (s *IngestService) Process(ctx context.Context, job model.IngestJob) error {
	s.update(job, func(st *JobStatus) { st.Status = JobRunning })
	defer func() {
		if len(job.Files) > 0 {
			_ = os.RemoveAll(filepath.Dir(job.Files[0].Path))
		}
	}()

	files := make([]UploadFile, 0, len(job.Files))
	for _, staged := range job.Files {
		data, err := os.ReadFile(staged.Path)
		if err != nil {
			s.fail(job, fmt.Errorf("read staged file %s failed: %w", staged.Name, err))
			return err
		}
		files = append(files, UploadFile{Name: staged.Name, Data: data})
	}

	result, err := s.docs.UploadAndAttach(ctx, files)
	if err != nil {
		s.update(job, func(st *JobStatus) { st.Result = result })
		s.fail(job, err)
		return err
	}

	s.update(job, func(st *JobStatus) {
		st.Status = JobSucceeded
		st.Result = result
	})
	s.metrics.IngestJobFinished(JobSucceeded)
	s.logger.Info("ingest job finished", "job_id", job.ID, "documents", len(result.Documents), "failed", len(result.Failed))
	return nil
}

func (s *IngestService) Job(id string) (*JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return s.snapshot(status), nil
}

func (s *IngestService) fail(job model.IngestJob, err error) {
	s.update(job, func(st *JobStatus) {
		st.Status = JobFailed
		st.Error = err.Error()
	})
	s.metrics.IngestJobFinished(JobFailed)
	s.logger.Warn("ingest job failed", "job_id", job.ID, "err", err)
}

// update also registers jobs this process did not submit, e.g. after a restart.
func (s *IngestService) update(job model.IngestJob, mutate func(st *JobStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.jobs[job.ID]
	if !ok {
		status = &JobStatus{ID: job.ID, CreatedAt: job.CreatedAt}
		for _, f := range job.Files {
			status.Files = append(status.Files, f.Name)
		}
		s.jobs[job.ID] = status
	}
	mutate(status)
	status.UpdatedAt = s.now()
}

func (s *IngestService) snapshot(status *JobStatus) *JobStatus {
	copied := *status
	copied.Files = append([]string(nil), status.Files...)
	return &copied
}
