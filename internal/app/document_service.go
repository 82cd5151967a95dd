package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"docassist/internal/ai"
	"docassist/internal/metrics"
	"docassist/internal/model"
	"docassist/internal/pkg/pdfextract"
	"docassist/internal/repository"
)

const (
	BindModeReplace = "replace"
	BindModeMerge   = "merge"
)

type DocumentOptions struct {
	AssistantID       string
	VectorStoreName   string
	ExpiryDays        int
	BatchPollInterval time.Duration
	BatchTimeout      time.Duration
	BindMode          string
	AllowedExtensions []string
	MaxFileBytes      int64
	UploadConcurrency int
	ValidatePDF       bool
}

// UploadFile is one file selected for ingestion.
type UploadFile struct {
	Name string
	Data []byte
}

type FailedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type IngestResult struct {
	VectorStoreID string           `json:"vector_store_id,omitempty"`
	BatchID       string           `json:"batch_id,omitempty"`
	Documents     []model.Document `json:"documents"`
	Failed        []FailedFile     `json:"failed"`
}

type ResetResult struct {
	Purged int `json:"purged"`
	Failed int `json:"failed"`
}

// DocumentService owns the vector store lifecycle: it creates or reuses the
// store, uploads files into it, binds it to the assistant and keeps the local
// document records in step.
type DocumentService struct {
	api     VectorStoresAPI
	store   *repository.DocumentStore
	opts    DocumentOptions
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	ensureMu sync.Mutex
}

func NewDocumentService(api VectorStoresAPI, store *repository.DocumentStore, opts DocumentOptions, m *metrics.Metrics, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.VectorStoreName == "" {
		opts.VectorStoreName = "Drug Approval Review Reports"
	}
	if opts.ExpiryDays <= 0 {
		opts.ExpiryDays = 30
	}
	if opts.BatchPollInterval <= 0 {
		opts.BatchPollInterval = 2 * time.Second
	}
	if opts.BindMode == "" {
		opts.BindMode = BindModeReplace
	}
	if opts.UploadConcurrency <= 0 {
		opts.UploadConcurrency = 1
	}
	return &DocumentService{
		api:     api,
		store:   store,
		opts:    opts,
		metrics: m,
		logger:  logger.With("component", "documents"),
		now:     time.Now,
	}
}

func (s *DocumentService) State() model.StoreState {
	return s.store.Current()
}

func (s *DocumentService) ListDocuments() []model.Document {
	return s.store.Current().Documents
}

func (s *DocumentService) StorePath() string {
	return s.store.Path()
}

// EnsureVectorStore returns a usable vector store id. A recorded store is
// reused when the remote service still knows it and has not expired it;
// otherwise a new store is created and recorded.
func (s *DocumentService) EnsureVectorStore(ctx context.Context) (string, error) {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()

	state := s.store.Current()
	if id := state.VectorStore(); id != "" {
		vs, err := s.api.RetrieveVectorStore(ctx, id)
		switch {
		case err != nil:
			s.logger.Warn("recorded vector store unusable, creating a new one", "vector_store_id", id, "err", err)
		case vs.ID == "":
			s.logger.Warn("recorded vector store returned no id, creating a new one", "vector_store_id", id)
		case vs.Status == ai.VectorStoreStatusExpired:
			s.logger.Info("recorded vector store expired, creating a new one", "vector_store_id", id)
		default:
			return vs.ID, nil
		}
	}

	vs, err := s.api.CreateVectorStore(ctx, s.opts.VectorStoreName, s.opts.ExpiryDays)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrVectorStoreUnavailable, err)
	}
	if _, err := s.store.SetVectorStoreID(vs.ID); err != nil {
		return "", fmt.Errorf("record vector store failed: %w", err)
	}
	s.logger.Info("vector store created", "vector_store_id", vs.ID, "name", s.opts.VectorStoreName)
	return vs.ID, nil
}

// BindAssistant points the assistant's file_search tool at vectorStoreID.
// In replace mode any other bound stores are dropped.
func (s *DocumentService) BindAssistant(ctx context.Context, vectorStoreID string) error {
	assistant, err := s.api.RetrieveAssistant(ctx, s.opts.AssistantID)
	if err != nil {
		return fmt.Errorf("bind assistant failed: %w", err)
	}

	ids := []string{vectorStoreID}
	if s.opts.BindMode == BindModeMerge {
		ids = append([]string{}, assistant.VectorStoreIDs()...)
		if !slices.Contains(ids, vectorStoreID) {
			ids = append(ids, vectorStoreID)
		}
	}

	if _, err := s.api.SetAssistantVectorStores(ctx, s.opts.AssistantID, ids); err != nil {
		return fmt.Errorf("bind assistant failed: %w", err)
	}
	s.logger.Debug("assistant bound", "assistant_id", s.opts.AssistantID, "vector_store_ids", ids, "previous", assistant.VectorStoreIDs())
	return nil
}

// UploadAndAttach uploads files, attaches them to the vector store in one
// batch, waits for indexing, binds the assistant and records the documents.
// Files that fail preflight or upload are reported in Failed and skipped.
func (s *DocumentService) UploadAndAttach(ctx context.Context, files []UploadFile) (*IngestResult, error) {
	result := &IngestResult{Documents: []model.Document{}, Failed: []FailedFile{}}
	if len(files) == 0 {
		return result, nil
	}

	vectorStoreID, err := s.EnsureVectorStore(ctx)
	if err != nil {
		return nil, err
	}
	result.VectorStoreID = vectorStoreID

	uploaded := s.uploadAll(ctx, files, result)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileIDs := make([]string, 0, len(files))
	for _, file := range uploaded {
		if file != nil {
			fileIDs = append(fileIDs, file.ID)
		}
	}
	if len(fileIDs) == 0 {
		return result, ErrNoFilesUploaded
	}

	batchID, err := s.attachBatch(ctx, vectorStoreID, fileIDs)
	result.BatchID = batchID
	if err != nil {
		return result, err
	}

	if err := s.BindAssistant(ctx, vectorStoreID); err != nil {
		return result, err
	}

	now := s.now().UTC()
	for i, file := range uploaded {
		if file == nil {
			continue
		}
		result.Documents = append(result.Documents, model.Document{
			Filename:   files[i].Name,
			FileID:     file.ID,
			UploadedAt: now,
		})
	}
	if _, err := s.store.AddDocuments(result.Documents); err != nil {
		return result, err
	}

	s.logger.Info("documents ingested",
		"vector_store_id", vectorStoreID,
		"batch_id", batchID,
		"uploaded", len(result.Documents),
		"failed", len(result.Failed),
	)
	return result, nil
}

// uploadAll returns one entry per input file, nil where the file was skipped.
// Skipped files are appended to result.Failed in input order.
func (s *DocumentService) uploadAll(ctx context.Context, files []UploadFile, result *IngestResult) []*ai.File {
	uploaded := make([]*ai.File, len(files))
	reasons := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.UploadConcurrency)
	for i, f := range files {
		g.Go(func() error {
			if err := s.preflight(f); err != nil {
				reasons[i] = err.Error()
				s.logger.Warn("file rejected", "file", f.Name, "err", err)
				s.metrics.FileUploaded(false)
				return nil
			}
			file, err := s.api.UploadFile(gctx, f.Name, bytes.NewReader(f.Data))
			if err != nil {
				reasons[i] = err.Error()
				s.logger.Warn("file upload failed", "file", f.Name, "err", err)
				s.metrics.FileUploaded(false)
				return nil
			}
			uploaded[i] = file
			s.metrics.FileUploaded(true)
			return nil
		})
	}
	_ = g.Wait()

	for i, reason := range reasons {
		if reason != "" {
			result.Failed = append(result.Failed, FailedFile{Name: files[i].Name, Reason: reason})
		}
	}
	return uploaded
}

func (s *DocumentService) preflight(f UploadFile) error {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if len(s.opts.AllowedExtensions) > 0 && !slices.ContainsFunc(s.opts.AllowedExtensions, func(allowed string) bool {
		return strings.EqualFold(allowed, ext)
	}) {
		return fmt.Errorf("extension %q is not allowed", ext)
	}
	if s.opts.MaxFileBytes > 0 && int64(len(f.Data)) > s.opts.MaxFileBytes {
		return fmt.Errorf("file is %d bytes, limit is %d", len(f.Data), s.opts.MaxFileBytes)
	}
	if len(f.Data) == 0 {
		return errors.New("file is empty")
	}
	if s.opts.ValidatePDF && ext == ".pdf" {
		info, err := pdfextract.Inspect(f.Data)
		if err != nil {
			return fmt.Errorf("invalid pdf: %w", err)
		}
		if !info.HasText {
			s.logger.Warn("pdf has no extractable text", "file", f.Name, "pages", info.Pages)
		}
	}
	return nil
}

func (s *DocumentService) attachBatch(ctx context.Context, vectorStoreID string, fileIDs []string) (string, error) {
	batch, err := s.api.CreateFileBatch(ctx, vectorStoreID, fileIDs)
	if err != nil {
		return "", err
	}

	status := batch.Status
	counts := batch.FileCounts
	if status != ai.BatchStatusCompleted && status != ai.BatchStatusFailed && status != ai.BatchStatusCancelled {
		err = pollUntil(ctx, s.opts.BatchPollInterval, s.opts.BatchTimeout, func(ctx context.Context) (bool, error) {
			current, err := s.api.RetrieveFileBatch(ctx, vectorStoreID, batch.ID)
			if err != nil {
				return false, err
			}
			status = current.Status
			counts = current.FileCounts
			return status != ai.BatchStatusInProgress, nil
		})
		if err != nil {
			if errors.Is(err, ErrPollTimeout) {
				s.metrics.BatchFinished("timeout")
				return batch.ID, fmt.Errorf("wait for file batch %s failed: %w", batch.ID, err)
			}
			return batch.ID, err
		}
	}

	s.metrics.BatchFinished(status)
	switch status {
	case ai.BatchStatusCompleted:
		return batch.ID, nil
	case ai.BatchStatusFailed, ai.BatchStatusCancelled:
		return batch.ID, &BatchFailedError{BatchID: batch.ID, Status: status, FileCounts: counts}
	default:
		return batch.ID, fmt.Errorf("file batch %s ended with unexpected status %q", batch.ID, status)
	}
}

// RemoveDocument detaches the file from the vector store, deletes the remote
// file and drops the local record. Remote 404s are tolerated.
func (s *DocumentService) RemoveDocument(ctx context.Context, fileID string) error {
	state := s.store.Current()
	if !slices.ContainsFunc(state.Documents, func(d model.Document) bool { return d.FileID == fileID }) {
		return ErrDocumentNotFound
	}

	if vectorStoreID := state.VectorStore(); vectorStoreID != "" {
		if err := s.api.DeleteVectorStoreFile(ctx, vectorStoreID, fileID); err != nil && !ai.IsNotFound(err) {
			return err
		}
	}
	if err := s.api.DeleteFile(ctx, fileID); err != nil && !ai.IsNotFound(err) {
		return err
	}
	if _, err := s.store.RemoveDocument(fileID); err != nil {
		return err
	}
	s.logger.Info("document removed", "file_id", fileID)
	return nil
}

// ResetAll forgets every document and the vector store binding. With
// purgeRemote the recorded files are deleted remotely first, best effort.
func (s *DocumentService) ResetAll(ctx context.Context, purgeRemote bool) (ResetResult, error) {
	var result ResetResult
	if purgeRemote {
		for _, doc := range s.store.Current().Documents {
			if err := s.api.DeleteFile(ctx, doc.FileID); err != nil && !ai.IsNotFound(err) {
				result.Failed++
				s.logger.Warn("purge remote file failed", "file_id", doc.FileID, "err", err)
				continue
			}
			result.Purged++
		}
	}
	if err := s.store.RemoveAll(); err != nil {
		return result, err
	}
	s.logger.Info("document store reset", "purged", result.Purged, "purge_failed", result.Failed)
	return result, nil
}
