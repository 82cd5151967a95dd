package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"docassist/internal/ai"
	"docassist/internal/cache"
	"docassist/internal/repository"
)

// fakeAPI is an in-memory stand-in for the remote assistant service.
type fakeAPI struct {
	mu sync.Mutex

	seq          int
	calls        int
	vectorStores map[string]*ai.VectorStore
	files        map[string]string

	uploadErrs      map[string]error
	createVSErr     error
	createThreadErr error

	batchCreateStatus string
	batchStatuses     []string
	batches           [][]string

	assistantStores []string
	bindCalls       int

	runStatuses  []string
	runLastError *ai.RunError
	messages     []ai.Message
	postedTexts  []string

	deletedFiles   []string
	deletedVSFiles []string
	deleteFileErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		vectorStores: make(map[string]*ai.VectorStore),
		files:        make(map[string]string),
		uploadErrs:   make(map[string]error),
	}
}

func (f *fakeAPI) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%d", prefix, f.seq)
}

func (f *fakeAPI) remoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAPI) CreateThread(context.Context) (*ai.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createThreadErr != nil {
		return nil, f.createThreadErr
	}
	return &ai.Thread{ID: f.nextID("thread")}, nil
}

func (f *fakeAPI) CreateMessage(_ context.Context, threadID, role, content string) (*ai.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.postedTexts = append(f.postedTexts, content)
	return &ai.Message{ID: f.nextID("msg"), ThreadID: threadID, Role: role}, nil
}

func (f *fakeAPI) ListMessages(context.Context, string) ([]ai.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.messages, nil
}

func (f *fakeAPI) CreateRun(_ context.Context, threadID, assistantID string) (*ai.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &ai.Run{ID: f.nextID("run"), ThreadID: threadID, AssistantID: assistantID, Status: ai.RunStatusQueued}, nil
}

func (f *fakeAPI) RetrieveRun(_ context.Context, threadID, runID string) (*ai.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	status := ai.RunStatusInProgress
	if len(f.runStatuses) > 0 {
		status = f.runStatuses[0]
		if len(f.runStatuses) > 1 {
			f.runStatuses = f.runStatuses[1:]
		}
	}
	run := &ai.Run{ID: runID, ThreadID: threadID, Status: status}
	if status == ai.RunStatusFailed {
		run.LastError = f.runLastError
	}
	return run, nil
}

func (f *fakeAPI) UploadFile(_ context.Context, fileName string, content io.Reader) (*ai.File, error) {
	if _, err := io.ReadAll(content); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.uploadErrs[fileName]; err != nil {
		return nil, err
	}
	id := f.nextID("file")
	f.files[id] = fileName
	return &ai.File{ID: id, Filename: fileName, Purpose: "assistants"}, nil
}

func (f *fakeAPI) DeleteFile(_ context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.deleteFileErr != nil {
		return f.deleteFileErr
	}
	f.deletedFiles = append(f.deletedFiles, fileID)
	delete(f.files, fileID)
	return nil
}

func (f *fakeAPI) CreateVectorStore(_ context.Context, name string, expiryDays int) (*ai.VectorStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createVSErr != nil {
		return nil, f.createVSErr
	}
	vs := &ai.VectorStore{
		ID:           f.nextID("vs"),
		Name:         name,
		Status:       "completed",
		ExpiresAfter: &ai.ExpiresAfter{Anchor: "last_active_at", Days: expiryDays},
	}
	f.vectorStores[vs.ID] = vs
	return vs, nil
}

func (f *fakeAPI) RetrieveVectorStore(_ context.Context, id string) (*ai.VectorStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	vs, ok := f.vectorStores[id]
	if !ok {
		return nil, &ai.APIError{StatusCode: http.StatusNotFound, Message: "No vector store found"}
	}
	copied := *vs
	return &copied, nil
}

func (f *fakeAPI) CreateFileBatch(_ context.Context, vectorStoreID string, fileIDs []string) (*ai.FileBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.batches = append(f.batches, append([]string(nil), fileIDs...))
	status := f.batchCreateStatus
	if status == "" {
		status = ai.BatchStatusInProgress
	}
	return &ai.FileBatch{ID: f.nextID("vsfb"), VectorStoreID: vectorStoreID, Status: status}, nil
}

func (f *fakeAPI) RetrieveFileBatch(_ context.Context, vectorStoreID, batchID string) (*ai.FileBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	status := ai.BatchStatusCompleted
	if len(f.batchStatuses) > 0 {
		status = f.batchStatuses[0]
		if len(f.batchStatuses) > 1 {
			f.batchStatuses = f.batchStatuses[1:]
		}
	}
	return &ai.FileBatch{ID: batchID, VectorStoreID: vectorStoreID, Status: status}, nil
}

func (f *fakeAPI) DeleteVectorStoreFile(_ context.Context, _ string, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.deletedVSFiles = append(f.deletedVSFiles, fileID)
	return nil
}

func (f *fakeAPI) RetrieveAssistant(_ context.Context, assistantID string) (*ai.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &ai.Assistant{
		ID:            assistantID,
		ToolResources: &ai.ToolResources{FileSearch: &ai.FileSearchResources{VectorStoreIDs: f.assistantStores}},
	}, nil
}

func (f *fakeAPI) SetAssistantVectorStores(_ context.Context, assistantID string, ids []string) (*ai.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.bindCalls++
	f.assistantStores = append([]string(nil), ids...)
	return &ai.Assistant{ID: assistantID}, nil
}

type testEnv struct {
	api   *fakeAPI
	store *repository.DocumentStore
	docs  *DocumentService
	chat  *ChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := newFakeAPI()
	store := repository.NewDocumentStore(filepath.Join(t.TempDir(), "document_store.json"), "asst_test", logger)
	docs := NewDocumentService(api, store, DocumentOptions{
		AssistantID:       "asst_test",
		BatchPollInterval: time.Millisecond,
		BatchTimeout:      time.Second,
		AllowedExtensions: []string{".pdf", ".txt"},
		MaxFileBytes:      1 << 20,
		UploadConcurrency: 3,
	}, nil, logger)
	chat := NewChatService(api, docs, cache.NewMemorySessionStore(0), ChatOptions{
		AssistantID:        "asst_test",
		APIKey:             "sk-test-0123456789",
		PollInterval:       time.Millisecond,
		RunTimeout:         time.Second,
		SuggestedQuestions: []string{"q1", "q2"},
	}, nil, logger)
	return &testEnv{api: api, store: store, docs: docs, chat: chat}
}
