package app

import (
	"context"
	"io"

	"docassist/internal/ai"
)

// ThreadsAPI is the part of the remote service the run engine talks to.
type ThreadsAPI interface {
	CreateThread(ctx context.Context) (*ai.Thread, error)
	CreateMessage(ctx context.Context, threadID, role, content string) (*ai.Message, error)
	ListMessages(ctx context.Context, threadID string) ([]ai.Message, error)
	CreateRun(ctx context.Context, threadID, assistantID string) (*ai.Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (*ai.Run, error)
}

// VectorStoresAPI covers files, vector stores and the assistant binding.
type VectorStoresAPI interface {
	UploadFile(ctx context.Context, fileName string, content io.Reader) (*ai.File, error)
	DeleteFile(ctx context.Context, fileID string) error
	CreateVectorStore(ctx context.Context, name string, expiryDays int) (*ai.VectorStore, error)
	RetrieveVectorStore(ctx context.Context, vectorStoreID string) (*ai.VectorStore, error)
	CreateFileBatch(ctx context.Context, vectorStoreID string, fileIDs []string) (*ai.FileBatch, error)
	RetrieveFileBatch(ctx context.Context, vectorStoreID, batchID string) (*ai.FileBatch, error)
	DeleteVectorStoreFile(ctx context.Context, vectorStoreID, fileID string) error
	RetrieveAssistant(ctx context.Context, assistantID string) (*ai.Assistant, error)
	SetAssistantVectorStores(ctx context.Context, assistantID string, vectorStoreIDs []string) (*ai.Assistant, error)
}

type AssistantsAPI interface {
	ThreadsAPI
	VectorStoresAPI
}

var _ AssistantsAPI = (*ai.Client)(nil)
