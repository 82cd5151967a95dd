package app

import (
	"errors"
	"fmt"

	"docassist/internal/ai"
	"docassist/internal/repository"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrMessageEmpty           = errors.New("message content is empty")
	ErrSessionNotFound        = errors.New("session not found")
	ErrNoFilesUploaded        = errors.New("no files were uploaded")
	ErrPollTimeout            = errors.New("poll deadline exceeded")
	ErrRunTimedOut            = errors.New("assistant run timed out")
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")
	ErrInvalidAccessKey       = errors.New("invalid access key")
	ErrJobNotFound            = errors.New("ingest job not found")
	ErrDocumentNotFound       = repository.ErrDocumentNotFound
)

// RunFailedError reports a run that reached a terminal status other than completed.
type RunFailedError struct {
	RunID     string
	Status    string
	LastError *ai.RunError
}

func (e *RunFailedError) Error() string {
	if e.LastError != nil {
		return fmt.Sprintf("assistant run %s %s: %s", e.RunID, e.Status, e.LastError.String())
	}
	return fmt.Sprintf("assistant run %s %s", e.RunID, e.Status)
}

// BatchFailedError reports a file batch that ended failed or cancelled.
// Files already attached to the vector store are left in place.
type BatchFailedError struct {
	BatchID    string
	Status     string
	FileCounts ai.FileCounts
}

func (e *BatchFailedError) Error() string {
	return fmt.Sprintf("file batch %s %s (completed %d, failed %d, cancelled %d)",
		e.BatchID, e.Status, e.FileCounts.Completed, e.FileCounts.Failed, e.FileCounts.Cancelled)
}
