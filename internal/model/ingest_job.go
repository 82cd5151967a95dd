package model

import "time"

// IngestJob is the queue payload for one asynchronous upload. Files are
// staged on local disk before the job is published.
type IngestJob struct {
	ID        string       `json:"id"`
	Files     []StagedFile `json:"files"`
	CreatedAt time.Time    `json:"created_at"`
}

type StagedFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}
