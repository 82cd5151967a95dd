package model

import "time"

// Document is one ingested file. FileID is unique; filenames may repeat.
type Document struct {
	Filename   string    `json:"filename"`
	FileID     string    `json:"file_id"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// StoreState is the whole persisted document store.
type StoreState struct {
	Documents     []Document `json:"documents"`
	VectorStoreID *string    `json:"vector_store_id"`
	AssistantID   string     `json:"assistant_id"`
	CreatedAt     time.Time  `json:"created_at"`
}

func NewStoreState(assistantID string, now time.Time) StoreState {
	return StoreState{
		Documents:   []Document{},
		AssistantID: assistantID,
		CreatedAt:   now,
	}
}

// VectorStore returns the recorded vector store id, or "" when none is bound.
func (s StoreState) VectorStore() string {
	if s.VectorStoreID == nil {
		return ""
	}
	return *s.VectorStoreID
}

func (s StoreState) FileIDs() []string {
	ids := make([]string, 0, len(s.Documents))
	for _, doc := range s.Documents {
		ids = append(ids, doc.FileID)
	}
	return ids
}
