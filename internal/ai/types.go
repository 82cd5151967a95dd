package ai

import "strings"

const (
	RunStatusQueued         = "queued"
	RunStatusInProgress     = "in_progress"
	RunStatusRequiresAction = "requires_action"
	RunStatusCancelling     = "cancelling"
	RunStatusCancelled      = "cancelled"
	RunStatusFailed         = "failed"
	RunStatusCompleted      = "completed"
	RunStatusIncomplete     = "incomplete"
	RunStatusExpired        = "expired"
)

const (
	BatchStatusInProgress = "in_progress"
	BatchStatusCompleted  = "completed"
	BatchStatusCancelled  = "cancelled"
	BatchStatusFailed     = "failed"
)

const VectorStoreStatusExpired = "expired"

type Thread struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
}

type Message struct {
	ID       string           `json:"id"`
	ThreadID string           `json:"thread_id"`
	Role     string           `json:"role"`
	RunID    string           `json:"run_id,omitempty"`
	Content  []MessageContent `json:"content"`
}

type MessageContent struct {
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

type MessageText struct {
	Value string `json:"value"`
}

// Text joins every text segment of the message in order. Non-text segments
// (images, files) are skipped.
func (m Message) Text() string {
	var b strings.Builder
	for _, item := range m.Content {
		if item.Type != "text" || item.Text == nil {
			continue
		}
		b.WriteString(item.Text.Value)
	}
	return b.String()
}

type Run struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	Status      string    `json:"status"`
	LastError   *RunError `json:"last_error"`
}

type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RunError) String() string {
	if e == nil {
		return "no error detail"
	}
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

type File struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	Purpose  string `json:"purpose"`
}

type ExpiresAfter struct {
	Anchor string `json:"anchor"`
	Days   int    `json:"days"`
}

type VectorStore struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Status       string        `json:"status"`
	ExpiresAfter *ExpiresAfter `json:"expires_after,omitempty"`
	FileCounts   FileCounts    `json:"file_counts"`
}

type FileCounts struct {
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}

type FileBatch struct {
	ID            string     `json:"id"`
	VectorStoreID string     `json:"vector_store_id"`
	Status        string     `json:"status"`
	FileCounts    FileCounts `json:"file_counts"`
}

type Assistant struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Model         string         `json:"model"`
	ToolResources *ToolResources `json:"tool_resources,omitempty"`
}

// VectorStoreIDs returns the file_search vector store ids, or nil.
func (a Assistant) VectorStoreIDs() []string {
	if a.ToolResources == nil || a.ToolResources.FileSearch == nil {
		return nil
	}
	return a.ToolResources.FileSearch.VectorStoreIDs
}

type ToolResources struct {
	FileSearch *FileSearchResources `json:"file_search,omitempty"`
}

type FileSearchResources struct {
	VectorStoreIDs []string `json:"vector_store_ids"`
}

type Model struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
}

type listResponse[T any] struct {
	Data    []T  `json:"data"`
	HasMore bool `json:"has_more"`
}
