package ai

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var out listResponse[Model]
	if err := c.Get(ctx, "/models", &out); err != nil {
		return nil, fmt.Errorf("list models failed: %w", err)
	}
	return out.Data, nil
}

func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	var thread Thread
	if err := c.PostJSON(ctx, "/threads", nil, &thread); err != nil {
		return nil, fmt.Errorf("create thread failed: %w", err)
	}
	return &thread, nil
}

func (c *Client) CreateMessage(ctx context.Context, threadID, role, content string) (*Message, error) {
	body := map[string]any{
		"role":    role,
		"content": content,
	}
	var msg Message
	if err := c.PostJSON(ctx, "/threads/"+url.PathEscape(threadID)+"/messages", body, &msg); err != nil {
		return nil, fmt.Errorf("create message failed: %w", err)
	}
	return &msg, nil
}

// ListMessages returns the thread's messages, most recent first.
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	var out listResponse[Message]
	path := "/threads/" + url.PathEscape(threadID) + "/messages?order=desc"
	if err := c.Get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return out.Data, nil
}

func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	body := map[string]any{"assistant_id": assistantID}
	var run Run
	if err := c.PostJSON(ctx, "/threads/"+url.PathEscape(threadID)+"/runs", body, &run); err != nil {
		return nil, fmt.Errorf("create run failed: %w", err)
	}
	return &run, nil
}

func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var run Run
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID)
	if err := c.Get(ctx, path, &run); err != nil {
		return nil, fmt.Errorf("retrieve run failed: %w", err)
	}
	return &run, nil
}

// UploadFile stores content remotely tagged for assistant use.
func (c *Client) UploadFile(ctx context.Context, fileName string, content io.Reader) (*File, error) {
	var file File
	fields := map[string]string{"purpose": "assistants"}
	if err := c.PostMultipart(ctx, "/files", fields, "file", fileName, content, &file); err != nil {
		return nil, fmt.Errorf("upload file %s failed: %w", fileName, err)
	}
	return &file, nil
}

func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if err := c.Delete(ctx, "/files/"+url.PathEscape(fileID), nil); err != nil {
		return fmt.Errorf("delete file failed: %w", err)
	}
	return nil
}

func (c *Client) CreateVectorStore(ctx context.Context, name string, expiryDays int) (*VectorStore, error) {
	body := map[string]any{"name": name}
	if expiryDays > 0 {
		body["expires_after"] = ExpiresAfter{Anchor: "last_active_at", Days: expiryDays}
	}
	var store VectorStore
	if err := c.PostJSON(ctx, "/vector_stores", body, &store); err != nil {
		return nil, fmt.Errorf("create vector store failed: %w", err)
	}
	return &store, nil
}

func (c *Client) RetrieveVectorStore(ctx context.Context, vectorStoreID string) (*VectorStore, error) {
	var store VectorStore
	if err := c.Get(ctx, "/vector_stores/"+url.PathEscape(vectorStoreID), &store); err != nil {
		return nil, fmt.Errorf("retrieve vector store failed: %w", err)
	}
	return &store, nil
}

func (c *Client) CreateFileBatch(ctx context.Context, vectorStoreID string, fileIDs []string) (*FileBatch, error) {
	body := map[string]any{"file_ids": fileIDs}
	var batch FileBatch
	path := "/vector_stores/" + url.PathEscape(vectorStoreID) + "/file_batches"
	if err := c.PostJSON(ctx, path, body, &batch); err != nil {
		return nil, fmt.Errorf("create file batch failed: %w", err)
	}
	return &batch, nil
}

func (c *Client) RetrieveFileBatch(ctx context.Context, vectorStoreID, batchID string) (*FileBatch, error) {
	var batch FileBatch
	path := "/vector_stores/" + url.PathEscape(vectorStoreID) + "/file_batches/" + url.PathEscape(batchID)
	if err := c.Get(ctx, path, &batch); err != nil {
		return nil, fmt.Errorf("retrieve file batch failed: %w", err)
	}
	return &batch, nil
}

func (c *Client) DeleteVectorStoreFile(ctx context.Context, vectorStoreID, fileID string) error {
	path := "/vector_stores/" + url.PathEscape(vectorStoreID) + "/files/" + url.PathEscape(fileID)
	if err := c.Delete(ctx, path, nil); err != nil {
		return fmt.Errorf("delete vector store file failed: %w", err)
	}
	return nil
}

func (c *Client) RetrieveAssistant(ctx context.Context, assistantID string) (*Assistant, error) {
	var assistant Assistant
	if err := c.Get(ctx, "/assistants/"+url.PathEscape(assistantID), &assistant); err != nil {
		return nil, fmt.Errorf("retrieve assistant failed: %w", err)
	}
	return &assistant, nil
}

// SetAssistantVectorStores overwrites the assistant's file_search vector store list.
func (c *Client) SetAssistantVectorStores(ctx context.Context, assistantID string, vectorStoreIDs []string) (*Assistant, error) {
	body := map[string]any{
		"tool_resources": ToolResources{
			FileSearch: &FileSearchResources{VectorStoreIDs: vectorStoreIDs},
		},
	}
	var assistant Assistant
	if err := c.PostJSON(ctx, "/assistants/"+url.PathEscape(assistantID), body, &assistant); err != nil {
		return nil, fmt.Errorf("update assistant failed: %w", err)
	}
	return &assistant, nil
}
