package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.RunPollInterval() != time.Second {
		t.Errorf("RunPollInterval = %v, want 1s", cfg.RunPollInterval())
	}
	if cfg.BatchPollInterval() != 2*time.Second {
		t.Errorf("BatchPollInterval = %v, want 2s", cfg.BatchPollInterval())
	}
	if cfg.VectorStore.ExpiryDays != 30 {
		t.Errorf("ExpiryDays = %d, want 30", cfg.VectorStore.ExpiryDays)
	}
	if cfg.VectorStore.BindMode != "replace" {
		t.Errorf("BindMode = %q, want replace", cfg.VectorStore.BindMode)
	}
	if cfg.Store.Path != "data/document_store.json" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if len(cfg.Chat.SuggestedQuestions) != 4 {
		t.Errorf("SuggestedQuestions = %d entries, want 4", len(cfg.Chat.SuggestedQuestions))
	}
}

func TestLoadFile_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestLoadFile_FileThenEnv(t *testing.T) {
	path := writeTempConfig(t, `
[openai]
api_key = "file-key"
assistant_id = "asst_file"

[vector_store]
bind_mode = "merge"

[ingest]
allowed_extensions = [".pdf"]
`)
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("INGEST_ALLOWED_EXTENSIONS", ".pdf, .txt")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.OpenAI.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.AssistantID != "asst_file" {
		t.Errorf("AssistantID = %q, want asst_file", cfg.OpenAI.AssistantID)
	}
	if cfg.VectorStore.BindMode != "merge" {
		t.Errorf("BindMode = %q, want merge", cfg.VectorStore.BindMode)
	}
	if got := cfg.Ingest.AllowedExtensions; len(got) != 2 || got[1] != ".txt" {
		t.Errorf("AllowedExtensions = %v", got)
	}
}

func TestLoadFile_InvalidBindMode(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VECTOR_STORE_BIND_MODE", "append")

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for bind_mode append")
	}
}
