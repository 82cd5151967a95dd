package repository

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"docassist/internal/model"
)

func newTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	return NewDocumentStore(filepath.Join(t.TempDir(), "data", "document_store.json"), "asst_test", nil)
}

func TestDocumentStore_LoadAbsent(t *testing.T) {
	s := newTestStore(t)

	state, status, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if status != LoadAbsent {
		t.Errorf("status = %v, want absent", status)
	}
	if len(state.Documents) != 0 {
		t.Errorf("documents = %v, want empty", state.Documents)
	}
	if state.VectorStoreID != nil {
		t.Errorf("vector_store_id = %q, want nil", *state.VectorStoreID)
	}
	if state.AssistantID != "asst_test" {
		t.Errorf("assistant_id = %q, want asst_test", state.AssistantID)
	}
}

func TestDocumentStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	vs := "vs_1"
	uploaded := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	want := model.StoreState{
		Documents: []model.Document{
			{Filename: "a.pdf", FileID: "file_a", UploadedAt: uploaded},
			{Filename: "a.pdf", FileID: "file_b", UploadedAt: uploaded},
			{Filename: "c.pdf", FileID: "file_c", UploadedAt: uploaded},
		},
		VectorStoreID: &vs,
		AssistantID:   "asst_test",
		CreatedAt:     uploaded,
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, status, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if status != LoadValid {
		t.Errorf("status = %v, want valid", status)
	}
	if got.VectorStore() != "vs_1" {
		t.Errorf("vector_store_id = %q, want vs_1", got.VectorStore())
	}
	if len(got.Documents) != len(want.Documents) {
		t.Fatalf("documents = %d, want %d", len(got.Documents), len(want.Documents))
	}
	for i := range want.Documents {
		if got.Documents[i].FileID != want.Documents[i].FileID {
			t.Errorf("documents[%d].file_id = %q, want %q", i, got.Documents[i].FileID, want.Documents[i].FileID)
		}
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, want.CreatedAt)
	}

	if err := s.Save(got); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	again, _, _ := s.Load()
	if len(again.Documents) != 3 || again.VectorStore() != "vs_1" {
		t.Errorf("second round trip = %+v", again)
	}
}

func TestDocumentStore_Corrupt(t *testing.T) {
	s := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	state, status, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if status != LoadCorrupt {
		t.Errorf("status = %v, want corrupt", status)
	}
	if len(state.Documents) != 0 || state.VectorStoreID != nil {
		t.Errorf("state = %+v, want default", state)
	}
}

func TestDocumentStore_Unreadable(t *testing.T) {
	s := newTestStore(t)
	// a directory at the store path fails every read with a non-ENOENT error
	if err := os.MkdirAll(s.Path(), 0o755); err != nil {
		t.Fatal(err)
	}

	state, status, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if status != LoadCorrupt {
		t.Errorf("status = %v, want corrupt", status)
	}
	if len(state.Documents) != 0 || state.VectorStoreID != nil || state.AssistantID != "asst_test" {
		t.Errorf("state = %+v, want default", state)
	}
	if got := s.Current(); len(got.Documents) != 0 {
		t.Errorf("current documents = %v, want empty", got.Documents)
	}
}

func TestDocumentStore_AddAndRemove(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	if _, err := s.AddDocuments([]model.Document{
		{Filename: "a.pdf", FileID: "file_a", UploadedAt: now},
		{Filename: "b.pdf", FileID: "file_b", UploadedAt: now},
	}); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if _, err := s.SetVectorStoreID("vs_2"); err != nil {
		t.Fatalf("SetVectorStoreID: %v", err)
	}

	state, err := s.RemoveDocument("file_a")
	if err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}
	if len(state.Documents) != 1 || state.Documents[0].FileID != "file_b" {
		t.Errorf("documents = %+v, want only file_b", state.Documents)
	}
	if state.VectorStore() != "vs_2" {
		t.Errorf("vector_store_id = %q, want vs_2", state.VectorStore())
	}

	if _, err := s.RemoveDocument("file_missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestDocumentStore_RemoveAll(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SetVectorStoreID("vs_3"); err != nil {
		t.Fatalf("SetVectorStoreID: %v", err)
	}

	if err := s.RemoveAll(); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, err := os.Stat(s.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stat after RemoveAll: %v, want not exist", err)
	}
	state, status, _ := s.Load()
	if status != LoadAbsent || state.VectorStoreID != nil || len(state.Documents) != 0 {
		t.Errorf("state after reset = %+v (%v)", state, status)
	}

	if err := s.RemoveAll(); err != nil {
		t.Errorf("RemoveAll on absent file: %v", err)
	}
}
