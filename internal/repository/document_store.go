package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"docassist/internal/model"
)

var ErrDocumentNotFound = errors.New("document not found")

type LoadStatus int

const (
	LoadAbsent LoadStatus = iota
	LoadCorrupt
	LoadValid
)

func (s LoadStatus) String() string {
	switch s {
	case LoadAbsent:
		return "absent"
	case LoadCorrupt:
		return "corrupt"
	case LoadValid:
		return "valid"
	default:
		return "unknown"
	}
}

// DocumentStore persists StoreState as a single JSON file that is read fully
// and rewritten fully on every mutation. Mutations are serialised within the
// process only.
type DocumentStore struct {
	path        string
	assistantID string
	logger      *slog.Logger
	now         func() time.Time

	mu sync.Mutex
}

func NewDocumentStore(path, assistantID string, logger *slog.Logger) *DocumentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentStore{
		path:        path,
		assistantID: assistantID,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *DocumentStore) Path() string {
	return s.path
}

func (s *DocumentStore) Load() (model.StoreState, LoadStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Current returns the stored state, or the default state when the file is
// absent, corrupt or unreadable.
func (s *DocumentStore) Current() model.StoreState {
	state, _, err := s.Load()
	if err != nil {
		s.logger.Warn("read document store failed", "path", s.path, "err", err)
	}
	return state
}

func (s *DocumentStore) Save(state model.StoreState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(state)
}

func (s *DocumentStore) AddDocuments(docs []model.Document) (model.StoreState, error) {
	return s.update(func(state *model.StoreState) error {
		state.Documents = append(state.Documents, docs...)
		return nil
	})
}

func (s *DocumentStore) RemoveDocument(fileID string) (model.StoreState, error) {
	return s.update(func(state *model.StoreState) error {
		for i, doc := range state.Documents {
			if doc.FileID == fileID {
				state.Documents = append(state.Documents[:i], state.Documents[i+1:]...)
				return nil
			}
		}
		return ErrDocumentNotFound
	})
}

func (s *DocumentStore) SetVectorStoreID(id string) (model.StoreState, error) {
	return s.update(func(state *model.StoreState) error {
		state.VectorStoreID = &id
		return nil
	})
}

// RemoveAll deletes the backing file. A missing file is not an error.
func (s *DocumentStore) RemoveAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove document store failed: %w", err)
	}
	return nil
}

func (s *DocumentStore) update(mutate func(state *model.StoreState) error) (model.StoreState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, _, err := s.load()
	if err != nil {
		return state, err
	}
	if err := mutate(&state); err != nil {
		return state, err
	}
	if err := s.save(state); err != nil {
		return state, err
	}
	return state, nil
}

func (s *DocumentStore) load() (model.StoreState, LoadStatus, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.defaultState(), LoadAbsent, nil
	}
	if err != nil {
		// unreadable is handled like corrupt: the next save replaces it
		s.logger.Warn("document store is unreadable, using defaults", "path", s.path, "err", err)
		return s.defaultState(), LoadCorrupt, nil
	}

	var state model.StoreState
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("document store is corrupt, using defaults", "path", s.path, "err", err)
		return s.defaultState(), LoadCorrupt, nil
	}
	if state.Documents == nil {
		state.Documents = []model.Document{}
	}
	return state, LoadValid, nil
}

func (s *DocumentStore) save(state model.StoreState) error {
	if state.Documents == nil {
		state.Documents = []model.Document{}
	}
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document store failed: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create document store dir failed: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".document_store-*.json")
	if err != nil {
		return fmt.Errorf("create temp document store failed: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write document store failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write document store failed: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace document store failed: %w", err)
	}
	return nil
}

func (s *DocumentStore) defaultState() model.StoreState {
	return model.NewStoreState(s.assistantID, s.now().UTC())
}
