package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docassist/internal/ai"
	"docassist/internal/metrics"
	"docassist/internal/model"
)

type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, bool, error)
	SetSession(ctx context.Context, session *model.Session) error
	DeleteSession(ctx context.Context, sessionID string) error
}

type ChatOptions struct {
	AssistantID        string
	APIKey             string
	PollInterval       time.Duration
	RunTimeout         time.Duration
	SuggestedQuestions []string
	Debug              bool
}

type SendMessageResult struct {
	Reply    string       `json:"reply"`
	ThreadID string       `json:"thread_id"`
	RunID    string       `json:"run_id"`
	Turns    []model.Turn `json:"turns"`
}

type SessionStats struct {
	TotalQuestions  int       `json:"total_questions"`
	StartedAt       time.Time `json:"started_at"`
	DurationMinutes int       `json:"duration_minutes"`
	ThreadActive    bool      `json:"thread_active"`
	Turns           int       `json:"turns"`
}

type Transcript struct {
	FileName string
	Content  string
}

type DebugInfo struct {
	AssistantID       string `json:"assistant_id"`
	APIKeyMasked      string `json:"api_key_masked"`
	ThreadID          string `json:"thread_id"`
	VectorStoreID     string `json:"vector_store_id"`
	DocumentCount     int    `json:"document_count"`
	DocumentStorePath string `json:"document_store_path"`
}

// ChatService drives one question through the remote assistant: it appends
// the message to the session's thread, starts a run and polls it to a
// terminal status.
type ChatService struct {
	api      ThreadsAPI
	docs     *DocumentService
	sessions SessionStore
	opts     ChatOptions
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

// sessionLock serializes turns within one session. refs counts holders and
// waiters; the entry is dropped when it reaches zero.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewChatService(api ThreadsAPI, docs *DocumentService, sessions SessionStore, opts ChatOptions, m *metrics.Metrics, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 5 * time.Minute
	}
	return &ChatService{
		api:      api,
		docs:     docs,
		sessions: sessions,
		opts:     opts,
		metrics:  m,
		logger:   logger.With("component", "chat"),
		now:      time.Now,
		locks:    make(map[string]*sessionLock),
	}
}

// InitSession makes sure the vector store exists and is bound to the
// assistant, then opens a new session. The thread is created on the first turn.
func (s *ChatService) InitSession(ctx context.Context) (*model.Session, error) {
	vectorStoreID, err := s.docs.EnsureVectorStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.docs.BindAssistant(ctx, vectorStoreID); err != nil {
		return nil, err
	}

	session := &model.Session{
		ID:            uuid.NewString(),
		Turns:         []model.Turn{},
		StartedAt:     s.now(),
		VectorStoreID: vectorStoreID,
		Debug:         s.opts.Debug,
	}
	if err := s.sessions.SetSession(ctx, session); err != nil {
		return nil, err
	}
	s.metrics.SessionStarted()
	s.logger.Info("session started", "session_id", session.ID, "vector_store_id", vectorStoreID)
	return session, nil
}

func (s *ChatService) CreateThread(ctx context.Context) (string, error) {
	thread, err := s.api.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (s *ChatService) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, ok, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// SendMessage records the user turn, runs the assistant and records its
// reply. On run failure or timeout the user turn stays in history alone.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, text string) (*SendMessageResult, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.ThreadID == "" {
		threadID, err := s.CreateThread(ctx)
		if err != nil {
			return nil, err
		}
		session.ThreadID = threadID
	}

	userTurn := model.Turn{Role: model.RoleUser, Content: content, CreatedAt: s.now()}
	session.Turns = append(session.Turns, userTurn)
	session.TotalQuestions++
	if err := s.sessions.SetSession(ctx, session); err != nil {
		return nil, err
	}

	result := &SendMessageResult{ThreadID: session.ThreadID, Turns: []model.Turn{userTurn}}
	if _, err := s.api.CreateMessage(ctx, session.ThreadID, model.RoleUser, content); err != nil {
		return result, err
	}
	run, err := s.api.CreateRun(ctx, session.ThreadID, s.opts.AssistantID)
	if err != nil {
		return result, err
	}
	result.RunID = run.ID

	reply, err := s.awaitReply(ctx, session.ThreadID, run)
	if err != nil {
		s.logger.Warn("assistant run did not complete", "session_id", sessionID, "run_id", run.ID, "err", err)
		return result, err
	}
	result.Reply = reply
	if reply == "" {
		return result, nil
	}

	assistantTurn := model.Turn{Role: model.RoleAssistant, Content: reply, CreatedAt: s.now()}
	session.Turns = append(session.Turns, assistantTurn)
	if err := s.sessions.SetSession(ctx, session); err != nil {
		return result, err
	}
	result.Turns = append(result.Turns, assistantTurn)
	return result, nil
}

// awaitReply polls the run until it leaves the active statuses and returns the
// text of the most recent thread message when it completed.
func (s *ChatService) awaitReply(ctx context.Context, threadID string, run *ai.Run) (string, error) {
	started := s.now()
	current := run
	loggedAction := false

	err := pollUntil(ctx, s.opts.PollInterval, s.opts.RunTimeout, func(ctx context.Context) (bool, error) {
		latest, err := s.api.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			return false, err
		}
		current = latest
		switch latest.Status {
		case ai.RunStatusCompleted, ai.RunStatusFailed, ai.RunStatusCancelled,
			ai.RunStatusExpired, ai.RunStatusIncomplete:
			return true, nil
		case ai.RunStatusRequiresAction:
			if !loggedAction {
				s.logger.Info("run requires action, no tool outputs are submitted", "run_id", run.ID)
				loggedAction = true
			}
		}
		return false, nil
	})
	if errors.Is(err, ErrPollTimeout) {
		s.metrics.ObserveRun("timeout", s.now().Sub(started))
		return "", fmt.Errorf("%w: run %s still %s after %s", ErrRunTimedOut, run.ID, current.Status, s.opts.RunTimeout)
	}
	if err != nil {
		return "", err
	}

	s.metrics.ObserveRun(current.Status, s.now().Sub(started))
	if current.Status != ai.RunStatusCompleted {
		return "", &RunFailedError{RunID: run.ID, Status: current.Status, LastError: current.LastError}
	}

	messages, err := s.api.ListMessages(ctx, threadID)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", nil
	}
	return messages[0].Text(), nil
}

func (s *ChatService) ResetConversation(ctx context.Context, sessionID string) (*model.Session, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Reset(s.now())
	session.Turns = []model.Turn{}
	session.VectorStoreID = s.docs.State().VectorStore()
	if err := s.sessions.SetSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) History(ctx context.Context, sessionID string) ([]model.Turn, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Turns == nil {
		return []model.Turn{}, nil
	}
	return session.Turns, nil
}

func (s *ChatService) Stats(ctx context.Context, sessionID string) (SessionStats, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return SessionStats{}, err
	}
	return SessionStats{
		TotalQuestions:  session.TotalQuestions,
		StartedAt:       session.StartedAt,
		DurationMinutes: int(s.now().Sub(session.StartedAt) / time.Minute),
		ThreadActive:    session.ThreadID != "",
		Turns:           len(session.Turns),
	}, nil
}

// Transcript renders the session as plain text, one "Role: content" block per turn.
func (s *ChatService) Transcript(ctx context.Context, sessionID string) (*Transcript, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Transcript{
		FileName: "chat_history_" + s.now().Format("20060102_150405") + ".txt",
		Content:  RenderTranscript(session.Turns),
	}, nil
}

func RenderTranscript(turns []model.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		label := "User"
		if turn.Role == model.RoleAssistant {
			label = "Assistant"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

func (s *ChatService) SuggestedQuestions() []string {
	return append([]string(nil), s.opts.SuggestedQuestions...)
}

// ToggleDebug flips the debug panel flag for one session.
func (s *ChatService) ToggleDebug(ctx context.Context, sessionID string) (bool, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	session.Debug = !session.Debug
	if err := s.sessions.SetSession(ctx, session); err != nil {
		return false, err
	}
	return session.Debug, nil
}

func (s *ChatService) Debug(ctx context.Context, sessionID string) (*DebugInfo, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state := s.docs.State()
	return &DebugInfo{
		AssistantID:       maskTail(s.opts.AssistantID),
		APIKeyMasked:      maskSecret(s.opts.APIKey),
		ThreadID:          session.ThreadID,
		VectorStoreID:     state.VectorStore(),
		DocumentCount:     len(state.Documents),
		DocumentStorePath: s.docs.StorePath(),
	}, nil
}

func (s *ChatService) lockSession(sessionID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.locksMu.Unlock()
	}
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

func maskTail(id string) string {
	if len(id) <= 8 {
		return id
	}
	return "***" + id[len(id)-8:]
}
