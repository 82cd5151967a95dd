package app

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"docassist/internal/ai"
	"docassist/internal/model"
)

func textMessage(parts ...string) ai.Message {
	msg := ai.Message{ID: "msg_reply", Role: model.RoleAssistant}
	for _, part := range parts {
		msg.Content = append(msg.Content, ai.MessageContent{Type: "text", Text: &ai.MessageText{Value: part}})
	}
	return msg
}

func startSession(t *testing.T, env *testEnv) *model.Session {
	t.Helper()
	session, err := env.chat.InitSession(context.Background())
	if err != nil {
		t.Fatalf("InitSession: %v", err)
	}
	return session
}

func TestInitSession(t *testing.T) {
	env := newTestEnv(t)
	env.api.assistantStores = []string{"vs_stale"}

	session := startSession(t, env)
	if session.ID == "" {
		t.Fatal("session id is empty")
	}
	if session.ThreadID != "" {
		t.Errorf("thread id = %q, want lazy creation", session.ThreadID)
	}
	if session.VectorStoreID == "" || env.store.Current().VectorStore() != session.VectorStoreID {
		t.Errorf("vector store = %q, recorded %q", session.VectorStoreID, env.store.Current().VectorStore())
	}
	if len(env.api.assistantStores) != 1 || env.api.assistantStores[0] != session.VectorStoreID {
		t.Errorf("assistant stores = %v, want rebind to %s", env.api.assistantStores, session.VectorStoreID)
	}
}

func TestSendMessage_Completed(t *testing.T) {
	env := newTestEnv(t)
	session := startSession(t, env)
	env.api.runStatuses = []string{ai.RunStatusQueued, ai.RunStatusInProgress, ai.RunStatusCompleted}
	env.api.messages = []ai.Message{
		textMessage("The main indication ", "is hypertension."),
		{ID: "msg_user", Role: model.RoleUser},
	}

	result, err := env.chat.SendMessage(context.Background(), session.ID, "  What is it for?  ")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if result.Reply != "The main indication is hypertension." {
		t.Errorf("reply = %q", result.Reply)
	}
	if env.api.postedTexts[0] != "What is it for?" {
		t.Errorf("posted = %q, want trimmed text", env.api.postedTexts[0])
	}

	history, err := env.chat.History(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || history[0].Role != model.RoleUser || history[1].Role != model.RoleAssistant {
		t.Fatalf("history = %+v", history)
	}

	stats, err := env.chat.Stats(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalQuestions != 1 || !stats.ThreadActive {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSendMessage_ReusesThread(t *testing.T) {
	env := newTestEnv(t)
	session := startSession(t, env)
	env.api.runStatuses = []string{ai.RunStatusCompleted}
	env.api.messages = []ai.Message{textMessage("ok")}

	first, err := env.chat.SendMessage(context.Background(), session.ID, "one")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	second, err := env.chat.SendMessage(context.Background(), session.ID, "two")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if first.ThreadID == "" || first.ThreadID != second.ThreadID {
		t.Errorf("thread ids = %q, %q, want one shared thread", first.ThreadID, second.ThreadID)
	}
}

func TestSendMessage_RunFailed(t *testing.T) {
	env := newTestEnv(t)
	session := startSession(t, env)
	env.api.runStatuses = []string{ai.RunStatusInProgress, ai.RunStatusFailed}
	env.api.runLastError = &ai.RunError{Code: "rate_limit_exceeded", Message: "slow down"}

	_, err := env.chat.SendMessage(context.Background(), session.ID, "question")
	var runErr *RunFailedError
	if !errors.As(err, &runErr) {
		t.Fatalf("err = %v, want *RunFailedError", err)
	}
	if runErr.LastError == nil || runErr.LastError.Code != "rate_limit_exceeded" {
		t.Errorf("last error = %+v", runErr.LastError)
	}

	history, _ := env.chat.History(context.Background(), session.ID)
	if len(history) != 1 || history[0].Role != model.RoleUser || history[0].Content != "question" {
		t.Errorf("history = %+v, want only the user turn", history)
	}
}

func TestSendMessage_OtherTerminalStatuses(t *testing.T) {
	for _, status := range []string{ai.RunStatusCancelled, ai.RunStatusExpired, ai.RunStatusIncomplete} {
		t.Run(status, func(t *testing.T) {
			env := newTestEnv(t)
			session := startSession(t, env)
			env.api.runStatuses = []string{status}

			_, err := env.chat.SendMessage(context.Background(), session.ID, "question")
			var runErr *RunFailedError
			if !errors.As(err, &runErr) || runErr.Status != status {
				t.Errorf("err = %v, want *RunFailedError with status %s", err, status)
			}
		})
	}
}

func TestSendMessage_RequiresActionThenTimeout(t *testing.T) {
	env := newTestEnv(t)
	env.chat.opts.RunTimeout = 30 * time.Millisecond
	session := startSession(t, env)
	env.api.runStatuses = []string{ai.RunStatusRequiresAction}

	_, err := env.chat.SendMessage(context.Background(), session.ID, "question")
	if !errors.Is(err, ErrRunTimedOut) {
		t.Fatalf("err = %v, want ErrRunTimedOut", err)
	}
	history, _ := env.chat.History(context.Background(), session.ID)
	if len(history) != 1 {
		t.Errorf("history = %+v, want only the user turn", history)
	}
}

func TestSendMessage_ContextCancelled(t *testing.T) {
	env := newTestEnv(t)
	session := startSession(t, env)
	env.api.runStatuses = []string{ai.RunStatusInProgress}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := env.chat.SendMessage(ctx, session.ID, "question")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestSendMessage_EmptyAndUnknown(t *testing.T) {
	env := newTestEnv(t)
	session := startSession(t, env)

	if _, err := env.chat.SendMessage(context.Background(), session.ID, "   "); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("blank err = %v, want ErrMessageEmpty", err)
	}
	if _, err := env.chat.SendMessage(context.Background(), "missing", "hi"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown session err = %v, want ErrSessionNotFound", err)
	}
}

func TestSendMessage_ThreadCreationFails(t *testing.T) {
	env := newTestEnv(t)
	session := startSession(t, env)
	env.api.createThreadErr = errors.New("service unavailable")

	if _, err := env.chat.SendMessage(context.Background(), session.ID, "hi"); err == nil {
		t.Fatal("expected error")
	}
	history, _ := env.chat.History(context.Background(), session.ID)
	stats, _ := env.chat.Stats(context.Background(), session.ID)
	if len(history) != 0 || stats.TotalQuestions != 0 || stats.ThreadActive {
		t.Errorf("history = %+v stats = %+v, want untouched", history, stats)
	}
}

func TestSendMessage_EmptyReplyNotRecorded(t *testing.T) {
	env := newTestEnv(t)
	session := startSession(t, env)
	env.api.runStatuses = []string{ai.RunStatusCompleted}
	env.api.messages = []ai.Message{{ID: "msg_img", Content: []ai.MessageContent{{Type: "image_file"}}}}

	result, err := env.chat.SendMessage(context.Background(), session.ID, "draw it")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if result.Reply != "" {
		t.Errorf("reply = %q, want empty", result.Reply)
	}
	history, _ := env.chat.History(context.Background(), session.ID)
	if len(history) != 1 {
		t.Errorf("history = %+v, want only the user turn", history)
	}
}

func TestResetConversation(t *testing.T) {
	env := newTestEnv(t)
	session := startSession(t, env)
	env.api.runStatuses = []string{ai.RunStatusCompleted}
	env.api.messages = []ai.Message{textMessage("ok")}
	if _, err := env.chat.SendMessage(context.Background(), session.ID, "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	reset, err := env.chat.ResetConversation(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ResetConversation: %v", err)
	}
	if reset.ThreadID != "" || len(reset.Turns) != 0 || reset.TotalQuestions != 0 {
		t.Errorf("session after reset = %+v", reset)
	}
	if env.store.Current().VectorStore() == "" {
		t.Error("conversation reset must not touch the document store")
	}
}

func TestResetConversation_RefreshesVectorStore(t *testing.T) {
	env := newTestEnv(t)
	session := startSession(t, env)
	if session.VectorStoreID == "" {
		t.Fatal("session has no vector store")
	}

	if _, err := env.docs.ResetAll(context.Background(), false); err != nil {
		t.Fatalf("ResetAll: %v", err)
	}
	reset, err := env.chat.ResetConversation(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ResetConversation: %v", err)
	}
	if reset.VectorStoreID != "" {
		t.Errorf("vector store = %q, want empty after document reset", reset.VectorStoreID)
	}
	stored, err := env.chat.GetSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.VectorStoreID != "" {
		t.Errorf("stored vector store = %q, want empty", stored.VectorStoreID)
	}
}

func TestSessionLocksReleased(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		session := startSession(t, env)
		env.api.runStatuses = []string{ai.RunStatusCompleted}
		env.api.messages = []ai.Message{textMessage("ok")}
		if _, err := env.chat.SendMessage(ctx, session.ID, "hi"); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
		if _, err := env.chat.ResetConversation(ctx, session.ID); err != nil {
			t.Fatalf("ResetConversation: %v", err)
		}
	}
	if _, err := env.chat.SendMessage(ctx, "unknown", "hi"); err == nil {
		t.Fatal("expected error for unknown session")
	}

	env.chat.locksMu.Lock()
	n := len(env.chat.locks)
	env.chat.locksMu.Unlock()
	if n != 0 {
		t.Errorf("lock entries = %d, want 0", n)
	}
}

func TestSessionLock_Serializes(t *testing.T) {
	env := newTestEnv(t)

	unlock := env.chat.lockSession("s1")
	acquired := make(chan struct{})
	go func() {
		release := env.chat.lockSession("s1")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the lock while the first held it")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the lock")
	}

	// the waiter releases right after close; wait for its cleanup
	deadline := time.Now().Add(time.Second)
	for {
		env.chat.locksMu.Lock()
		n := len(env.chat.locks)
		env.chat.locksMu.Unlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("lock entries = %d, want 0", n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTranscript(t *testing.T) {
	env := newTestEnv(t)
	session := startSession(t, env)
	env.api.runStatuses = []string{ai.RunStatusCompleted}
	env.api.messages = []ai.Message{textMessage("Take once daily.")}
	if _, err := env.chat.SendMessage(context.Background(), session.ID, "Dosage?"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	transcript, err := env.chat.Transcript(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	want := "User: Dosage?\n\nAssistant: Take once daily.\n\n"
	if transcript.Content != want {
		t.Errorf("content = %q, want %q", transcript.Content, want)
	}
	if !regexp.MustCompile(`^chat_history_\d{8}_\d{6}\.txt$`).MatchString(transcript.FileName) {
		t.Errorf("file name = %q", transcript.FileName)
	}
}

func TestDebugAndToggle(t *testing.T) {
	env := newTestEnv(t)
	session := startSession(t, env)

	on, err := env.chat.ToggleDebug(context.Background(), session.ID)
	if err != nil || !on {
		t.Fatalf("ToggleDebug = %v, %v", on, err)
	}
	info, err := env.chat.Debug(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Debug: %v", err)
	}
	if strings.Contains(info.APIKeyMasked, "0123") {
		t.Errorf("api key not masked: %q", info.APIKeyMasked)
	}
	if info.VectorStoreID != session.VectorStoreID {
		t.Errorf("vector store = %q, want %q", info.VectorStoreID, session.VectorStoreID)
	}
	if got := env.chat.SuggestedQuestions(); len(got) != 2 {
		t.Errorf("suggested = %v", got)
	}
}
