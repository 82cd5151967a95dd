package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one chat conversation. ThreadID stays empty until the first turn.
type Session struct {
	ID             string    `json:"id"`
	ThreadID       string    `json:"thread_id"`
	Turns          []Turn    `json:"turns"`
	TotalQuestions int       `json:"total_questions"`
	StartedAt      time.Time `json:"started_at"`
	VectorStoreID  string    `json:"vector_store_id"`
	Debug          bool      `json:"debug"`
}

func (s *Session) Reset(now time.Time) {
	s.ThreadID = ""
	s.Turns = nil
	s.TotalQuestions = 0
	s.StartedAt = now
}
