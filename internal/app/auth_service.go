package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"docassist/internal/model"
	"docassist/internal/pkg/jwtutil"
)

// AuthService trades the shared access key for a session token. An empty
// access key leaves the service open.
type AuthService struct {
	chat          *ChatService
	accessKeyHash []byte
	jwtSecret     string
	jwtExpiration time.Duration
}

type SessionResult struct {
	Token   string         `json:"token"`
	Session *model.Session `json:"session"`
}

func NewAuthService(chat *ChatService, accessKey, jwtSecret string, jwtExpiration time.Duration) (*AuthService, error) {
	s := &AuthService{
		chat:          chat,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
	if accessKey != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(accessKey), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash access key failed: %w", err)
		}
		s.accessKeyHash = hash
	}
	return s, nil
}

func (s *AuthService) CheckAccessKey(accessKey string) error {
	if s.accessKeyHash == nil {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(s.accessKeyHash, []byte(accessKey)); err != nil {
		return ErrInvalidAccessKey
	}
	return nil
}

// OpenSession validates the access key, initialises a chat session and
// returns a token bound to it.
func (s *AuthService) OpenSession(ctx context.Context, accessKey string) (*SessionResult, error) {
	if err := s.CheckAccessKey(accessKey); err != nil {
		return nil, err
	}
	session, err := s.chat.InitSession(ctx)
	if err != nil {
		return nil, err
	}
	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, session.ID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Token: token, Session: session}, nil
}
