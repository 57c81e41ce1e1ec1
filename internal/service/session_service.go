package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

// DefaultSessionTTL is applied when no TTL is configured.
const DefaultSessionTTL = 24 * time.Hour

// SessionService manages the session-token to identity binding.
type SessionService interface {
	// Create establishes a new session bound to the user's identity and
	// returns it with a fresh opaque token.
	Create(ctx context.Context, user *domain.User) (*domain.Session, error)
	// Get returns nil without error for absent or expired tokens.
	Get(ctx context.Context, token string) (*domain.Session, error)
	// Destroy removes the session; it succeeds even when the token is
	// already gone.
	Destroy(ctx context.Context, token string) error
	PurgeExpired(ctx context.Context) error
	TTL() time.Duration
}

type sessionService struct {
	sessions repository.SessionRepository
	ttl      time.Duration
}

func NewSessionService(sessions repository.SessionRepository, ttl time.Duration) SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &sessionService{
		sessions: sessions,
		ttl:      ttl,
	}
}

func (s *sessionService) Create(ctx context.Context, user *domain.User) (*domain.Session, error) {
	session := &domain.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *sessionService) Get(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, nil
	}
	return s.sessions.Get(ctx, token)
}

func (s *sessionService) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

func (s *sessionService) PurgeExpired(ctx context.Context) error {
	return s.sessions.DeleteExpired(ctx)
}

func (s *sessionService) TTL() time.Duration {
	return s.ttl
}
