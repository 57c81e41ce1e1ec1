package repository

import (
	"context"

	"blog-server/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByUsernameOrEmail resolves the single supplied identifier against
	// either the username or the email column.
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	UpdateProfile(ctx context.Context, id int64, bio, avatar string) error
	Count(ctx context.Context) (int64, error)
}

// SessionRepository stores session tokens with TTL based expiry.
type SessionRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, session *domain.Session) error
	// Get returns nil without error when the token is absent or expired.
	Get(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) error
}
