package repository

import (
	"context"

	"blog-server/internal/domain"
)

// PostRepository exposes persistence operations for Post aggregates.
//
// Likes and views are mutated through store-level primitives (set insert or
// delete, counter increment) rather than read-modify-write over the whole
// document, so concurrent mutations of the same post cannot lose updates.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) (int64, error)
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id int64) error

	// Get fetches a post by id regardless of status, without population.
	Get(ctx context.Context, id int64) (*domain.Post, error)
	// GetPublished fetches a published post with author and likers populated.
	GetPublished(ctx context.Context, id int64) (*domain.Post, error)
	ListPublished(ctx context.Context, limit, offset int) ([]domain.Post, error)
	CountPublished(ctx context.Context) (int64, error)
	// Search returns published posts matching the full-text query, best match first.
	Search(ctx context.Context, query string) ([]domain.Post, error)

	IncrementViews(ctx context.Context, id int64) error
	AddLike(ctx context.Context, postID, userID int64) error
	RemoveLike(ctx context.Context, postID, userID int64) error
	HasLike(ctx context.Context, postID, userID int64) (bool, error)
	CountLikes(ctx context.Context, postID int64) (int64, error)
}
