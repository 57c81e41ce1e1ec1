package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

const (
	// PageSize is the fixed page size for the paginated post listing.
	PageSize = 6
	// RecentLimit caps the recent-posts block on the home page.
	RecentLimit = 10
)

// PostInput carries the raw form fields for creating or updating a post.
// Tags is the comma separated string as typed by the user.
type PostInput struct {
	Title   string
	Content string
	Tags    string
}

// Pagination describes the page window of a post listing.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	HasNext     bool
	HasPrev     bool
}

// LikeResult reflects the state of a post's likes after a toggle.
type LikeResult struct {
	Likes int64
	Liked bool
}

// Stats aggregates the counters shown on the home page.
type Stats struct {
	TotalPosts int64
	TotalUsers int64
}

// PostService orchestrates the post lifecycle: listing, search, CRUD,
// likes and views.
type PostService interface {
	Recent(ctx context.Context, limit int) ([]domain.Post, error)
	ListPublished(ctx context.Context, page int) ([]domain.Post, Pagination, error)
	Search(ctx context.Context, query string) ([]domain.Post, error)
	Create(ctx context.Context, sess *domain.Session, in PostInput) (*domain.Post, error)
	// Get serves the public read path: published posts only, with the view
	// counter incremented before the post is returned.
	Get(ctx context.Context, id int64) (*domain.Post, error)
	// GetForEdit loads a post for its author regardless of status.
	GetForEdit(ctx context.Context, sess *domain.Session, id int64) (*domain.Post, error)
	Update(ctx context.Context, sess *domain.Session, id int64, in PostInput) (*domain.Post, error)
	Delete(ctx context.Context, sess *domain.Session, id int64) error
	ToggleLike(ctx context.Context, sess *domain.Session, id int64) (LikeResult, error)
	Stats(ctx context.Context) (Stats, error)
}

type postService struct {
	posts repository.PostRepository
	users repository.UserRepository
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository) PostService {
	return &postService{
		posts: posts,
		users: users,
	}
}

func (s *postService) Recent(ctx context.Context, limit int) ([]domain.Post, error) {
	if limit <= 0 {
		limit = RecentLimit
	}
	return s.posts.ListPublished(ctx, limit, 0)
}

func (s *postService) ListPublished(ctx context.Context, page int) ([]domain.Post, Pagination, error) {
	if page < 1 {
		page = 1
	}

	posts, err := s.posts.ListPublished(ctx, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, Pagination{}, err
	}
	total, err := s.posts.CountPublished(ctx)
	if err != nil {
		return nil, Pagination{}, err
	}

	totalPages := int((total + PageSize - 1) / PageSize)
	return posts, Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}, nil
}

func (s *postService) Search(ctx context.Context, query string) ([]domain.Post, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	return s.posts.Search(ctx, query)
}

func (s *postService) Create(ctx context.Context, sess *domain.Session, in PostInput) (*domain.Post, error) {
	if err := Authenticated(sess); err != nil {
		return nil, err
	}

	title, content, err := validatePostInput(in)
	if err != nil {
		return nil, err
	}

	post := &domain.Post{
		Title:    title,
		Content:  content,
		AuthorID: sess.UserID,
		Tags:     splitTags(in.Tags),
		Status:   domain.PostStatusPublished,
	}
	if _, err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

func (s *postService) Get(ctx context.Context, id int64) (*domain.Post, error) {
	post, err := s.posts.GetPublished(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.posts.IncrementViews(ctx, id); err != nil {
		return nil, fmt.Errorf("increment views: %w", err)
	}
	// reflect the increment in the returned snapshot
	post.Views++
	return post, nil
}

func (s *postService) GetForEdit(ctx context.Context, sess *domain.Session, id int64) (*domain.Post, error) {
	if err := Authenticated(sess); err != nil {
		return nil, err
	}

	post, err := s.posts.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := Authorize(sess, post.AuthorID); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) Update(ctx context.Context, sess *domain.Session, id int64, in PostInput) (*domain.Post, error) {
	post, err := s.GetForEdit(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	title, content, err := validatePostInput(in)
	if err != nil {
		return nil, err
	}

	// author and status are immutable through this path
	post.Title = title
	post.Content = content
	post.Tags = splitTags(in.Tags)

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

func (s *postService) Delete(ctx context.Context, sess *domain.Session, id int64) error {
	if _, err := s.GetForEdit(ctx, sess, id); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (s *postService) ToggleLike(ctx context.Context, sess *domain.Session, id int64) (LikeResult, error) {
	if err := Authenticated(sess); err != nil {
		return LikeResult{}, err
	}

	if _, err := s.posts.Get(ctx, id); err != nil {
		if isNotFound(err) {
			return LikeResult{}, ErrNotFound
		}
		return LikeResult{}, err
	}

	liked, err := s.posts.HasLike(ctx, id, sess.UserID)
	if err != nil {
		return LikeResult{}, err
	}
	if liked {
		err = s.posts.RemoveLike(ctx, id, sess.UserID)
	} else {
		err = s.posts.AddLike(ctx, id, sess.UserID)
	}
	if err != nil {
		return LikeResult{}, err
	}

	count, err := s.posts.CountLikes(ctx, id)
	if err != nil {
		return LikeResult{}, err
	}
	return LikeResult{Likes: count, Liked: !liked}, nil
}

func (s *postService) Stats(ctx context.Context) (Stats, error) {
	totalPosts, err := s.posts.CountPublished(ctx)
	if err != nil {
		return Stats{}, err
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalPosts: totalPosts, TotalUsers: totalUsers}, nil
}

func validatePostInput(in PostInput) (title, content string, err error) {
	title = strings.TrimSpace(in.Title)
	content = strings.TrimSpace(in.Content)

	if title == "" || content == "" {
		return "", "", validationErr("Title and content are required")
	}
	// limits are in characters, not bytes
	if utf8.RuneCountInString(title) > domain.MaxTitleLength {
		return "", "", validationErr(fmt.Sprintf("Title must be at most %d characters", domain.MaxTitleLength))
	}
	if utf8.RuneCountInString(content) > domain.MaxContentLength {
		return "", "", validationErr(fmt.Sprintf("Content must be at most %d characters", domain.MaxContentLength))
	}
	return title, content, nil
}

// splitTags turns a comma separated string into trimmed, lowercased tags,
// dropping empty segments and preserving order.
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var tags []string
	for _, seg := range strings.Split(raw, ",") {
		tag := strings.ToLower(strings.TrimSpace(seg))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}
