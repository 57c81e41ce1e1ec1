package domain

import "time"

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
)

const (
	MaxTitleLength   = 100
	MaxContentLength = 2000
)

// Post represents a blog post authored by a user.
type Post struct {
	ID        int64
	Title     string
	Content   string
	AuthorID  int64
	Tags      []string
	Views     int64
	Status    PostStatus
	CreatedAt time.Time
	UpdatedAt time.Time

	// Likes holds the ids of users who liked the post.
	Likes []int64

	// Author and Likers are populated from the referenced users on read paths
	// that need them for display.
	Author *User
	Likers []User
}

// LikeCount is derived from the likes set and never stored independently.
func (p *Post) LikeCount() int {
	return len(p.Likes)
}
