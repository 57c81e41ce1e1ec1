package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

const createPostsSchema = `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	author_id INTEGER NOT NULL REFERENCES users(id),
	tags TEXT NOT NULL DEFAULT '',
	views INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'published',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_status_created ON posts(status, created_at DESC);

CREATE TABLE IF NOT EXISTS post_likes (
	post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	user_id INTEGER NOT NULL REFERENCES users(id),
	created_at DATETIME NOT NULL,
	PRIMARY KEY (post_id, user_id)
);

CREATE VIRTUAL TABLE IF NOT EXISTS posts_fts USING fts5(
	title, content,
	content='posts', content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS posts_fts_insert AFTER INSERT ON posts BEGIN
	INSERT INTO posts_fts(rowid, title, content) VALUES (new.id, new.title, new.content);
END;

CREATE TRIGGER IF NOT EXISTS posts_fts_delete AFTER DELETE ON posts BEGIN
	INSERT INTO posts_fts(posts_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
END;

CREATE TRIGGER IF NOT EXISTS posts_fts_update AFTER UPDATE OF title, content ON posts BEGIN
	INSERT INTO posts_fts(posts_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
	INSERT INTO posts_fts(rowid, title, content) VALUES (new.id, new.title, new.content);
END;
`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsSchema); err != nil {
		return fmt.Errorf("create posts schema: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Status == "" {
		post.Status = domain.PostStatusPublished
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO posts (title, content, author_id, tags, views, status, created_at, updated_at)
VALUES (?, ?, ?, ?, 0, ?, ?, ?)`,
		post.Title,
		post.Content,
		post.AuthorID,
		joinTags(post.Tags),
		string(post.Status),
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post last insert id: %w", err)
	}
	post.ID = id
	return id, nil
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	post.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
UPDATE posts
SET title = ?, content = ?, tags = ?, updated_at = ?
WHERE id = ?`,
		post.Title,
		post.Content,
		joinTags(post.Tags),
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update post rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("post not found")
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

const postColumns = `p.id, p.title, p.content, p.author_id, p.tags, p.views, p.status, p.created_at, p.updated_at`

func (r *PostRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+postColumns+`
FROM posts p
WHERE p.id = ?`,
		id,
	)
	return scanPost(row)
}

func (r *PostRepository) GetPublished(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+postColumns+`, u.username, u.avatar, u.bio
FROM posts p
JOIN users u ON u.id = p.author_id
WHERE p.id = ? AND p.status = ?`,
		id, string(domain.PostStatusPublished),
	)

	var (
		post   domain.Post
		tags   string
		status string
		author domain.User
	)
	if err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.AuthorID,
		&tags,
		&post.Views,
		&status,
		&post.CreatedAt,
		&post.UpdatedAt,
		&author.Username,
		&author.Avatar,
		&author.Bio,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post not found")
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	post.Tags = splitTags(tags)
	post.Status = domain.PostStatus(status)
	author.ID = post.AuthorID
	post.Author = &author

	if err := r.populateLikers(ctx, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepository) populateLikers(ctx context.Context, post *domain.Post) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT u.id, u.username
FROM post_likes pl
JOIN users u ON u.id = pl.user_id
WHERE pl.post_id = ?
ORDER BY pl.created_at, u.id`,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("list likers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var liker domain.User
		if err := rows.Scan(&liker.ID, &liker.Username); err != nil {
			return fmt.Errorf("scan liker: %w", err)
		}
		post.Likers = append(post.Likers, liker)
		post.Likes = append(post.Likes, liker.ID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate likers: %w", err)
	}
	return nil
}

func (r *PostRepository) ListPublished(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+postColumns+`, u.username, u.avatar
FROM posts p
JOIN users u ON u.id = p.author_id
WHERE p.status = ?
ORDER BY p.created_at DESC, p.id DESC
LIMIT ? OFFSET ?`,
		string(domain.PostStatusPublished), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

func (r *PostRepository) CountPublished(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE status = ?`,
		string(domain.PostStatusPublished)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

func (r *PostRepository) Search(ctx context.Context, query string) ([]domain.Post, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+postColumns+`, u.username, u.avatar
FROM posts_fts
JOIN posts p ON p.id = posts_fts.rowid
JOIN users u ON u.id = p.author_id
WHERE posts_fts MATCH ? AND p.status = ?
ORDER BY rank`,
		match, string(domain.PostStatusPublished),
	)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

// ftsQuery quotes each whitespace separated term so user input cannot be
// interpreted as fts5 query syntax.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	terms := make([]string, len(fields))
	for i, f := range fields {
		terms[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

func (r *PostRepository) IncrementViews(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE posts SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment views rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("post not found")
	}
	return nil
}

func (r *PostRepository) AddLike(ctx context.Context, postID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT OR IGNORE INTO post_likes (post_id, user_id, created_at)
VALUES (?, ?, ?)`,
		postID, userID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("add like: %w", err)
	}
	return nil
}

func (r *PostRepository) RemoveLike(ctx context.Context, postID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		return fmt.Errorf("remove like: %w", err)
	}
	return nil
}

func (r *PostRepository) HasLike(ctx context.Context, postID, userID int64) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS(SELECT 1 FROM post_likes WHERE post_id = ? AND user_id = ?)`,
		postID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return exists == 1, nil
}

func (r *PostRepository) CountLikes(ctx context.Context, postID int64) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM post_likes WHERE post_id = ?`, postID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return total, nil
}

func collectPosts(rows *sql.Rows) ([]domain.Post, error) {
	var posts []domain.Post
	for rows.Next() {
		var (
			post   domain.Post
			tags   string
			status string
			author domain.User
		)
		if err := rows.Scan(
			&post.ID,
			&post.Title,
			&post.Content,
			&post.AuthorID,
			&tags,
			&post.Views,
			&status,
			&post.CreatedAt,
			&post.UpdatedAt,
			&author.Username,
			&author.Avatar,
		); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		post.Tags = splitTags(tags)
		post.Status = domain.PostStatus(status)
		author.ID = post.AuthorID
		post.Author = &author
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func scanPost(row interface {
	Scan(dest ...any) error
}) (*domain.Post, error) {
	var (
		post   domain.Post
		tags   string
		status string
	)
	if err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.AuthorID,
		&tags,
		&post.Views,
		&status,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post not found")
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	post.Tags = splitTags(tags)
	post.Status = domain.PostStatus(status)
	return &post, nil
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
