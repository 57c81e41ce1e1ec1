package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
	"blog-server/internal/repository/sqlite"
	"blog-server/internal/service"
)

type testEnv struct {
	db *sql.DB

	posts    service.PostService
	users    service.UserService
	sessions service.SessionService

	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:          db,
		postRepo:    sqlite.NewPostRepository(db),
		userRepo:    sqlite.NewUserRepository(db),
		sessionRepo: sqlite.NewSessionRepository(db),
	}
	if err := env.userRepo.Init(ctx); err != nil {
		t.Fatalf("init user repository: %v", err)
	}
	if err := env.postRepo.Init(ctx); err != nil {
		t.Fatalf("init post repository: %v", err)
	}
	if err := env.sessionRepo.Init(ctx); err != nil {
		t.Fatalf("init session repository: %v", err)
	}

	env.posts = service.NewPostService(env.postRepo, env.userRepo)
	env.users = service.NewUserService(env.userRepo)
	env.sessions = service.NewSessionService(env.sessionRepo, 0)
	return env
}

// archivePost flips a post out of the published state directly in the store.
func archivePost(t *testing.T, env *testEnv, id int64) {
	t.Helper()
	if _, err := env.db.Exec(`UPDATE posts SET status = ? WHERE id = ?`, string(domain.PostStatusArchived), id); err != nil {
		t.Fatalf("archive post %d: %v", id, err)
	}
}

// registerUser creates an account and returns a session bound to it.
func (env *testEnv) registerUser(t *testing.T, username string) *domain.Session {
	t.Helper()
	user, err := env.users.Register(context.Background(), service.RegisterInput{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	sess, err := env.sessions.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("create session for %s: %v", username, err)
	}
	return sess
}

func TestCreatePost_AuthorFromSession(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.registerUser(t, "alice")

	post, err := env.posts.Create(ctx, sess, service.PostInput{
		Title:   "Hi",
		Content: "World",
		Tags:    "Go, WEB ,, data ",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(post.AuthorID, qt.Equals, sess.UserID)
	c.Assert(post.Status, qt.Equals, domain.PostStatusPublished)
	c.Assert(post.Tags, qt.DeepEquals, []string{"go", "web", "data"})
}

func TestCreatePost_RequiresSession(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)

	_, err := env.posts.Create(context.Background(), nil, service.PostInput{Title: "x", Content: "y"})
	c.Assert(err, qt.ErrorIs, service.ErrLoginRequired)
}

func TestCreatePost_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   service.PostInput
	}{
		{name: "missing title", in: service.PostInput{Content: "body"}},
		{name: "missing content", in: service.PostInput{Title: "t"}},
		{name: "whitespace only", in: service.PostInput{Title: "   ", Content: "\t"}},
		{name: "title too long", in: service.PostInput{Title: strings.Repeat("a", 101), Content: "body"}},
		{name: "title too long multibyte", in: service.PostInput{Title: strings.Repeat("é", 101), Content: "body"}},
		{name: "content too long", in: service.PostInput{Title: "t", Content: strings.Repeat("b", 2001)}},
		{name: "content too long multibyte", in: service.PostInput{Title: "t", Content: strings.Repeat("ü", 2001)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			env := newTestEnv(t)
			sess := env.registerUser(t, "alice")

			_, err := env.posts.Create(context.Background(), sess, tt.in)
			c.Assert(service.IsValidation(err), qt.IsTrue)

			total, err := env.postRepo.CountPublished(context.Background())
			c.Assert(err, qt.IsNil)
			c.Assert(total, qt.Equals, int64(0))
		})
	}
}

func TestCreatePost_LimitsCountCharactersNotBytes(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.registerUser(t, "alice")

	// 100 two-byte runes exceed the limit in bytes but not in characters
	title := strings.Repeat("é", 100)
	content := strings.Repeat("ü", 2000)

	post, err := env.posts.Create(ctx, sess, service.PostInput{Title: title, Content: content})
	c.Assert(err, qt.IsNil)
	c.Assert(post.Title, qt.Equals, title)

	stored, err := env.postRepo.Get(ctx, post.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Content, qt.Equals, content)
}

func TestGetPost_IncrementsViews(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.registerUser(t, "alice")

	created, err := env.posts.Create(ctx, sess, service.PostInput{Title: "Hi", Content: "World"})
	c.Assert(err, qt.IsNil)

	for i := int64(1); i <= 3; i++ {
		post, err := env.posts.Get(ctx, created.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(post.Views, qt.Equals, i)
	}

	stored, err := env.postRepo.Get(ctx, created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Views, qt.Equals, int64(3))
}

func TestGetPost_PopulatesAuthorAndLikers(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.registerUser(t, "alice")
	bob := env.registerUser(t, "bob")

	created, err := env.posts.Create(ctx, alice, service.PostInput{Title: "Hi", Content: "World"})
	c.Assert(err, qt.IsNil)

	_, err = env.posts.ToggleLike(ctx, bob, created.ID)
	c.Assert(err, qt.IsNil)

	post, err := env.posts.Get(ctx, created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(post.Author, qt.IsNotNil)
	c.Assert(post.Author.Username, qt.Equals, "alice")
	c.Assert(len(post.Likers), qt.Equals, 1)
	c.Assert(post.Likers[0].Username, qt.Equals, "bob")
	c.Assert(post.LikeCount(), qt.Equals, 1)
}

func TestGetPost_HidesUnpublished(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.registerUser(t, "alice")

	created, err := env.posts.Create(ctx, sess, service.PostInput{Title: "Hi", Content: "World"})
	c.Assert(err, qt.IsNil)
	archivePost(t, env, created.ID)

	// hidden on the public read path, even from the author
	_, err = env.posts.Get(ctx, created.ID)
	c.Assert(err, qt.ErrorIs, service.ErrNotFound)

	// but the author can still reach it for editing
	post, err := env.posts.GetForEdit(ctx, sess, created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(post.Status, qt.Equals, domain.PostStatusArchived)
}

func TestToggleLike_DoubleToggleRoundTrip(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.registerUser(t, "alice")
	bob := env.registerUser(t, "bob")

	created, err := env.posts.Create(ctx, alice, service.PostInput{Title: "Hi", Content: "World"})
	c.Assert(err, qt.IsNil)

	first, err := env.posts.ToggleLike(ctx, bob, created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(first, qt.Equals, service.LikeResult{Likes: 1, Liked: true})

	second, err := env.posts.ToggleLike(ctx, bob, created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(second, qt.Equals, service.LikeResult{Likes: 0, Liked: false})

	post, err := env.posts.Get(ctx, created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(post.LikeCount(), qt.Equals, 0)
}

func TestToggleLike_CountEqualsSetSize(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.registerUser(t, "alice")

	created, err := env.posts.Create(ctx, alice, service.PostInput{Title: "Hi", Content: "World"})
	c.Assert(err, qt.IsNil)

	for i := 0; i < 4; i++ {
		liker := env.registerUser(t, fmt.Sprintf("liker%d", i))
		res, err := env.posts.ToggleLike(ctx, liker, created.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(res.Likes, qt.Equals, int64(i+1))
		c.Assert(res.Liked, qt.IsTrue)
	}

	post, err := env.posts.Get(ctx, created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(post.LikeCount(), qt.Equals, 4)
	c.Assert(len(post.Likes), qt.Equals, len(post.Likers))
}

func TestToggleLike_Errors(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.registerUser(t, "alice")

	_, err := env.posts.ToggleLike(ctx, nil, 1)
	c.Assert(err, qt.ErrorIs, service.ErrLoginRequired)

	_, err = env.posts.ToggleLike(ctx, sess, 42)
	c.Assert(err, qt.ErrorIs, service.ErrNotFound)
}

func TestUpdatePost_NonAuthorDenied(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.registerUser(t, "alice")
	bob := env.registerUser(t, "bob")

	created, err := env.posts.Create(ctx, alice, service.PostInput{Title: "Hi", Content: "World"})
	c.Assert(err, qt.IsNil)

	_, err = env.posts.Update(ctx, bob, created.ID, service.PostInput{Title: "Hacked", Content: "gotcha"})
	c.Assert(err, qt.ErrorIs, service.ErrAccessDenied)

	stored, err := env.postRepo.Get(ctx, created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Title, qt.Equals, "Hi")
	c.Assert(stored.Content, qt.Equals, "World")
}

func TestUpdatePost_AuthorSucceeds(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.registerUser(t, "alice")

	created, err := env.posts.Create(ctx, alice, service.PostInput{Title: "Hi", Content: "World", Tags: "old"})
	c.Assert(err, qt.IsNil)

	updated, err := env.posts.Update(ctx, alice, created.ID, service.PostInput{
		Title:   "Hello",
		Content: "Everyone",
		Tags:    "New, Tags",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(updated.Title, qt.Equals, "Hello")
	c.Assert(updated.AuthorID, qt.Equals, alice.UserID)
	c.Assert(updated.Tags, qt.DeepEquals, []string{"new", "tags"})

	stored, err := env.postRepo.Get(ctx, created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Content, qt.Equals, "Everyone")
	c.Assert(stored.Status, qt.Equals, domain.PostStatusPublished)
}

func TestUpdatePost_NotFoundDistinctFromDenied(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	sess := env.registerUser(t, "alice")

	_, err := env.posts.Update(context.Background(), sess, 42, service.PostInput{Title: "t", Content: "c"})
	c.Assert(err, qt.ErrorIs, service.ErrNotFound)
}

func TestDeletePost(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.registerUser(t, "alice")
	bob := env.registerUser(t, "bob")

	created, err := env.posts.Create(ctx, alice, service.PostInput{Title: "Hi", Content: "World"})
	c.Assert(err, qt.IsNil)

	err = env.posts.Delete(ctx, bob, created.ID)
	c.Assert(err, qt.ErrorIs, service.ErrAccessDenied)

	err = env.posts.Delete(ctx, alice, created.ID)
	c.Assert(err, qt.IsNil)

	_, err = env.posts.Get(ctx, created.ID)
	c.Assert(err, qt.ErrorIs, service.ErrNotFound)
}

func TestListPublished_Pagination(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.registerUser(t, "alice")

	for i := 0; i < 13; i++ {
		_, err := env.posts.Create(ctx, sess, service.PostInput{
			Title:   fmt.Sprintf("Post %d", i),
			Content: "body",
		})
		c.Assert(err, qt.IsNil)
	}

	posts, pagination, err := env.posts.ListPublished(ctx, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(len(posts), qt.Equals, 6)
	c.Assert(pagination, qt.Equals, service.Pagination{CurrentPage: 1, TotalPages: 3, HasNext: true, HasPrev: false})

	posts, pagination, err = env.posts.ListPublished(ctx, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(len(posts), qt.Equals, 1)
	c.Assert(pagination, qt.Equals, service.Pagination{CurrentPage: 3, TotalPages: 3, HasNext: false, HasPrev: true})
}

func TestListPublished_NewestFirst(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.registerUser(t, "alice")

	for _, title := range []string{"First", "Second", "Third"} {
		_, err := env.posts.Create(ctx, sess, service.PostInput{Title: title, Content: "body"})
		c.Assert(err, qt.IsNil)
	}

	posts, _, err := env.posts.ListPublished(ctx, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(len(posts), qt.Equals, 3)
	c.Assert(posts[0].Title, qt.Equals, "Third")
	c.Assert(posts[2].Title, qt.Equals, "First")
}

func TestSearch_EmptyQueryReturnsNothing(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.registerUser(t, "alice")

	_, err := env.posts.Create(ctx, sess, service.PostInput{Title: "Hi", Content: "World"})
	c.Assert(err, qt.IsNil)

	for _, query := range []string{"", "   ", "\t\n"} {
		posts, err := env.posts.Search(ctx, query)
		c.Assert(err, qt.IsNil)
		c.Assert(len(posts), qt.Equals, 0)
	}
}

func TestSearch_MatchesTitleAndContent(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.registerUser(t, "alice")

	_, err := env.posts.Create(ctx, sess, service.PostInput{Title: "Gardening tips", Content: "soil and water"})
	c.Assert(err, qt.IsNil)
	_, err = env.posts.Create(ctx, sess, service.PostInput{Title: "Cooking", Content: "gardening as inspiration"})
	c.Assert(err, qt.IsNil)
	_, err = env.posts.Create(ctx, sess, service.PostInput{Title: "Travel", Content: "unrelated"})
	c.Assert(err, qt.IsNil)

	posts, err := env.posts.Search(ctx, "gardening")
	c.Assert(err, qt.IsNil)
	c.Assert(len(posts), qt.Equals, 2)
}

func TestStats(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.registerUser(t, "alice")
	env.registerUser(t, "bob")

	_, err := env.posts.Create(ctx, alice, service.PostInput{Title: "Hi", Content: "World"})
	c.Assert(err, qt.IsNil)

	stats, err := env.posts.Stats(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(stats, qt.Equals, service.Stats{TotalPosts: 1, TotalUsers: 2})
}
