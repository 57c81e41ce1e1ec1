package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"blog-server/internal/service"
)

func (h *Handler) home(c *gin.Context) {
	ctx := c.Request.Context()
	sess := currentSession(c)

	posts, err := h.posts.Recent(ctx, service.RecentLimit)
	if err != nil {
		h.logger.Errorf("home page: %v", err)
		c.HTML(http.StatusOK, "index.html", gin.H{
			"Title": "Welcome",
			"Posts": nil,
			"Stats": service.Stats{},
			"User":  sess,
			"Error": "Unable to load posts",
		})
		return
	}
	stats, err := h.posts.Stats(ctx)
	if err != nil {
		h.logger.Errorf("home stats: %v", err)
		stats = service.Stats{}
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title": "Welcome",
		"Posts": posts,
		"Stats": stats,
		"User":  sess,
	})
}

func (h *Handler) search(c *gin.Context) {
	query := c.Query("q")
	sess := currentSession(c)

	posts, err := h.posts.Search(c.Request.Context(), query)
	if err != nil {
		h.logger.Errorf("search %q: %v", query, err)
		c.HTML(http.StatusOK, "search.html", gin.H{
			"Posts": nil,
			"Query": query,
			"User":  sess,
			"Error": "Search temporarily unavailable",
		})
		return
	}

	c.HTML(http.StatusOK, "search.html", gin.H{
		"Posts": posts,
		"Query": query,
		"User":  sess,
	})
}

func (h *Handler) listPosts(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	sess := currentSession(c)

	posts, pagination, err := h.posts.ListPublished(c.Request.Context(), page)
	if err != nil {
		h.logger.Errorf("list posts: %v", err)
		c.HTML(http.StatusOK, "posts.html", gin.H{
			"Posts":      nil,
			"Pagination": service.Pagination{CurrentPage: 1},
			"User":       sess,
			"Error":      "Unable to load posts",
		})
		return
	}

	c.HTML(http.StatusOK, "posts.html", gin.H{
		"Posts":      posts,
		"Pagination": pagination,
		"User":       sess,
	})
}

func (h *Handler) createPostForm(c *gin.Context) {
	c.HTML(http.StatusOK, "create.html", gin.H{
		"User": currentSession(c),
		"Form": service.PostInput{},
	})
}

func (h *Handler) createPost(c *gin.Context) {
	sess := currentSession(c)
	in := service.PostInput{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
		Tags:    c.PostForm("tags"),
	}

	post, err := h.posts.Create(c.Request.Context(), sess, in)
	if err != nil {
		if msg, ok := isValidation(err); ok {
			c.HTML(http.StatusOK, "create.html", gin.H{
				"User":  sess,
				"Form":  in,
				"Error": msg,
			})
			return
		}
		h.logger.Errorf("create post: %v", err)
		c.HTML(http.StatusOK, "create.html", gin.H{
			"User":  sess,
			"Form":  in,
			"Error": "Failed to create post. Please try again.",
		})
		return
	}

	c.Redirect(http.StatusFound, "/posts/"+strconv.FormatInt(post.ID, 10))
}

func (h *Handler) showPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		h.notFound(c)
		return
	}
	sess := currentSession(c)

	post, err := h.posts.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.renderError(c, err)
		return
	}

	liked := false
	isAuthor := false
	if sess != nil {
		isAuthor = sess.UserID == post.AuthorID
		for _, uid := range post.Likes {
			if uid == sess.UserID {
				liked = true
				break
			}
		}
	}

	c.HTML(http.StatusOK, "post.html", gin.H{
		"Post":     post,
		"User":     sess,
		"Liked":    liked,
		"IsAuthor": isAuthor,
	})
}

func (h *Handler) likePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	result, err := h.posts.ToggleLike(c.Request.Context(), currentSession(c), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		h.logger.Errorf("like post %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"likes": result.Likes, "liked": result.Liked})
}

func (h *Handler) editPostForm(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		h.notFound(c)
		return
	}
	sess := currentSession(c)

	post, err := h.posts.GetForEdit(c.Request.Context(), sess, id)
	if err != nil {
		h.renderPostError(c, err)
		return
	}

	c.HTML(http.StatusOK, "edit.html", gin.H{
		"Post": post,
		"User": sess,
		"Form": service.PostInput{
			Title:   post.Title,
			Content: post.Content,
			Tags:    joinTags(post.Tags),
		},
	})
}

func (h *Handler) updatePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		h.notFound(c)
		return
	}
	sess := currentSession(c)
	in := service.PostInput{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
		Tags:    c.PostForm("tags"),
	}

	post, err := h.posts.Update(c.Request.Context(), sess, id, in)
	if err != nil {
		if msg, ok := isValidation(err); ok {
			// validation only fires after the ownership check, so the
			// reload cannot fail for a reachable post
			current, gerr := h.posts.GetForEdit(c.Request.Context(), sess, id)
			if gerr != nil {
				h.renderPostError(c, gerr)
				return
			}
			c.HTML(http.StatusOK, "edit.html", gin.H{
				"Post":  current,
				"User":  sess,
				"Form":  in,
				"Error": msg,
			})
			return
		}
		h.renderPostError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/posts/"+strconv.FormatInt(post.ID, 10))
}

func (h *Handler) deletePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	err := h.posts.Delete(c.Request.Context(), currentSession(c), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
	case errors.Is(err, service.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	default:
		h.logger.Errorf("delete post %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// renderPostError maps post mutation failures to the matching page, keeping
// not-found and access-denied distinguishable.
func (h *Handler) renderPostError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.notFound(c)
	case errors.Is(err, service.ErrAccessDenied):
		h.renderForbidden(c)
	case errors.Is(err, service.ErrLoginRequired):
		c.Redirect(http.StatusFound, "/users/login")
	default:
		h.renderError(c, err)
	}
}

func postID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func joinTags(tags []string) string {
	return strings.Join(tags, ", ")
}
