package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blog-server/internal/domain"
	"blog-server/internal/service"
	"blog-server/internal/storage"
)

const (
	sessionCookieName = "blog_session"
	sessionContextKey = "session"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	posts    service.PostService
	users    service.UserService
	sessions service.SessionService
	storage  storage.Service
	uploads  storage.UploadOptions
	logger   *logrus.Logger
	env      string
	secure   bool
	started  time.Time
}

func NewHandler(
	posts service.PostService,
	users service.UserService,
	sessions service.SessionService,
	store storage.Service,
	uploads storage.UploadOptions,
	logger *logrus.Logger,
	env string,
	secureCookies bool,
) *Handler {
	return &Handler{
		posts:    posts,
		users:    users,
		sessions: sessions,
		storage:  store,
		uploads:  uploads,
		logger:   logger,
		env:      env,
		secure:   secureCookies,
		started:  time.Now(),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.loadSession())

	router.GET("/", h.home)
	router.GET("/about", h.about)
	router.GET("/contact", h.contact)
	router.GET("/search", h.search)
	router.GET("/health", h.health)

	posts := router.Group("/posts")
	{
		posts.GET("", h.listPosts)
		posts.GET("/create", h.requireAuth(), h.createPostForm)
		posts.POST("/create", h.requireAuth(), h.createPost)
		posts.GET("/:id", h.showPost)
		posts.PUT("/:id", h.requireAuth(), h.updatePost)
		posts.DELETE("/:id", h.requireAuth(), h.deletePost)
		posts.POST("/:id/like", h.requireAuth(), h.likePost)
		posts.GET("/:id/edit", h.requireAuth(), h.editPostForm)
	}

	users := router.Group("/users")
	{
		users.GET("/register", h.anonymousOnly(), h.registerForm)
		users.POST("/register", h.anonymousOnly(), h.register)
		users.GET("/login", h.anonymousOnly(), h.loginForm)
		users.POST("/login", h.anonymousOnly(), h.login)
		users.GET("/profile", h.requireAuth(), h.profile)
		users.POST("/profile", h.requireAuth(), h.updateProfile)
		users.POST("/logout", h.logout)
	}

	router.NoRoute(h.notFound)
}

// MethodOverride rewrites POST requests carrying a _method form field into
// the verb the field names. It must wrap the router because gin resolves
// the route from the method before middleware runs.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			ct := r.Header.Get("Content-Type")
			if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
				if err := r.ParseForm(); err == nil {
					switch strings.ToUpper(r.PostFormValue("_method")) {
					case http.MethodPut:
						r.Method = http.MethodPut
					case http.MethodDelete:
						r.Method = http.MethodDelete
					}
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// loadSession resolves the session cookie into an identity for the request.
// Store failures degrade to an anonymous request.
func (h *Handler) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(sessionCookieName)
		if err != nil {
			c.Next()
			return
		}
		sess, err := h.sessions.Get(c.Request.Context(), cookie)
		if err != nil {
			h.logger.Warnf("load session: %v", err)
			c.Next()
			return
		}
		if sess != nil {
			c.Set(sessionContextKey, sess)
		}
		c.Next()
	}
}

func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c) == nil {
			c.Redirect(http.StatusFound, "/users/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *Handler) anonymousOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c) != nil {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *domain.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	sess, ok := v.(*domain.Session)
	if !ok {
		return nil
	}
	return sess
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, token, int(ttl.Seconds()), "/", "", h.secure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, "", -1, "/", "", h.secure, true)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.started).Seconds(),
		"environment": h.env,
	})
}

func (h *Handler) about(c *gin.Context) {
	c.HTML(http.StatusOK, "about.html", gin.H{"User": currentSession(c)})
}

func (h *Handler) contact(c *gin.Context) {
	c.HTML(http.StatusOK, "contact.html", gin.H{"User": currentSession(c)})
}

func (h *Handler) notFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "404.html", gin.H{
		"Title": "Page Not Found",
		"User":  currentSession(c),
	})
}

func (h *Handler) renderForbidden(c *gin.Context) {
	c.HTML(http.StatusForbidden, "403.html", gin.H{
		"Title": "Access Denied",
		"User":  currentSession(c),
	})
}

// renderError logs the failure and shows the generic error page. Internal
// detail is only exposed outside production.
func (h *Handler) renderError(c *gin.Context, err error) {
	h.logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	detail := ""
	if !strings.EqualFold(h.env, "production") {
		detail = err.Error()
	}
	c.HTML(http.StatusInternalServerError, "error.html", gin.H{
		"Title":  "Server Error",
		"User":   currentSession(c),
		"Detail": detail,
	})
}

func isValidation(err error) (string, bool) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return ve.Message, true
	}
	return "", false
}
