package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"blog-server/internal/domain"
	"blog-server/internal/service"
)

const maxAvatarSize = 2 << 20 // 2 MiB

type registerFields struct {
	Username string
	Email    string
}

func (h *Handler) registerForm(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{
		"User": nil,
		"Form": registerFields{},
	})
}

func (h *Handler) register(c *gin.Context) {
	in := service.RegisterInput{
		Username:        c.PostForm("username"),
		Email:           c.PostForm("email"),
		Password:        c.PostForm("password"),
		ConfirmPassword: c.PostForm("confirmPassword"),
	}
	form := registerFields{Username: in.Username, Email: in.Email}

	user, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		msg, ok := isValidation(err)
		switch {
		case ok:
		case errors.Is(err, service.ErrUserExists):
			msg = "User already exists with this email or username"
		default:
			h.logger.Errorf("register: %v", err)
			msg = "Registration failed. Please try again."
		}
		c.HTML(http.StatusOK, "register.html", gin.H{
			"User":  nil,
			"Form":  form,
			"Error": msg,
		})
		return
	}

	h.establishSession(c, user)
}

type loginFields struct {
	Username string
}

func (h *Handler) loginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"User": nil,
		"Form": loginFields{},
	})
}

func (h *Handler) login(c *gin.Context) {
	identifier := c.PostForm("username")
	password := c.PostForm("password")
	form := loginFields{Username: identifier}

	user, err := h.users.Authenticate(c.Request.Context(), identifier, password)
	if err != nil {
		msg, ok := isValidation(err)
		switch {
		case ok:
		case errors.Is(err, service.ErrInvalidCredentials):
			msg = "Invalid credentials"
		default:
			h.logger.Errorf("login: %v", err)
			msg = "Login failed. Please try again."
		}
		c.HTML(http.StatusOK, "login.html", gin.H{
			"User":  nil,
			"Form":  form,
			"Error": msg,
		})
		return
	}

	h.establishSession(c, user)
}

// establishSession binds a fresh session to the user and redirects home.
func (h *Handler) establishSession(c *gin.Context, user *domain.User) {
	sess, err := h.sessions.Create(c.Request.Context(), user)
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.setSessionCookie(c, sess.Token, h.sessions.TTL())
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) profile(c *gin.Context) {
	sess := currentSession(c)

	profile, err := h.users.GetByID(c.Request.Context(), sess.UserID)
	if err != nil {
		h.logger.Errorf("profile %d: %v", sess.UserID, err)
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.HTML(http.StatusOK, "profile.html", gin.H{
		"User":          sess,
		"Profile":       profile,
		"AvatarUploads": h.storage != nil,
	})
}

func (h *Handler) updateProfile(c *gin.Context) {
	ctx := c.Request.Context()
	sess := currentSession(c)

	profile, err := h.users.GetByID(ctx, sess.UserID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	avatar := profile.Avatar
	if h.storage != nil {
		if file, err := c.FormFile("avatar"); err == nil && file.Size > 0 {
			if file.Size > maxAvatarSize {
				c.HTML(http.StatusOK, "profile.html", gin.H{
					"User":          sess,
					"Profile":       profile,
					"AvatarUploads": true,
					"Error":         "Avatar must be smaller than 2 MB",
				})
				return
			}
			url, err := h.uploadAvatar(c, sess.UserID, file.Filename)
			if err != nil {
				h.logger.Errorf("upload avatar: %v", err)
				c.HTML(http.StatusOK, "profile.html", gin.H{
					"User":          sess,
					"Profile":       profile,
					"AvatarUploads": true,
					"Error":         "Avatar upload failed. Please try again.",
				})
				return
			}
			avatar = url
		}
	}

	if err := h.users.UpdateProfile(ctx, sess, c.PostForm("bio"), avatar); err != nil {
		h.renderError(c, err)
		return
	}

	if h.storage != nil && avatar != profile.Avatar {
		h.deleteOldAvatar(ctx, profile.Avatar)
	}

	c.Redirect(http.StatusFound, "/users/profile")
}

// deleteOldAvatar removes a replaced avatar object from storage. Failures
// only leave an orphaned object behind, so they are logged and ignored.
func (h *Handler) deleteOldAvatar(ctx context.Context, avatarURL string) {
	key, ok := h.avatarObjectKey(avatarURL)
	if !ok {
		return
	}
	if err := h.storage.DeleteObject(ctx, h.uploads.Bucket, key); err != nil {
		h.logger.Warnf("delete old avatar %s: %v", key, err)
	}
}

// avatarObjectKey extracts the object key from an avatar URL produced by the
// storage service. External URLs that do not point at the configured bucket
// yield false.
func (h *Handler) avatarObjectKey(avatarURL string) (string, bool) {
	if h.uploads.Bucket == "" || avatarURL == "" {
		return "", false
	}
	if strings.Contains(avatarURL, "//"+h.uploads.Bucket+".s3.") {
		if i := strings.Index(avatarURL, ".amazonaws.com/"); i >= 0 {
			return avatarURL[i+len(".amazonaws.com/"):], true
		}
	}
	if i := strings.Index(avatarURL, "/"+h.uploads.Bucket+"/"); i >= 0 {
		return avatarURL[i+len(h.uploads.Bucket)+2:], true
	}
	return "", false
}

func (h *Handler) uploadAvatar(c *gin.Context, userID int64, filename string) (string, error) {
	file, err := c.FormFile("avatar")
	if err != nil {
		return "", err
	}
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open avatar upload: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(filename))
	key := fmt.Sprintf("user-%d-%s%s", userID, uuid.NewString(), ext)
	contentType := file.Header.Get("Content-Type")

	return h.storage.UploadObject(c.Request.Context(), h.uploads, key, contentType, src)
}

func (h *Handler) logout(c *gin.Context) {
	if token, err := c.Cookie(sessionCookieName); err == nil {
		// destroy is idempotent; a missing session is not an error
		if err := h.sessions.Destroy(c.Request.Context(), token); err != nil {
			h.logger.Warnf("logout: %v", err)
		}
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusFound, "/")
}
