package service

import "blog-server/internal/domain"

// Authenticated reports whether a valid session accompanies the request.
func Authenticated(sess *domain.Session) error {
	if sess == nil {
		return ErrLoginRequired
	}
	return nil
}

// Authorize decides whether the session holder may mutate a resource owned
// by ownerID. It is a pure decision function; callers render the matching
// response (redirect to login vs access denied).
func Authorize(sess *domain.Session, ownerID int64) error {
	if err := Authenticated(sess); err != nil {
		return err
	}
	if sess.UserID != ownerID {
		return ErrAccessDenied
	}
	return nil
}
