package service_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"blog-server/internal/domain"
	"blog-server/internal/service"
)

func TestAuthorize(t *testing.T) {
	c := qt.New(t)
	sess := &domain.Session{Token: "t", UserID: 7}

	c.Assert(service.Authenticated(nil), qt.ErrorIs, service.ErrLoginRequired)
	c.Assert(service.Authenticated(sess), qt.IsNil)

	c.Assert(service.Authorize(nil, 7), qt.ErrorIs, service.ErrLoginRequired)
	c.Assert(service.Authorize(sess, 8), qt.ErrorIs, service.ErrAccessDenied)
	c.Assert(service.Authorize(sess, 7), qt.IsNil)
}
