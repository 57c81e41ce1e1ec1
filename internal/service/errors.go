package service

import "errors"

var (
	// ErrNotFound indicates the requested resource is absent or hidden by
	// its visibility rule.
	ErrNotFound = errors.New("not found")
	// ErrLoginRequired indicates no valid session accompanied the request.
	ErrLoginRequired = errors.New("login required")
	// ErrAccessDenied indicates the session holder is authenticated but does
	// not own the resource.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidCredentials covers both unknown identifier and wrong
	// password, deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when registering with a username or email
	// already in use.
	ErrUserExists = errors.New("user already exists with this email or username")
)

// ValidationError carries a message meant to be shown inline on the form
// that produced the invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErr(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
