package domain

import "errors"

var (
	ErrDuplicateIdentity    = errors.New("username already exists")
	ErrAuthenticationFailed = errors.New("invalid username or password")
	ErrInvalidToken         = errors.New("invalid token")
	ErrUnauthenticated      = errors.New("not authenticated")
	ErrForbidden            = errors.New("access forbidden")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidRegistration  = errors.New("invalid registration")
	ErrInvalidRole          = errors.New("invalid role")
	ErrEmptyMessage         = errors.New("message content must not be empty")
)
