package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrNotMember          = errors.New("not a project member")
	ErrCreatorProtected   = errors.New("project creator membership cannot be changed")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnsafeContent      = errors.New("unsafe content")
)
