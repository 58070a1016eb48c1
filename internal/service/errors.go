package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateIdentity  = errors.New("user with that username or email already exists")
	ErrUnresolvedRole     = errors.New("invalid email domain for role determination")
	ErrMediaUpload        = errors.New("image upload failed")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}
