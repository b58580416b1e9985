package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Transport adapters map these to status codes with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limited")
)

var (
	ErrDuplicateUser      = kindError(ErrConflict, "User already exists")
	ErrInvalidCredentials = kindError(ErrValidation, "Invalid credentials")
	ErrInvalidRole        = kindError(ErrValidation, "Invalid role. Must be Employee, Manager, or Admin")
	ErrInvalidAccessType  = kindError(ErrValidation, "Invalid access type. Must be Read, Write, or Admin")
	ErrInvalidStatus      = kindError(ErrValidation, "Invalid status. Must be Pending, Approved, or Rejected")
	ErrInvalidTransition  = kindError(ErrValidation, "Request has already been decided")
	ErrSoftwareNotFound   = kindError(ErrValidation, "Software not found")

	ErrUserNotFound    = kindError(ErrNotFound, "User not found")
	ErrRequestNotFound = kindError(ErrNotFound, "Request not found")
	ErrCatalogNotFound = kindError(ErrNotFound, "Software not found")

	ErrMissingToken  = kindError(ErrUnauthorized, "Access token required")
	ErrUnknownCaller = kindError(ErrUnauthorized, "Invalid token - user not found")
	ErrInvalidToken  = kindError(ErrForbidden, "Invalid or expired token")
)

// Error is a domain failure with a caller-facing message and a kind from the
// list above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func kindError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Errorf builds an ad hoc domain error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// MissingFieldError reports required input that was absent or blank.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	switch n := len(e.Fields); n {
	case 0:
		return "required field missing"
	case 1:
		return e.Fields[0] + " is required"
	case 2:
		return e.Fields[0] + " and " + e.Fields[1] + " are required"
	default:
		return strings.Join(e.Fields[:n-1], ", ") + ", and " + e.Fields[n-1] + " are required"
	}
}

func (e *MissingFieldError) Unwrap() error { return ErrValidation }

func MissingFields(fields ...string) error {
	return &MissingFieldError{Fields: fields}
}
