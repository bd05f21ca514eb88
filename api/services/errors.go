package services

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrGroupNotFound = errors.New("group not found")
	ErrRoleNotFound  = errors.New("role not found")
	ErrUserExists    = errors.New("user with same username or email already exists")
	ErrProvider      = errors.New("identity provider error")
)

// classify maps an identity provider error to a service error. A 404 from
// the provider becomes notFound; any other failure is an ErrProvider.
func classify(err error, notFound error) error {
	if err == nil {
		return nil
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.Status {
		case http.StatusNotFound:
			if notFound != nil {
				return fmt.Errorf("%w: %v", notFound, err)
			}
		case http.StatusConflict:
			return fmt.Errorf("%w: %v", ErrUserExists, err)
		}
	}

	return fmt.Errorf("%w: %v", ErrProvider, err)
}

// StatusCode returns the HTTP status a service error is reported with.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrGroupNotFound),
		errors.Is(err, ErrRoleNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns a short machine readable code for a service error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrGroupNotFound):
		return "group_not_found"
	case errors.Is(err, ErrRoleNotFound):
		return "role_not_found"
	case errors.Is(err, ErrUserExists):
		return "user_exists"
	default:
		return "provider_error"
	}
}
