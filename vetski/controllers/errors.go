package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
)

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// parseOptionalID parses an optional uuid field; empty means absent.
func parseOptionalID(field string, s *string) (*uuid.UUID, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*s))
	if err != nil {
		return nil, badRequest("%s must be a uuid", field)
	}
	return &id, nil
}

// ownsPath reports whether a storage path lives under the user's prefix.
func ownsPath(userID uuid.UUID, p string) bool {
	return strings.HasPrefix(strings.TrimLeft(p, "/"), userID.String()+"/")
}
