// Package reddit – error taxonomy
//
// This file centralizes the closed error model exposed by the remote-client
// adapter. API rejections surface as *APIError carrying the platform's error
// kind; callers discriminate with the helpers below instead of matching raw
// strings from the wire.
package reddit

import (
	"errors"
	"fmt"
)

// KindUserVanished is the platform's error kind for actions against a user
// that no longer exists (deleted or suspended account).
const KindUserVanished = "USER_DOESNT_EXIST"

// ErrNotFound is returned by Info when the requested content item cannot be
// resolved anymore (deleted target). Callers are expected to degrade
// gracefully rather than treat this as fatal.
var ErrNotFound = errors.New("content not found")

// APIError is a structured rejection from the remote API.
type APIError struct {
	Kind   string // platform error code, e.g. "USER_DOESNT_EXIST"
	Detail string // human-readable message from the API
	Field  string // offending request field, when reported
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("reddit api: %s (%s) on field %q", e.Kind, e.Detail, e.Field)
	}
	return fmt.Sprintf("reddit api: %s (%s)", e.Kind, e.Detail)
}

// IsUserVanished reports whether err is the expected "target user no longer
// exists" rejection. This is the only API failure the core recovers from.
func IsUserVanished(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Kind == KindUserVanished
}
