package internal

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrSessionExpired is matched by every *SessionExpiredError.
	ErrSessionExpired = errors.New("session expired")

	// ErrNoOrigin is returned when a relative path is requested but no API
	// origin could be resolved (no override and no page location).
	ErrNoOrigin = errors.New("no API origin resolved for relative path")
)

type ExpiryReason string

const (
	ReasonRefreshEndpoint ExpiryReason = "refresh_endpoint_unauthorized"
	ReasonNoRefreshToken  ExpiryReason = "no_refresh_token"
	ReasonRefreshRejected ExpiryReason = "refresh_rejected"
	ReasonBadRefreshBody  ExpiryReason = "refresh_response_invalid"
)

// SessionExpiredError reports an unrecoverable loss of the session. Both
// credentials have been cleared by the time it is returned; the caller is
// expected to send the user to LoginPath.
type SessionExpiredError struct {
	Reason    ExpiryReason
	LoginPath string
	Cause     error
}

func (e *SessionExpiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session expired (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("session expired (%s)", e.Reason)
}

func (e *SessionExpiredError) Is(target error) bool {
	return target == ErrSessionExpired
}

func (e *SessionExpiredError) Unwrap() error {
	return e.Cause
}

// HTTPStatusError is returned when the remote server responds with a non-2xx status.
type HTTPStatusError struct {
	URL        string
	Status     string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status response from %s: %s", e.URL, e.Status)
}

// AsSessionExpired unwraps err into a *SessionExpiredError if it is one.
func AsSessionExpired(err error) (*SessionExpiredError, bool) {
	var se *SessionExpiredError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
