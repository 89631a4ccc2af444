package ticketstore

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RemoteError reports a failed TicketStore call: a transport failure
// (StatusCode 0) or a non-2xx answer.
type RemoteError struct {
	Op         string
	StatusCode int
	Err        error

	// RetryAfter is the server's requested delay, if it sent one.
	RetryAfter time.Duration
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote error (%s): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote error (%s): status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the call may succeed: transport
// failures, 429 and 5xx responses.
func (e *RemoteError) Temporary() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// IsRemoteError reports whether err (or any error in its chain) is a RemoteError.
func IsRemoteError(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr)
}

// IsNotFound reports whether err is a remote 404.
func IsNotFound(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.StatusCode == http.StatusNotFound
}

func remoteErr(op string, status int, format string, args ...any) *RemoteError {
	return &RemoteError{Op: op, StatusCode: status, Err: fmt.Errorf(format, args...)}
}

// IsRemoteStatus reports whether err is a RemoteError carrying status.
func IsRemoteStatus(err error, status int) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.StatusCode == status
}
