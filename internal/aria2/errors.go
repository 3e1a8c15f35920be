package aria2

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAuthRejected is matched (via errors.Is) by any RPC error that means the
// daemon refused our token. It is never retried.
var ErrAuthRejected = errors.New("aria2: authentication rejected")

// codeAuthRejected is the reserved JSON-RPC code for token failures. aria2
// itself answers a bad token with code 1 and message "Unauthorized".
const codeAuthRejected = -32098

// RPCError is an application-level error returned inside a well-formed
// JSON-RPC envelope.
type RPCError struct {
	Method  string
	Code    int
	Message string
	// GID is set when the call targeted a specific download.
	GID string
}

func (e *RPCError) Error() string {
	if e.GID != "" {
		return fmt.Sprintf("aria2 %s (gid %s): error %d: %s", e.Method, e.GID, e.Code, e.Message)
	}
	return fmt.Sprintf("aria2 %s: error %d: %s", e.Method, e.Code, e.Message)
}

// AuthRejected reports whether the daemon refused the token.
func (e *RPCError) AuthRejected() bool {
	if e.Code == codeAuthRejected {
		return true
	}
	return e.Code == 1 && strings.EqualFold(strings.TrimSpace(e.Message), "unauthorized")
}

func (e *RPCError) Is(target error) bool {
	return target == ErrAuthRejected && e.AuthRejected()
}

// NotFound reports whether aria2 says the GID does not exist.
func (e *RPCError) NotFound() bool {
	return strings.Contains(strings.ToLower(e.Message), "not found")
}

// TransportError is a network-level failure that survived the retry budget.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("aria2 transport failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means the daemon answered with a shape we cannot interpret,
// such as a batch reply whose length differs from the request.
type ProtocolError struct {
	Sent     int
	Received int
	Detail   string
}

func (e *ProtocolError) Error() string {
	if e.Detail != "" {
		return "aria2 protocol violation: " + e.Detail
	}
	return fmt.Sprintf("aria2 protocol violation: sent %d envelopes, received %d", e.Sent, e.Received)
}

// httpStatusError is a non-2xx response without a JSON-RPC body.
type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("aria2 http %d: %s", e.Code, e.Body)
}

// IsNotFound reports whether err is an RPC error for an unknown GID.
func IsNotFound(err error) bool {
	var re *RPCError
	return errors.As(err, &re) && re.NotFound()
}
