package client

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError reports a failure to complete an HTTP exchange: the request
// could not be built or sent, the server answered with a non-2xx status, or the
// body was not an envelope. Its content is never interpreted by callers.
type TransportError struct {
	Op         string // build, credentials, send, status, read, decode
	Method     string
	Path       string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %s (status %d): %v", e.Method, e.Path, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// EnvelopeError is an application-level failure: the envelope code was not "1"
type EnvelopeError struct {
	Code    string
	Message string
}

func (e *EnvelopeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed (code %q)", e.Code)
	}
	return e.Message
}

// IsTransport reports whether err is (or wraps) a TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAuthFailure reports whether the server definitively rejected the credential
func IsAuthFailure(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	return te.StatusCode == http.StatusUnauthorized || te.StatusCode == http.StatusForbidden
}
