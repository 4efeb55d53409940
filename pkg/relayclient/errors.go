package relayclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnknownDevice = errors.New("unknown device_id")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrBadRequest    = errors.New("bad request")
)

// StatusError is returned for any non-2xx reply. It unwraps to one of the
// sentinel errors when the status code has a known meaning.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s %s -> %d: %s", e.Method, e.Path, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return ErrUnknownDevice
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusBadRequest:
		return ErrBadRequest
	}
	return nil
}
